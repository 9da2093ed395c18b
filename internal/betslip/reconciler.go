package betslip

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betslip-service/pkg/contracts/events"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultRetryDelay   = 2 * time.Second
	DefaultFetchTimeout = 3 * time.Second
)

// EventFetcher carrega o snapshot atual de um evento (consulta pontual)
type EventFetcher interface {
	FetchEvent(ctx context.Context, eventID string) (events.OddsUpdate, error)
}

// EventFeed entrega atualizações de um evento enquanto ctx estiver ativo.
// O canal é fechado quando ctx termina ou a fonte encerra.
type EventFeed interface {
	Subscribe(ctx context.Context, eventID string) (<-chan events.OddsUpdate, error)
}

// ReconcilerHooks são callbacks opcionais (métricas)
type ReconcilerHooks struct {
	OnApplied     func(eventID string) // snapshot aplicado ao slip
	OnDropped     func(eventID string) // snapshot com versão antiga descartado
	OnError       func(stage string)   // "fetch" | "feed"
	OnSubscribe   func(eventID string)
	OnUnsubscribe func(eventID string)
}

// ReconcilerConfig controla a cadência de atualização.
// Sem feed, PollInterval <= 0 usa DefaultPollInterval. Com feed, PollInterval <= 0
// desliga o polling (o feed é aplicado assim que chega).
type ReconcilerConfig struct {
	PollInterval time.Duration
	RetryDelay   time.Duration
	FetchTimeout time.Duration
	Hooks        ReconcilerHooks
}

// Reconciler mantém CurrentOdds/MarketStatus das apostas sincronizados com os eventos.
// Existe no máximo um watcher por eventId, com contagem de referências:
// 0->n inicia o watcher, n->0 cancela.
type Reconciler struct {
	store *Store
	fetch EventFetcher
	feed  EventFeed
	log   *zap.Logger
	cfg   ReconcilerConfig

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	refs     map[string]int
	watchers map[string]context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// NewReconciler liga o reconciler ao store. feed pode ser nil (somente polling).
func NewReconciler(store *Store, fetch EventFetcher, feed EventFeed, log *zap.Logger, cfg ReconcilerConfig) *Reconciler {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if feed == nil && cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reconciler{
		store:    store,
		fetch:    fetch,
		feed:     feed,
		log:      log.With(zap.String("component", "reconciler")),
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		refs:     make(map[string]int),
		watchers: make(map[string]context.CancelFunc),
	}
	store.OnChange(func(c Change) {
		if c.Kind.Membership() {
			r.Reconcile()
		}
	})
	r.Reconcile()
	return r
}

// Reconcile compara os eventos referenciados pelo slip com os watchers ativos,
// iniciando os que faltam e cancelando os que não têm mais referência.
func (r *Reconciler) Reconcile() {
	var started, stopped []string

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	desired := r.store.EventRefs()
	for id := range r.refs {
		if desired[id] == 0 {
			if cancel, ok := r.watchers[id]; ok {
				cancel()
				delete(r.watchers, id)
			}
			stopped = append(stopped, id)
		}
	}
	for id := range desired {
		if r.refs[id] == 0 {
			wctx, cancel := context.WithCancel(r.ctx)
			r.watchers[id] = cancel
			r.wg.Add(1)
			go r.watch(wctx, id)
			started = append(started, id)
		}
	}
	r.refs = desired
	r.mu.Unlock()

	for _, id := range stopped {
		r.log.Debug("event unsubscribed", zap.String("event_id", id))
		if r.cfg.Hooks.OnUnsubscribe != nil {
			r.cfg.Hooks.OnUnsubscribe(id)
		}
	}
	for _, id := range started {
		r.log.Debug("event subscribed", zap.String("event_id", id))
		if r.cfg.Hooks.OnSubscribe != nil {
			r.cfg.Hooks.OnSubscribe(id)
		}
	}
}

// Active retorna os eventos com watcher ativo, ordenados
func (r *Reconciler) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Refs retorna quantas apostas referenciam o evento
func (r *Reconciler) Refs(eventID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[eventID]
}

// Close cancela todos os watchers e aguarda o encerramento
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	ids := make([]string, 0, len(r.watchers))
	for id := range r.watchers {
		ids = append(ids, id)
	}
	r.watchers = map[string]context.CancelFunc{}
	r.refs = map[string]int{}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	for _, id := range ids {
		if r.cfg.Hooks.OnUnsubscribe != nil {
			r.cfg.Hooks.OnUnsubscribe(id)
		}
	}
}

// watch é o loop de um evento. Todas as atualizações do evento passam por aqui,
// então são aplicadas na ordem em que chegam.
func (r *Reconciler) watch(ctx context.Context, eventID string) {
	defer r.wg.Done()
	log := r.log.With(zap.String("event_id", eventID))
	lastVersion := 0

	apply := func(u events.OddsUpdate) {
		if u.EventID != eventID {
			return
		}
		if u.Version != 0 && u.Version < lastVersion {
			log.Debug("stale update dropped", zap.Int("version", u.Version), zap.Int("last_version", lastVersion))
			if r.cfg.Hooks.OnDropped != nil {
				r.cfg.Hooks.OnDropped(eventID)
			}
			return
		}
		if u.Version > lastVersion {
			lastVersion = u.Version
		}
		if changed := r.store.Patch(u); len(changed) > 0 {
			log.Debug("odds reconciled", zap.Int("bets", len(changed)), zap.Int("version", u.Version))
		}
		if r.cfg.Hooks.OnApplied != nil {
			r.cfg.Hooks.OnApplied(eventID)
		}
	}

	refresh := func() bool {
		if r.fetch == nil {
			return true
		}
		fctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
		u, err := r.fetch.FetchEvent(fctx, eventID)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			if errors.Is(err, ErrEventNotFound) {
				log.Warn("event not found", zap.Error(err))
			} else {
				log.Warn("event fetch failed", zap.Error(err))
			}
			if r.cfg.Hooks.OnError != nil {
				r.cfg.Hooks.OnError("fetch")
			}
			r.store.MarkDegraded(eventID)
			return false
		}
		apply(u)
		return true
	}

	subscribe := func() <-chan events.OddsUpdate {
		ch, err := r.feed.Subscribe(ctx, eventID)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("feed subscribe failed", zap.Error(err))
				if r.cfg.Hooks.OnError != nil {
					r.cfg.Hooks.OnError("feed")
				}
			}
			return nil
		}
		return ch
	}

	var (
		updates <-chan events.OddsUpdate
		tick    <-chan time.Time
		retry   <-chan time.Time
		resub   <-chan time.Time
	)

	// enquanto o feed estiver fora, faz polling para não ficar sem atualização
	startPolling := func(every time.Duration) {
		if tick != nil {
			return
		}
		t := time.NewTicker(every)
		go func() {
			<-ctx.Done()
			t.Stop()
		}()
		tick = t.C
	}

	if r.cfg.PollInterval > 0 {
		startPolling(r.cfg.PollInterval)
	}
	if !refresh() {
		retry = time.After(r.cfg.RetryDelay)
	}
	if r.feed != nil {
		if updates = subscribe(); updates == nil {
			resub = time.After(r.cfg.RetryDelay)
			startPolling(DefaultPollInterval)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if refresh() {
				retry = nil
			}
		case <-retry:
			retry = nil
			if !refresh() {
				retry = time.After(r.cfg.RetryDelay)
			}
		case <-resub:
			resub = nil
			if updates = subscribe(); updates == nil {
				resub = time.After(r.cfg.RetryDelay)
			}
		case u, ok := <-updates:
			if !ok {
				updates = nil
				if ctx.Err() != nil {
					return
				}
				log.Warn("feed closed, resubscribing")
				if r.cfg.Hooks.OnError != nil {
					r.cfg.Hooks.OnError("feed")
				}
				resub = time.After(r.cfg.RetryDelay)
				startPolling(DefaultPollInterval)
				continue
			}
			apply(u)
		}
	}
}
