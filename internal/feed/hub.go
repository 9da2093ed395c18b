package feed

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/betslip-service/pkg/contracts/events"
)

const DefaultBuffer = 16

var ErrNoEventID = errors.New("event id required")

// Hub distribui as atualizações de odds recebidas das fontes (Redis, Kafka, WS)
// para os assinantes de cada evento.
// subs: eventID -> conjunto de assinantes
type Hub struct {
	log    *zap.Logger
	buffer int

	// OnFirst/OnLast disparam na primeira assinatura de um evento e quando a última sai.
	// Devem ser definidos antes do primeiro Subscribe.
	OnFirst func(eventID string)
	OnLast  func(eventID string)
	// OnOverflow dispara quando um assinante lento perde a atualização mais antiga (métricas)
	OnOverflow func(eventID string)

	mu    sync.Mutex
	subs  map[string]map[*subscriber]struct{}
	hooks []hookCall // enfileirados sob mu, na ordem das mudanças

	hookMu sync.Mutex // uma chamada de hook por vez
}

type hookCall struct {
	first   bool
	eventID string
}

type subscriber struct {
	ch chan events.OddsUpdate
}

// NewHub cria o hub. buffer <= 0 usa DefaultBuffer.
func NewHub(log *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:    log.With(zap.String("component", "feed_hub")),
		buffer: buffer,
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

// Subscribe registra um assinante para o evento. O canal é fechado quando ctx termina.
func (h *Hub) Subscribe(ctx context.Context, eventID string) (<-chan events.OddsUpdate, error) {
	if eventID == "" {
		return nil, ErrNoEventID
	}
	s := &subscriber{ch: make(chan events.OddsUpdate, h.buffer)}

	h.mu.Lock()
	set, ok := h.subs[eventID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[eventID] = set
	}
	set[s] = struct{}{}
	if len(set) == 1 {
		h.hooks = append(h.hooks, hookCall{first: true, eventID: eventID})
	}
	h.mu.Unlock()
	h.runHooks()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		set := h.subs[eventID]
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, eventID)
			h.hooks = append(h.hooks, hookCall{eventID: eventID})
		}
		// fechado sob o lock para não concorrer com Broadcast
		close(s.ch)
		h.mu.Unlock()
		h.runHooks()
	}()
	return s.ch, nil
}

// runHooks executa os hooks pendentes em ordem. Um unsubscribe nunca passa
// na frente do subscribe seguinte do mesmo evento.
func (h *Hub) runHooks() {
	h.hookMu.Lock()
	defer h.hookMu.Unlock()
	for {
		h.mu.Lock()
		if len(h.hooks) == 0 {
			h.mu.Unlock()
			return
		}
		c := h.hooks[0]
		h.hooks = h.hooks[1:]
		h.mu.Unlock()

		switch {
		case c.first && h.OnFirst != nil:
			h.OnFirst(c.eventID)
		case !c.first && h.OnLast != nil:
			h.OnLast(c.eventID)
		}
	}
}

// Broadcast entrega a atualização aos assinantes do evento, na ordem das chamadas.
// Nunca bloqueia: com o buffer cheio descarta a atualização mais antiga,
// já que cada snapshot substitui o anterior.
func (h *Hub) Broadcast(u events.OddsUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[u.EventID] {
		select {
		case s.ch <- u:
			continue
		default:
		}
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- u:
		default:
		}
		h.log.Debug("slow subscriber, oldest update dropped", zap.String("event_id", u.EventID))
		if h.OnOverflow != nil {
			h.OnOverflow(u.EventID)
		}
	}
}

// Events retorna os eventos com ao menos um assinante, ordenados
func (h *Hub) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Subscribers retorna quantos assinantes o evento tem
func (h *Hub) Subscribers(eventID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[eventID])
}
