package betslip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BetRequest é a aposta normalizada enviada para colocação
type BetRequest struct {
	EventID     string          `json:"eventId"`
	Outcome     Outcome         `json:"outcome"`
	Odds        decimal.Decimal `json:"odds"`
	AmountCents int64           `json:"amount_cents"`
}

// BetBatch é o lote enviado em um único Submit
type BetBatch struct {
	UserID    string       `json:"userId"`
	ClientRef string       `json:"clientRef"` // idempotência do envio
	Bets      []BetRequest `json:"bets"`
}

// BetPlacer é a mutação externa de colocação de apostas
type BetPlacer interface {
	CreateBets(ctx context.Context, batch BetBatch) error
}

// Phase do ciclo de envio
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInProgress
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInProgress:
		return "inProgress"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for _, c := range []Phase{PhaseIdle, PhaseInProgress, PhaseSucceeded, PhaseFailed} {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown submission phase %q", b)
}

// FailureCategory classifica a falha de envio
type FailureCategory string

const (
	FailureNone              FailureCategory = ""
	FailureInsufficientFunds FailureCategory = "insufficient_funds"
	FailureGeneric           FailureCategory = "generic"
)

// SubmissionState é o estado transitório do envio
type SubmissionState struct {
	Phase     Phase           `json:"phase"`
	Category  FailureCategory `json:"category,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	ClientRef string          `json:"clientRef,omitempty"`
	At        time.Time       `json:"at,omitempty"`
}

// ClassifyFailure separa saldo insuficiente de falha genérica.
// A mutação externa sinaliza saldo insuficiente com "InsufficientFunds" na mensagem.
func ClassifyFailure(err error) FailureCategory {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, ErrInsufficientFunds) {
		return FailureInsufficientFunds
	}
	msg := err.Error()
	if strings.Contains(msg, "InsufficientFunds") || strings.Contains(strings.ToLower(msg), "insufficient funds") {
		return FailureInsufficientFunds
	}
	return FailureGeneric
}

// GateHooks são callbacks opcionais (métricas)
type GateHooks struct {
	OnSubmit func(result string) // "succeeded" | "insufficient_funds" | "generic" | "blocked"
}

// GateConfig identifica o dono do slip e os hooks
type GateConfig struct {
	UserID string
	Hooks  GateHooks
}

// Gate decide se o slip pode ser enviado e controla o ciclo de envio.
// Falhas nunca passam do Gate: viram estado e notificação.
type Gate struct {
	store    *Store
	placer   BetPlacer
	notifier Notifier
	log      *zap.Logger
	cfg      GateConfig
	now      func() time.Time

	mu    sync.Mutex
	state SubmissionState
}

// NewGate cria o gate do slip. notifier pode ser nil.
func NewGate(store *Store, placer BetPlacer, notifier Notifier, log *zap.Logger, cfg GateConfig) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notification) {})
	}
	g := &Gate{
		store:    store,
		placer:   placer,
		notifier: notifier,
		log:      log.With(zap.String("component", "gate"), zap.String("user_id", cfg.UserID)),
		cfg:      cfg,
		now:      time.Now,
	}
	// a próxima interação do usuário com o slip limpa o resultado anterior
	store.OnChange(func(c Change) {
		if !c.Kind.UserAction() {
			return
		}
		g.mu.Lock()
		if g.state.Phase == PhaseSucceeded || g.state.Phase == PhaseFailed {
			g.state = SubmissionState{Phase: PhaseIdle}
		}
		g.mu.Unlock()
	})
	return g
}

// State retorna o estado atual do envio
func (g *Gate) State() SubmissionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Reset volta para idle, exceto durante um envio
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Phase != PhaseInProgress {
		g.state = SubmissionState{Phase: PhaseIdle}
	}
}

// IsValid é verdadeiro se todas as apostas têm SelectedOdds == CurrentOdds
func (g *Gate) IsValid() bool { return isValid(g.store.All()) }

// HasSuspendedMarket é verdadeiro se alguma aposta está em mercado suspenso
func (g *Gate) HasSuspendedMarket() bool { return hasStatus(g.store.All(), MarketSuspended) }

// CanSubmit combina validade, mercados, slip não vazio e ausência de envio em andamento
func (g *Gate) CanSubmit() bool { return g.Check() == nil }

// Check retorna nil se o slip pode ser enviado, ou o primeiro motivo de bloqueio
func (g *Gate) Check() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Phase == PhaseInProgress {
		return ErrSubmissionInProgress
	}
	return checkBets(g.store.All())
}

// AcceptCurrentOdds copia as odds correntes para as selecionadas.
// O resultado não deve ser cacheado: as odds podem mudar logo em seguida.
func (g *Gate) AcceptCurrentOdds() { g.store.AcceptCurrentOdds() }

// Submit envia o slip se Check permitir; caso contrário é no-op.
// Retorna o estado final do envio.
func (g *Gate) Submit(ctx context.Context) SubmissionState {
	st, _ := g.TrySubmit(ctx)
	return st
}

// TrySubmit é o Submit que também devolve o motivo do bloqueio.
// Com erro nada foi enviado e o estado retornado é o anterior.
func (g *Gate) TrySubmit(ctx context.Context) (SubmissionState, error) {
	g.mu.Lock()
	if g.state.Phase == PhaseInProgress {
		st := g.state
		g.mu.Unlock()
		g.log.Debug("submit ignored, already in progress")
		return st, ErrSubmissionInProgress
	}
	bets := g.store.All()
	if err := checkBets(bets); err != nil {
		st := g.state
		g.mu.Unlock()
		g.log.Debug("submit blocked", zap.Error(err))
		g.hook("blocked")
		return st, err
	}
	batch := BetBatch{
		UserID:    g.cfg.UserID,
		ClientRef: uuid.NewString(),
		Bets:      make([]BetRequest, 0, len(bets)),
	}
	for _, b := range bets {
		batch.Bets = append(batch.Bets, BetRequest{
			EventID:     b.EventID,
			Outcome:     b.Outcome,
			Odds:        b.SelectedOdds,
			AmountCents: b.AmountCents,
		})
	}
	g.state = SubmissionState{Phase: PhaseInProgress, ClientRef: batch.ClientRef, At: g.now()}
	g.mu.Unlock()

	log := g.log.With(zap.String("client_ref", batch.ClientRef), zap.Int("bets", len(batch.Bets)))
	log.Info("submitting bet slip")

	err := g.placer.CreateBets(ctx, batch)
	if err == nil {
		// remove antes de sair de inProgress para o listener não resetar o sucesso.
		// Só sai o que foi enviado: apostas mexidas durante o envio ficam.
		if kept := len(batch.Bets) - len(g.store.RemovePlaced(batch.Bets)); kept > 0 {
			log.Info("placed bets edited during submit kept in slip", zap.Int("kept", kept))
		}
		st := g.finish(SubmissionState{Phase: PhaseSucceeded, ClientRef: batch.ClientRef, At: g.now()})
		log.Info("bet slip placed")
		g.hook("succeeded")
		g.notifier.Notify(ctx, Notification{Severity: SeveritySuccess, Message: MsgBetsPlaced, At: st.At})
		return st, nil
	}

	cat := ClassifyFailure(err)
	st := g.finish(SubmissionState{
		Phase:     PhaseFailed,
		Category:  cat,
		Reason:    err.Error(),
		ClientRef: batch.ClientRef,
		At:        g.now(),
	})
	log.Warn("bet slip placement failed", zap.String("category", string(cat)), zap.Error(err))
	g.hook(string(cat))

	msg := MsgUnidentifiedError
	if cat == FailureInsufficientFunds {
		msg = MsgInsufficientFunds
	}
	g.notifier.Notify(ctx, Notification{Severity: SeverityError, Message: msg, At: st.At})
	return st, nil
}

func (g *Gate) finish(st SubmissionState) SubmissionState {
	g.mu.Lock()
	g.state = st
	g.mu.Unlock()
	return st
}

func (g *Gate) hook(result string) {
	if g.cfg.Hooks.OnSubmit != nil {
		g.cfg.Hooks.OnSubmit(result)
	}
}

func isValid(bets []PendingBet) bool {
	for _, b := range bets {
		if b.Stale() {
			return false
		}
	}
	return true
}

func hasStatus(bets []PendingBet, st MarketStatus) bool {
	for _, b := range bets {
		if b.MarketStatus == st {
			return true
		}
	}
	return false
}

func checkBets(bets []PendingBet) error {
	if len(bets) == 0 {
		return ErrEmptySlip
	}
	for _, b := range bets {
		switch {
		case b.Stale():
			return fmt.Errorf("%w: %s", ErrStaleOdds, b.Key())
		case b.MarketStatus == MarketSuspended:
			return fmt.Errorf("%w: %s", ErrMarketSuspended, b.Key())
		case b.MarketStatus == MarketClosed:
			return fmt.Errorf("%w: %s", ErrMarketClosed, b.Key())
		case b.Degraded:
			return fmt.Errorf("%w: %s", ErrEventUnavailable, b.Key())
		}
	}
	return nil
}
