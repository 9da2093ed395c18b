package betslip

import (
	"go.uber.org/zap"
)

// Deps são os colaboradores externos do slip
type Deps struct {
	Fetcher  EventFetcher
	Feed     EventFeed // opcional
	Placer   BetPlacer
	Notifier Notifier // opcional
	Log      *zap.Logger
}

// Config do slip de um usuário
type Config struct {
	UserID       string
	DefaultStake int64
	Reconciler   ReconcilerConfig
	Gate         GateHooks
}

// Engine junta Store, Reconciler e Gate de um slip.
// Close deve ser chamado quando o slip deixa de existir.
type Engine struct {
	Store      *Store
	Reconciler *Reconciler
	Gate       *Gate
}

// View é o estado derivado do slip num instante
type View struct {
	Bets               []PendingBet    `json:"bets"`
	IsValid            bool            `json:"isValid"`
	HasSuspendedMarket bool            `json:"hasSuspendedMarket"`
	CanSubmit          bool            `json:"canSubmit"`
	Blocker            string          `json:"blocker,omitempty"`
	Submission         SubmissionState `json:"submission"`
}

func NewEngine(cfg Config, deps Deps) *Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("user_id", cfg.UserID))

	store := NewStore(cfg.DefaultStake)
	return &Engine{
		Store:      store,
		Reconciler: NewReconciler(store, deps.Fetcher, deps.Feed, log, cfg.Reconciler),
		Gate:       NewGate(store, deps.Placer, deps.Notifier, log, GateConfig{UserID: cfg.UserID, Hooks: cfg.Gate}),
	}
}

// View calcula o estado derivado a partir de um único snapshot das apostas
func (e *Engine) View() View {
	bets := e.Store.All()
	v := View{
		Bets:               bets,
		IsValid:            isValid(bets),
		HasSuspendedMarket: hasStatus(bets, MarketSuspended),
		Submission:         e.Gate.State(),
	}
	var err error
	if v.Submission.Phase == PhaseInProgress {
		err = ErrSubmissionInProgress
	} else {
		err = checkBets(bets)
	}
	v.CanSubmit = err == nil
	if err != nil {
		v.Blocker = err.Error()
	}
	return v
}

// Close encerra todas as assinaturas do slip
func (e *Engine) Close() { e.Reconciler.Close() }
