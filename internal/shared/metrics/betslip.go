package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/betslip-service/internal/betslip"
)

// Betslip agrupa as métricas do serviço. Os hooks são ligados ao Reconciler,
// ao Gate, ao Hub e às fontes de feed.
type Betslip struct {
	Sessions      prometheus.Gauge
	Subscriptions prometheus.Gauge
	Applied       prometheus.Counter
	Dropped       prometheus.Counter
	Errors        *prometheus.CounterVec // stage
	Submits       *prometheus.CounterVec // result
	FeedMessages  *prometheus.CounterVec // source
	FeedOverflow  prometheus.Counter
}

func NewBetslip(reg prometheus.Registerer) *Betslip {
	m := &Betslip{
		Sessions:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "betslip_sessions_open", Help: "slips abertos"}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{Name: "betslip_event_subscriptions", Help: "eventos assinados somando todos os slips"}),
		Applied:       prometheus.NewCounter(prometheus.CounterOpts{Name: "betslip_updates_applied_total", Help: "snapshots aplicados aos slips"}),
		Dropped:       prometheus.NewCounter(prometheus.CounterOpts{Name: "betslip_updates_dropped_total", Help: "snapshots fora de ordem descartados"}),
		Errors:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "betslip_errors_total", Help: "erros por estágio"}, []string{"stage"}),
		Submits:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "betslip_submits_total", Help: "envios por resultado"}, []string{"result"}),
		FeedMessages:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "betslip_feed_messages_total", Help: "mensagens recebidas por fonte"}, []string{"source"}),
		FeedOverflow:  prometheus.NewCounter(prometheus.CounterOpts{Name: "betslip_feed_overflow_total", Help: "updates descartados por assinante lento"}),
	}
	reg.MustRegister(m.Sessions, m.Subscriptions, m.Applied, m.Dropped, m.Errors, m.Submits, m.FeedMessages, m.FeedOverflow)
	return m
}

// ReconcilerHooks liga as métricas ao Reconciler de um slip
func (m *Betslip) ReconcilerHooks() betslip.ReconcilerHooks {
	return betslip.ReconcilerHooks{
		OnApplied:     func(string) { m.Applied.Inc() },
		OnDropped:     func(string) { m.Dropped.Inc() },
		OnError:       func(stage string) { m.Errors.WithLabelValues(stage).Inc() },
		OnSubscribe:   func(string) { m.Subscriptions.Inc() },
		OnUnsubscribe: func(string) { m.Subscriptions.Dec() },
	}
}

// GateHooks liga as métricas ao Gate de um slip
func (m *Betslip) GateHooks() betslip.GateHooks {
	return betslip.GateHooks{
		OnSubmit: func(result string) { m.Submits.WithLabelValues(result).Inc() },
	}
}

// FeedError devolve o callback de erro de uma fonte de feed
func (m *Betslip) FeedError(source string) func(string) {
	return func(stage string) { m.Errors.WithLabelValues(source + "_" + stage).Inc() }
}

// FeedReceived devolve o callback de mensagem recebida de uma fonte
func (m *Betslip) FeedReceived(source string) func() {
	c := m.FeedMessages.WithLabelValues(source)
	return func() { c.Inc() }
}
