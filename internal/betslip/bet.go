package betslip

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/radieske/betslip-service/pkg/contracts/events"
)

// Outcome é um dos três resultados possíveis de um evento
type Outcome string

const (
	HomeWin Outcome = "homeWin"
	AwayWin Outcome = "awayWin"
	Draw    Outcome = "draw"
)

// Nomes dos campos de odds do evento. O nome do mercado na lista
// marketStatus do evento é o mesmo nome do campo.
const (
	FieldHomeOdds = "homeOdds"
	FieldAwayOdds = "awayOdds"
	FieldDrawOdds = "drawOdds"
)

// outcomeFields é a tabela fixa outcome -> campo/mercado
var outcomeFields = map[Outcome]string{
	HomeWin: FieldHomeOdds,
	AwayWin: FieldAwayOdds,
	Draw:    FieldDrawOdds,
}

// ParseOutcome aceita o nome canônico ("homeWin"), a forma hifenizada
// ("home-win") ou o seletor de campo ("homeOdds").
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "homewin", "home-win", "home_win", "home", "homeodds":
		return HomeWin, nil
	case "awaywin", "away-win", "away_win", "away", "awayodds":
		return AwayWin, nil
	case "draw", "drawodds":
		return Draw, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
}

// Field retorna o campo de odds (e nome de mercado) do outcome
func (o Outcome) Field() string { return outcomeFields[o] }

// Valid informa se o outcome pertence à enumeração
func (o Outcome) Valid() bool {
	_, ok := outcomeFields[o]
	return ok
}

// Selection é o nome usado pelo bet-service ("home" | "draw" | "away")
func (o Outcome) Selection() string {
	switch o {
	case HomeWin:
		return "home"
	case AwayWin:
		return "away"
	case Draw:
		return "draw"
	}
	return ""
}

// OddsFor lê do snapshot do evento a odd correspondente ao outcome
func OddsFor(ev events.OddsUpdate, o Outcome) decimal.Decimal {
	switch o {
	case HomeWin:
		return decimal.NewFromFloat(ev.Odds.Home)
	case AwayWin:
		return decimal.NewFromFloat(ev.Odds.Away)
	case Draw:
		return decimal.NewFromFloat(ev.Odds.Draw)
	}
	return decimal.Zero
}

// MarketStatus é o último status conhecido do mercado de um outcome.
// O valor vazio significa desconhecido.
type MarketStatus string

const (
	MarketUnknown   MarketStatus = ""
	MarketActive    MarketStatus = "active"
	MarketSuspended MarketStatus = "suspended"
	MarketClosed    MarketStatus = "closed"
)

// ParseMarketStatus normaliza o status vindo do feed; valores desconhecidos viram MarketUnknown
func ParseMarketStatus(s string) MarketStatus {
	switch MarketStatus(strings.ToLower(strings.TrimSpace(s))) {
	case MarketActive:
		return MarketActive
	case MarketSuspended:
		return MarketSuspended
	case MarketClosed:
		return MarketClosed
	}
	return MarketUnknown
}

// StatusFor lê do snapshot o status do mercado do outcome
func StatusFor(ev events.OddsUpdate, o Outcome) MarketStatus {
	return ParseMarketStatus(ev.StatusOf(o.Field()))
}

// Key identifica uma aposta no slip; só existe uma aposta por Key.
type Key struct {
	EventID string
	Outcome Outcome
}

func (k Key) String() string { return k.EventID + "/" + string(k.Outcome) }

// PendingBet é uma aposta candidata aguardando envio.
//
// SelectedOdds só muda em Add e AcceptCurrentOdds. CurrentOdds, MarketStatus,
// Degraded e Version pertencem ao Reconciler.
type PendingBet struct {
	EventID      string          `json:"eventId"`
	Outcome      Outcome         `json:"outcome"`
	SelectedOdds decimal.Decimal `json:"selectedOdds"`
	CurrentOdds  decimal.Decimal `json:"currentOdds"`
	AmountCents  int64           `json:"amount_cents"`
	MarketStatus MarketStatus    `json:"marketStatus,omitempty"`
	Degraded     bool            `json:"degraded,omitempty"`
	Version      int             `json:"version,omitempty"`
}

func (b PendingBet) Key() Key { return Key{EventID: b.EventID, Outcome: b.Outcome} }

// Stale indica que a odd mudou desde a seleção
func (b PendingBet) Stale() bool { return !b.SelectedOdds.Equal(b.CurrentOdds) }
