package events

import "time"

// Odds publicadas por evento (mercado 1x2)
type Odds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// MarketState é o status de um mercado específico do evento.
// Name segue o nome do campo de odds: "homeOdds" | "awayOdds" | "drawOdds"
type MarketState struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "active" | "suspended" | "closed"
}

// OddsUpdate é o snapshot de um evento, tanto no tópico "odds_updates"
// quanto na resposta de GET /v1/events/{id} do odds-service.
type OddsUpdate struct {
	EventID      string        `json:"event_id"`
	HomeTeam     string        `json:"home_team"`
	AwayTeam     string        `json:"away_team"`
	Market       string        `json:"market"` // "1x2"
	Odds         Odds          `json:"odds"`
	MarketStatus []MarketState `json:"market_status,omitempty"`
	EventStatus  string        `json:"event_status,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Source       string        `json:"source"`
	Version      int           `json:"version"` // incrementado a cada atualização
}

// StatusOf retorna o status do mercado com o nome informado, ou "" se desconhecido
func (u OddsUpdate) StatusOf(market string) string {
	for _, m := range u.MarketStatus {
		if m.Name == market {
			return m.Status
		}
	}
	return ""
}
