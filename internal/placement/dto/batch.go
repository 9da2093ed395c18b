package dto

// PlaceBetsRequest é o payload de POST /bets/batch do bet-service
type PlaceBetsRequest struct {
	UserID    string         `json:"userId"`
	ClientRef string         `json:"clientRef"` // idempotência: o mesmo envio nunca gera dois lotes
	Bets      []PlaceBetItem `json:"bets"`
}

type PlaceBetItem struct {
	EventID    string  `json:"eventId"`
	Market     string  `json:"market"`    // "1x2"
	Selection  string  `json:"selection"` // "home" | "draw" | "away"
	StakeCents int64   `json:"stake_cents"`
	OddValue   float64 `json:"odd_value"` // odd aceita pelo usuário
}

// PlaceBetsResponse lista as apostas criadas
type PlaceBetsResponse struct {
	BetIDs []string `json:"betIds"`
	Status string   `json:"status"` // PENDING_CONFIRMATION
}

// ErrorResponse é o corpo de erro do bet-service; Code "InsufficientFunds" indica saldo insuficiente
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
