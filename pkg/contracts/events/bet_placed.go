package events

// BetPlaced é publicado no tópico "bet_placed" para cada aposta de um slip enviado via Kafka.
type BetPlaced struct {
	BetID       string  `json:"bet_id"`
	UserID      string  `json:"user_id"`
	EventID     string  `json:"event_id"`
	Market      string  `json:"market"`
	Selection   string  `json:"selection"`
	StakeCents  int64   `json:"stake_cents"`
	OddValue    float64 `json:"odd_value"`
	ReservedRef string  `json:"reserved_ref"` // clientRef do slip; agrupa as apostas do mesmo envio
	TsUnixMs    int64   `json:"ts_unix_ms"`
}
