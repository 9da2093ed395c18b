package topics

const (
	// Odds
	OddsUpdates = "odds_updates"

	// Bets
	BetPlaced = "bet_placed"

	// Redis Pub/Sub
	OddsBroadcast = "odds_updates_broadcast"
)
