package odds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/radieske/betslip-service/pkg/contracts/events"
)

// PostgresFetcher lê o snapshot direto das tabelas do odds-processor
type PostgresFetcher struct {
	DB     *sql.DB
	Market string // default "1x2"
}

func NewPostgresFetcher(db *sql.DB) *PostgresFetcher { return &PostgresFetcher{DB: db, Market: "1x2"} }

func (f *PostgresFetcher) FetchEvent(ctx context.Context, eventID string) (events.OddsUpdate, error) {
	const q = `
		SELECT event_id, home_team, away_team, market, home_odd, draw_odd, away_odd, version, updated_at
		FROM odds_current
		WHERE event_id = $1 AND market = $2;
	`
	var out events.OddsUpdate
	err := f.DB.QueryRowContext(ctx, q, eventID, f.market()).Scan(
		&out.EventID, &out.HomeTeam, &out.AwayTeam, &out.Market,
		&out.Odds.Home, &out.Odds.Draw, &out.Odds.Away, &out.Version, &out.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	if err != nil {
		return out, fmt.Errorf("query odds_current: %w", err)
	}
	out.Source = "postgres"

	st, err := f.marketStatus(ctx, eventID)
	if err != nil {
		return out, err
	}
	out.MarketStatus = withDefaultStatus(st)
	return out, nil
}

func (f *PostgresFetcher) marketStatus(ctx context.Context, eventID string) ([]events.MarketState, error) {
	const q = `
		SELECT market, status
		FROM market_status
		WHERE event_id = $1
		ORDER BY market;
	`
	rows, err := f.DB.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("query market_status: %w", err)
	}
	defer rows.Close()
	var out []events.MarketState
	for rows.Next() {
		var m events.MarketState
		if err := rows.Scan(&m.Name, &m.Status); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (f *PostgresFetcher) market() string {
	if f.Market == "" {
		return "1x2"
	}
	return f.Market
}
