package odds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/betslip-service/internal/betslip"
	"github.com/radieske/betslip-service/pkg/contracts/events"
)

// RedisFetcher lê o snapshot mantido pelo odds-processor em "odds:current:{eventID}".
// Overrides de status de mercado ficam no hash "odds:status:{eventID}" (mercado -> status).
type RedisFetcher struct {
	Rdb *redis.Client
}

func NewRedisFetcher(r *redis.Client) *RedisFetcher { return &RedisFetcher{Rdb: r} }

func keyCurrent(eventID string) string { return "odds:current:" + eventID }

func keyStatus(eventID string) string { return "odds:status:" + eventID }

func (f *RedisFetcher) FetchEvent(ctx context.Context, eventID string) (events.OddsUpdate, error) {
	var out events.OddsUpdate

	pipe := f.Rdb.Pipeline()
	cur := pipe.Get(ctx, keyCurrent(eventID))
	st := pipe.HGetAll(ctx, keyStatus(eventID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return out, err
	}

	b, err := cur.Bytes()
	if errors.Is(err, redis.Nil) {
		return out, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode cached event %s: %w", eventID, err)
	}
	out.MarketStatus = withDefaultStatus(mergeStatus(out.MarketStatus, st.Val()))
	return out, nil
}

// mergeStatus aplica os overrides do hash sobre a lista do snapshot
func mergeStatus(list []events.MarketState, overrides map[string]string) []events.MarketState {
	if len(overrides) == 0 {
		return list
	}
	out := make([]events.MarketState, 0, len(list)+len(overrides))
	for _, m := range list {
		if s, ok := overrides[m.Name]; ok {
			m.Status = s
		}
		out = append(out, m)
	}
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		found := false
		for _, m := range list {
			if m.Name == name {
				found = true
				break
			}
		}
		if !found {
			out = append(out, events.MarketState{Name: name, Status: overrides[name]})
		}
	}
	return out
}

// withDefaultStatus completa os mercados do 1x2 ausentes como ativos.
// A leitura pontual é o estado inteiro do evento: sem entrada (ex.: HDEL do
// override) o mercado está ativo.
func withDefaultStatus(list []events.MarketState) []events.MarketState {
	out := append([]events.MarketState(nil), list...)
	for _, o := range []betslip.Outcome{betslip.HomeWin, betslip.Draw, betslip.AwayWin} {
		name := o.Field()
		found := false
		for _, m := range list {
			if m.Name == name {
				found = true
				break
			}
		}
		if !found {
			out = append(out, events.MarketState{Name: name, Status: string(betslip.MarketActive)})
		}
	}
	return out
}
