package odds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/radieske/betslip-service/internal/betslip"
	"github.com/radieske/betslip-service/pkg/contracts/events"
)

func oddsAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/events/E1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(events.OddsUpdate{
			EventID: "E1",
			Market:  "1x2",
			Odds:    events.Odds{Home: 2.5, Draw: 3.1, Away: 2.9},
			MarketStatus: []events.MarketState{
				{Name: betslip.FieldDrawOdds, Status: "suspended"},
			},
			Version: 4,
		})
	})
	mux.HandleFunc("/v1/events/E2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientFetchEvent(t *testing.T) {
	ts := oddsAPI(t)
	c := New(ts.URL+"/", 0)

	u, err := c.FetchEvent(context.Background(), "E1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if u.Odds.Home != 2.5 || u.Version != 4 {
		t.Errorf("update = %+v", u)
	}
	if st := u.StatusOf(betslip.FieldDrawOdds); st != "suspended" {
		t.Errorf("draw status = %q", st)
	}
}

func TestClientFetchEventErrors(t *testing.T) {
	ts := oddsAPI(t)
	c := New(ts.URL, 0)

	_, err := c.FetchEvent(context.Background(), "missing")
	if !errors.Is(err, ErrEventNotFound) || !errors.Is(err, betslip.ErrEventNotFound) {
		t.Errorf("missing event err = %v", err)
	}

	_, err = c.FetchEvent(context.Background(), "E2")
	if err == nil || errors.Is(err, ErrEventNotFound) {
		t.Errorf("server error = %v", err)
	}
}

func TestClientRateLimit(t *testing.T) {
	ts := oddsAPI(t)
	c := New(ts.URL, 0)
	c.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	if _, err := c.FetchEvent(context.Background(), "E1"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.FetchEvent(ctx, "E1"); err == nil {
		t.Error("second fetch should wait for the limiter and fail on deadline")
	}
}
