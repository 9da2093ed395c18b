package placement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/radieske/betslip-service/internal/betslip"
	"github.com/radieske/betslip-service/internal/placement/dto"
	"github.com/radieske/betslip-service/pkg/contracts/events"
)

func batch() betslip.BetBatch {
	return betslip.BetBatch{
		UserID:    "user-1",
		ClientRef: "ref-123",
		Bets: []betslip.BetRequest{
			{EventID: "E1", Outcome: betslip.HomeWin, Odds: decimal.RequireFromString("2.75"), AmountCents: 1000},
			{EventID: "E2", Outcome: betslip.Draw, Odds: decimal.RequireFromString("3.1"), AmountCents: 250},
		},
	}
}

func TestClientCreateBets(t *testing.T) {
	var got dto.PlaceBetsRequest
	var idem string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bets/batch" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		idem = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(dto.PlaceBetsResponse{BetIDs: []string{"b1", "b2"}, Status: "PENDING_CONFIRMATION"})
	}))
	defer ts.Close()

	if err := New(ts.URL).CreateBets(context.Background(), batch()); err != nil {
		t.Fatalf("CreateBets: %v", err)
	}
	if idem != "ref-123" || got.ClientRef != "ref-123" || got.UserID != "user-1" {
		t.Errorf("request = %+v idem=%q", got, idem)
	}
	if len(got.Bets) != 2 {
		t.Fatalf("bets = %d", len(got.Bets))
	}
	first := got.Bets[0]
	if first.Selection != "home" || first.Market != Market1x2 || first.OddValue != 2.75 || first.StakeCents != 1000 {
		t.Errorf("first bet = %+v", first)
	}
	if got.Bets[1].Selection != "draw" {
		t.Errorf("second selection = %q", got.Bets[1].Selection)
	}
}

func TestClientCreateBetsErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		insufficient bool
	}{
		{"json code", http.StatusConflict, `{"error":"wallet reserve failed","code":"InsufficientFunds"}`, true},
		{"plain text", http.StatusBadRequest, "GraphQL error: InsufficientFunds", true},
		{"payment required", http.StatusPaymentRequired, `{"error":"no balance"}`, true},
		{"generic", http.StatusInternalServerError, `{"error":"db down"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			err := New(ts.URL).CreateBets(context.Background(), batch())
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, betslip.ErrInsufficientFunds) != tt.insufficient {
				t.Errorf("err = %v, insufficient = %v", err, tt.insufficient)
			}
			want := betslip.FailureGeneric
			if tt.insufficient {
				want = betslip.FailureInsufficientFunds
			}
			if got := betslip.ClassifyFailure(err); got != want {
				t.Errorf("category = %q, want %q", got, want)
			}
		})
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaPublisherCreateBets(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	if err := p.CreateBets(context.Background(), batch()); err != nil {
		t.Fatalf("CreateBets: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	var e events.BetPlaced
	if err := json.Unmarshal(w.msgs[1].Value, &e); err != nil {
		t.Fatal(err)
	}
	if string(w.msgs[1].Key) != "E2" || e.ReservedRef != "ref-123" || e.Selection != "draw" || e.StakeCents != 250 || e.TsUnixMs != 1700000000000 {
		t.Errorf("event = %+v key=%s", e, w.msgs[1].Key)
	}
	if e.BetID == "" {
		t.Error("bet id not set")
	}

	w.err = errors.New("leader not available")
	if err := p.CreateBets(context.Background(), batch()); err == nil {
		t.Error("expected writer error")
	}
}
