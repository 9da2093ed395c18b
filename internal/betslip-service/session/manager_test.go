package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/betslip-service/internal/betslip"
	"github.com/radieske/betslip-service/pkg/contracts/events"
)

type staticFetcher struct{}

func (staticFetcher) FetchEvent(_ context.Context, id string) (events.OddsUpdate, error) {
	return events.OddsUpdate{EventID: id, Odds: events.Odds{Home: 2, Draw: 3, Away: 4}}, nil
}

type okPlacer struct{}

func (okPlacer) CreateBets(context.Context, betslip.BetBatch) error { return nil }

func newManager() (*Manager, *int) {
	open := 0
	m := NewManager(func(userID string, n betslip.Notifier) *betslip.Engine {
		return betslip.NewEngine(betslip.Config{UserID: userID}, betslip.Deps{
			Fetcher:  staticFetcher{},
			Placer:   okPlacer{},
			Notifier: n,
			Log:      zap.NewNop(),
		})
	}, zap.NewNop())
	m.OnOpen = func() { open++ }
	m.OnClose = func() { open-- }
	return m, &open
}

func TestManagerLifecycle(t *testing.T) {
	m, open := newManager()

	a := m.GetOrCreate("alice")
	if again := m.GetOrCreate("alice"); again != a {
		t.Error("second GetOrCreate returned a new session")
	}
	m.GetOrCreate("bob")
	if got := m.Users(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("users = %v", got)
	}
	if *open != 2 {
		t.Errorf("open = %d", *open)
	}

	if !m.Close("alice") || m.Close("alice") {
		t.Error("close should succeed once")
	}
	if _, ok := m.Get("alice"); ok {
		t.Error("alice still open")
	}
	m.CloseAll()
	if *open != 0 || len(m.Users()) != 0 {
		t.Errorf("open = %d users = %v", *open, m.Users())
	}
}

func TestManagerSweepKeepsNonEmptySlips(t *testing.T) {
	m, _ := newManager()
	defer m.CloseAll()

	m.GetOrCreate("idle")
	busy := m.GetOrCreate("busy")
	if _, err := busy.Engine.Store.Add(events.OddsUpdate{EventID: "E1", Odds: events.Odds{Home: 2}}, betslip.HomeWin); err != nil {
		t.Fatal(err)
	}

	if n := m.Sweep(time.Hour); n != 0 {
		t.Fatalf("swept %d fresh sessions", n)
	}
	time.Sleep(5 * time.Millisecond)
	if n := m.Sweep(time.Millisecond); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if got := m.Users(); len(got) != 1 || got[0] != "busy" {
		t.Errorf("users = %v", got)
	}
}

func TestSnackbarKeepsLatest(t *testing.T) {
	s := NewSnackbar(zap.NewNop())
	if _, ok := s.Latest(); ok {
		t.Fatal("unexpected notification")
	}
	s.Notify(context.Background(), betslip.Notification{Severity: betslip.SeverityError, Message: betslip.MsgUnidentifiedError})
	s.Notify(context.Background(), betslip.Notification{Severity: betslip.SeveritySuccess, Message: betslip.MsgBetsPlaced})
	n, ok := s.Latest()
	if !ok || n.Message != betslip.MsgBetsPlaced {
		t.Errorf("latest = %+v", n)
	}
	s.Dismiss()
	if _, ok := s.Latest(); ok {
		t.Error("dismiss did not clear")
	}
}
