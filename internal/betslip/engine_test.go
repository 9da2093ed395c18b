package betslip

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestEngineLifecycle(t *testing.T) {
	f := newFakeFetcher()
	f.set(ev("E1", 2.5, 3, 3.2, 1))
	feed := newFakeFeed()
	p := &fakePlacer{}
	n := &recordingNotifier{}

	e := NewEngine(Config{
		UserID:     "user-7",
		Reconciler: ReconcilerConfig{RetryDelay: 10 * time.Millisecond},
	}, Deps{Fetcher: f, Feed: feed, Placer: p, Notifier: n, Log: zap.NewNop()})
	defer e.Close()

	v := e.View()
	if v.CanSubmit || v.Blocker != ErrEmptySlip.Error() {
		t.Fatalf("empty view = %+v", v)
	}

	if _, err := e.Store.Add(ev("E1", 2.5, 3, 3.2, 1), HomeWin); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "feed subscription", func() bool { return feed.active("E1") == 1 })
	if v := e.View(); !v.CanSubmit || !v.IsValid {
		t.Fatalf("view = %+v", v)
	}

	feed.push(ev("E1", 2.75, 3, 3.2, 2))
	waitFor(t, "stale view", func() bool { return !e.View().IsValid })
	v = e.View()
	if v.CanSubmit {
		t.Error("stale slip must not be submittable")
	}
	if err := e.Gate.Check(); !errors.Is(err, ErrStaleOdds) {
		t.Errorf("Check = %v", err)
	}

	e.Gate.AcceptCurrentOdds()
	if st := e.Gate.Submit(context.Background()); st.Phase != PhaseSucceeded {
		t.Fatalf("submit = %+v", st)
	}
	if p.batches[0].UserID != "user-7" {
		t.Errorf("user = %q", p.batches[0].UserID)
	}

	v = e.View()
	if len(v.Bets) != 0 || v.Submission.Phase != PhaseSucceeded {
		t.Errorf("after submit view = %+v", v)
	}
	waitFor(t, "teardown", func() bool { return feed.active("E1") == 0 })
}
