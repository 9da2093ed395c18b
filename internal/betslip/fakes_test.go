package betslip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/betslip-service/pkg/contracts/events"
)

func ev(id string, home, away, draw float64, version int, status ...events.MarketState) events.OddsUpdate {
	return events.OddsUpdate{
		EventID:      id,
		HomeTeam:     "Flamengo",
		AwayTeam:     "Palmeiras",
		Market:       "1x2",
		Odds:         events.Odds{Home: home, Away: away, Draw: draw},
		MarketStatus: status,
		Version:      version,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

type fakeFetcher struct {
	mu     sync.Mutex
	events map[string]events.OddsUpdate
	errs   map[string]error
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		events: make(map[string]events.OddsUpdate),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeFetcher) set(u events.OddsUpdate) {
	f.mu.Lock()
	f.events[u.EventID] = u
	delete(f.errs, u.EventID)
	f.mu.Unlock()
}

func (f *fakeFetcher) fail(id string, err error) {
	f.mu.Lock()
	f.errs[id] = err
	f.mu.Unlock()
}

func (f *fakeFetcher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeFetcher) FetchEvent(_ context.Context, id string) (events.OddsUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err, ok := f.errs[id]; ok {
		return events.OddsUpdate{}, err
	}
	u, ok := f.events[id]
	if !ok {
		return events.OddsUpdate{}, ErrEventNotFound
	}
	return u, nil
}

type fakeFeed struct {
	mu    sync.Mutex
	subs  map[string][]chan events.OddsUpdate
	calls map[string]int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		subs:  make(map[string][]chan events.OddsUpdate),
		calls: make(map[string]int),
	}
}

func (f *fakeFeed) Subscribe(ctx context.Context, id string) (<-chan events.OddsUpdate, error) {
	ch := make(chan events.OddsUpdate, 16)
	f.mu.Lock()
	f.subs[id] = append(f.subs[id], ch)
	f.calls[id]++
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		list := f.subs[id]
		for i, c := range list {
			if c == ch {
				f.subs[id] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(f.subs[id]) == 0 {
			delete(f.subs, id)
		}
		close(ch)
		f.mu.Unlock()
	}()
	return ch, nil
}

func (f *fakeFeed) push(u events.OddsUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[u.EventID] {
		ch <- u
	}
}

func (f *fakeFeed) active(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[id])
}

func (f *fakeFeed) subscribeCalls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type fakePlacer struct {
	mu      sync.Mutex
	err     error
	batches []BetBatch
	started chan struct{}
	release chan struct{}
}

func (p *fakePlacer) CreateBets(ctx context.Context, b BetBatch) error {
	p.mu.Lock()
	p.batches = append(p.batches, b)
	started, release, err := p.started, p.release, p.err
	p.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (p *fakePlacer) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, x Notification) {
	n.mu.Lock()
	n.got = append(n.got, x)
	n.mu.Unlock()
}

func (n *recordingNotifier) last() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.got) == 0 {
		return Notification{}, false
	}
	return n.got[len(n.got)-1], true
}

var errNetwork = errors.New("dial tcp: connection refused")
