package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBetslipHooks(t *testing.T) {
	m := NewBetslip(prometheus.NewRegistry())

	rh := m.ReconcilerHooks()
	rh.OnSubscribe("E1")
	rh.OnSubscribe("E2")
	rh.OnUnsubscribe("E1")
	rh.OnApplied("E2")
	rh.OnError("fetch")
	m.GateHooks().OnSubmit("insufficient_funds")
	m.FeedReceived("kafka")()
	m.FeedError("ws")("decode")

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"subscriptions", m.Subscriptions, 1},
		{"applied", m.Applied, 1},
		{"fetch errors", m.Errors.WithLabelValues("fetch"), 1},
		{"ws decode errors", m.Errors.WithLabelValues("ws_decode"), 1},
		{"submits", m.Submits.WithLabelValues("insufficient_funds"), 1},
		{"kafka messages", m.FeedMessages.WithLabelValues("kafka"), 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestHandlerHealthz(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewBetslip(reg)

	healthy := true
	h := Handler(reg, map[string]HealthFunc{
		"redis": func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("connection refused")
		},
	})

	get := func(path string) (int, string) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		b, _ := io.ReadAll(rec.Body)
		return rec.Code, string(b)
	}

	if code, body := get("/healthz"); code != http.StatusOK || body != "ok" {
		t.Errorf("healthz = %d %q", code, body)
	}
	healthy = false
	if code, body := get("/healthz"); code != http.StatusServiceUnavailable || !strings.HasPrefix(body, "redis unhealthy") {
		t.Errorf("healthz = %d %q", code, body)
	}
	if code, body := get("/metrics"); code != http.StatusOK || !strings.Contains(body, "betslip_sessions_open") {
		t.Errorf("metrics = %d", code)
	}
}
