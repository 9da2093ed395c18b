package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/radieske/betslip-service/pkg/contracts/events"
)

// Client busca o snapshot de um evento no odds-service (GET /v1/events/{id}).
// Limiter limita a taxa de consultas somando todos os slips do processo.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

// New cria o client. rps <= 0 desliga o rate limit.
func New(base string, rps float64) *Client {
	lim := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: 2 * time.Second},
		Limiter: lim,
	}
}

func (c *Client) FetchEvent(ctx context.Context, eventID string) (events.OddsUpdate, error) {
	var out events.OddsUpdate
	if err := c.Limiter.Wait(ctx); err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/events/"+url.PathEscape(eventID), nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return out, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return out, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	case res.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return out, fmt.Errorf("odds event http %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode event %s: %w", eventID, err)
	}
	if out.EventID == "" {
		out.EventID = eventID
	}
	return out, nil
}
