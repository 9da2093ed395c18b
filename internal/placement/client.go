package placement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/radieske/betslip-service/internal/betslip"
	"github.com/radieske/betslip-service/internal/placement/dto"
)

const Market1x2 = "1x2"

// Client envia o slip ao bet-service em uma única chamada (POST /bets/batch)
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// CreateBets é tudo ou nada: qualquer status fora de 2xx rejeita o lote inteiro
func (c *Client) CreateBets(ctx context.Context, batch betslip.BetBatch) error {
	body, err := json.Marshal(toRequest(batch))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/bets/batch", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", batch.ClientRef)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	return decodeError(res)
}

func toRequest(b betslip.BetBatch) dto.PlaceBetsRequest {
	out := dto.PlaceBetsRequest{
		UserID:    b.UserID,
		ClientRef: b.ClientRef,
		Bets:      make([]dto.PlaceBetItem, 0, len(b.Bets)),
	}
	for _, r := range b.Bets {
		out.Bets = append(out.Bets, dto.PlaceBetItem{
			EventID:    r.EventID,
			Market:     Market1x2,
			Selection:  r.Outcome.Selection(),
			StakeCents: r.AmountCents,
			OddValue:   r.Odds.InexactFloat64(),
		})
	}
	return out
}

// decodeError aceita {"error","code"} ou texto puro
func decodeError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	var er dto.ErrorResponse
	if json.Unmarshal(raw, &er) == nil && (er.Error != "" || er.Code != "") {
		msg = er.Error
		if er.Code != "" {
			msg = er.Code + ": " + er.Error
		}
	}
	if strings.Contains(msg, "InsufficientFunds") || res.StatusCode == http.StatusPaymentRequired {
		return fmt.Errorf("bet service http %d: %w (%s)", res.StatusCode, betslip.ErrInsufficientFunds, msg)
	}
	return fmt.Errorf("bet service http %d: %s", res.StatusCode, msg)
}
