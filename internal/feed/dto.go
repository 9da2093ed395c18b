package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radieske/betslip-service/pkg/contracts/events"
)

// ClientMsg é o frame enviado ao /ws do odds-service
// Type: subscribe | unsubscribe | ping
type ClientMsg struct {
	Type    string `json:"type"`
	EventID string `json:"eventId,omitempty"`
}

// Envelope é o payload de broadcast usado no Redis Pub/Sub e no /ws
type Envelope struct {
	EventID string          `json:"eventId"`
	Payload json.RawMessage `json:"payload"`
}

var (
	errMissingEvent = errors.New("update without event id")
	errEmptyPayload = errors.New("envelope without payload")
)

// decodeEnvelope aceita {eventId, payload} ou o OddsUpdate direto.
// Frames de controle (ex.: pong) retornam ok=false sem erro.
func decodeEnvelope(b []byte) (u events.OddsUpdate, ok bool, err error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return u, false, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, &u); err != nil {
			return u, false, fmt.Errorf("decode payload: %w", err)
		}
		if u.EventID == "" {
			u.EventID = env.EventID
		}
		if u.EventID == "" {
			return u, false, errMissingEvent
		}
		return u, true, nil
	}
	if env.EventID != "" {
		return u, false, errEmptyPayload
	}

	var ctl ClientMsg
	if err := json.Unmarshal(b, &ctl); err == nil && ctl.Type != "" {
		return u, false, nil
	}
	return decodeUpdate(b)
}

func decodeUpdate(b []byte) (events.OddsUpdate, bool, error) {
	var u events.OddsUpdate
	if err := json.Unmarshal(b, &u); err != nil {
		return u, false, fmt.Errorf("decode update: %w", err)
	}
	if u.EventID == "" {
		return u, false, errMissingEvent
	}
	return u, true, nil
}
