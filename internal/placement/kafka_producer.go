package placement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/radieske/betslip-service/internal/betslip"
	"github.com/radieske/betslip-service/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado pelo publisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher coloca o slip publicando um BetPlaced por aposta no tópico bet_placed.
// Todas as mensagens do lote vão em um único WriteMessages.
type KafkaPublisher struct {
	Writer MessageWriter
	now    func() time.Time
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, now: time.Now}
}

func (p *KafkaPublisher) CreateBets(ctx context.Context, batch betslip.BetBatch) error {
	ts := p.now().UnixMilli()
	msgs := make([]kafka.Message, 0, len(batch.Bets))
	for _, r := range batch.Bets {
		e := events.BetPlaced{
			BetID:       uuid.NewString(),
			UserID:      batch.UserID,
			EventID:     r.EventID,
			Market:      Market1x2,
			Selection:   r.Outcome.Selection(),
			StakeCents:  r.AmountCents,
			OddValue:    r.Odds.InexactFloat64(),
			ReservedRef: batch.ClientRef,
			TsUnixMs:    ts,
		}
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(r.EventID), Value: b})
	}
	return p.Writer.WriteMessages(ctx, msgs...)
}
