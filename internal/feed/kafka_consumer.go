package feed

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader é o subconjunto de *kafka.Reader usado pelo consumer
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// KafkaConsumer lê o tópico de odds e repassa cada snapshot ao Hub.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type KafkaConsumer struct {
	Log    *zap.Logger
	Reader MessageReader
	Hub    *Hub

	Backoff time.Duration // espera após erro de leitura; default 500ms

	OnConsumed func()       // métricas (counter++)
	OnError    func(string) // métricas por fase
}

// Run inicia o loop de consumo; retorna quando ctx termina
func (c *KafkaConsumer) Run(ctx context.Context) error {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka read failed", zap.Error(err))
			if c.OnError != nil {
				c.OnError("read")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}

		if c.OnConsumed != nil {
			c.OnConsumed()
		}

		u, _, err := decodeUpdate(m.Value)
		if err != nil {
			c.Log.Warn("invalid message", zap.Error(err), zap.ByteString("key", m.Key))
			if c.OnError != nil {
				c.OnError("decode")
			}
			continue
		}
		c.Hub.Broadcast(u)
	}
}
