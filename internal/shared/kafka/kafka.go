package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

type Writer = kafka.Writer

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // mesma chave (eventId) -> mesma partição
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// NewReader cria o reader do tópico. Sem groupID não há commit de offset
// e a leitura começa no fim do tópico: cada instância só quer snapshots novos.
func NewReader(brokers []string, topic string, groupID string) *kafka.Reader {
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	}
	if groupID == "" {
		cfg.StartOffset = kafka.LastOffset
	} else {
		cfg.CommitInterval = time.Second
	}
	return kafka.NewReader(cfg)
}

// Ping tenta abrir conexão com algum broker (healthz)
func Ping(ctx context.Context, brokers []string) error {
	err := errors.New("no kafka brokers configured")
	for _, b := range brokers {
		conn, derr := kafka.DialContext(ctx, "tcp", b)
		if derr == nil {
			return conn.Close()
		}
		err = derr
	}
	return err
}
