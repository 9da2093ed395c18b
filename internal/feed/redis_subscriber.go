package feed

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/betslip-service/pkg/contracts/topics"
)

// RedisSubscriber escuta o canal Redis Pub/Sub de broadcast de odds
// e repassa as atualizações para o Hub.
type RedisSubscriber struct {
	Client  *redis.Client
	Channel string // default topics.OddsBroadcast
	Hub     *Hub
	Log     *zap.Logger

	OnReceived func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run bloqueia até ctx terminar ou a inscrição ser encerrada pelo servidor
func (s *RedisSubscriber) Run(ctx context.Context) error {
	channel := s.Channel
	if channel == "" {
		channel = topics.OddsBroadcast
	}
	sub := s.Client.Subscribe(ctx, channel)
	defer sub.Close()

	s.Log.Info("redis feed subscribed", zap.String("channel", channel))
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis pubsub channel closed")
			}
			s.handle([]byte(msg.Payload))
		}
	}
}

func (s *RedisSubscriber) handle(payload []byte) {
	if s.OnReceived != nil {
		s.OnReceived()
	}
	u, ok, err := decodeEnvelope(payload)
	if err != nil {
		s.Log.Warn("redis feed invalid message", zap.Error(err))
		if s.OnError != nil {
			s.OnError("decode")
		}
		return
	}
	if ok {
		s.Hub.Broadcast(u)
	}
}
