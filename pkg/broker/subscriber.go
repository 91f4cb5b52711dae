package broker

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Handler processes one message. A returned error is logged, never retried.
type Handler func(topic string, payload []byte) error

// Subscriber routes every message of its topics to a single handler.
type Subscriber struct {
	client  mqtt.Client
	topics  []string
	handler Handler
	log     *zap.Logger
}

func NewSubscriber(client mqtt.Client, topics []string, handler Handler, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{client: client, topics: topics, handler: handler, log: log}
}

// Run subscribes and blocks until ctx is cancelled, then unsubscribes.
// Topics that fail to subscribe are logged and skipped.
func (s *Subscriber) Run(ctx context.Context) {
	var active []string
	for _, topic := range s.topics {
		token := s.client.Subscribe(topic, QoSFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			if err := s.handler(msg.Topic(), msg.Payload()); err != nil {
				s.log.Warn("message rejected", zap.String("topic", msg.Topic()), zap.Error(err))
			}
		})
		if err := wait(token, 10*time.Second); err != nil {
			s.log.Error("subscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		s.log.Info("subscribed", zap.String("topic", topic))
		active = append(active, topic)
	}

	<-ctx.Done()

	if len(active) > 0 && s.client.IsConnected() {
		_ = wait(s.client.Unsubscribe(active...), time.Second)
	}
}
