package broker

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// QoSFor returns the delivery guarantee used for a topic: commands and
// dosing results are at-least-once, periodic telemetry is fire and forget.
func QoSFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "pump/command") || strings.HasPrefix(t, "event/dosingResult") {
		return 1
	}
	return 0
}

// retainedFor reports whether the broker keeps the last message of topic.
func retainedFor(topic string) bool {
	return strings.HasPrefix(strings.TrimSpace(topic), "pump/state")
}

type Publisher struct {
	client  mqtt.Client
	log     *zap.Logger
	timeout time.Duration
}

func NewPublisher(client mqtt.Client, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{client: client, log: log, timeout: 5 * time.Second}
}

func (p *Publisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, QoSFor(topic), retainedFor(topic), payload)
	if err := wait(token, p.timeout); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.Debug("published", zap.String("topic", topic), zap.Int("bytes", len(payload)))
	return nil
}

func (p *Publisher) PublishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	return p.Publish(topic, b)
}
