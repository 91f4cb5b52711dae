package network

import (
	"sync"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
)

// ZigbeeTopic carries frames handed to the simulated Zigbee radio.
const ZigbeeTopic = "zigbee/tx"

// Sender publishes raw bytes to a topic. *broker.Publisher satisfies it.
type Sender interface {
	Publish(topic string, payload []byte) error
}

// Zigbee records the last frame sent and forwards it to the bus when one is wired.
type Zigbee struct {
	mu   sync.Mutex
	last string
	out  Sender
	log  *zap.Logger
}

func NewZigbee(out Sender, logger *zap.Logger) *Zigbee {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Zigbee{out: out, log: logger}
}

func (z *Zigbee) Send(payload string) error {
	if payload == "" {
		return model.Invalid("payload is required")
	}
	z.mu.Lock()
	z.last = payload
	z.mu.Unlock()

	if z.out == nil {
		return nil
	}
	// the radio is simulated; a bus error does not fail the send
	if err := z.out.Publish(ZigbeeTopic, []byte(payload)); err != nil {
		z.log.Warn("zigbee forward failed", zap.Error(err))
	}
	return nil
}

func (z *Zigbee) LastPayload() string {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.last
}
