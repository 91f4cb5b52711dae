package telemetry

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
	"github.com/LeonardoBeccarini/pump_simulator/pkg/dedup"
)

// CommandTopic receives PumpCommand messages.
const CommandTopic = "pump/command"

// CommandHandler applies commands received from the bus to the engine.
type CommandHandler struct {
	engine *pumpsim.Engine
	seen   *dedup.Window
	log    *zap.Logger

	applied  atomic.Int64
	rejected atomic.Int64
}

func NewCommandHandler(engine *pumpsim.Engine, seen *dedup.Window, logger *zap.Logger) *CommandHandler {
	if seen == nil {
		seen = dedup.New(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{engine: engine, seen: seen, log: logger}
}

// Handle matches broker.Handler. Redelivered commands are dropped silently; a
// command the engine rejects is returned as an error so the subscriber logs it.
func (h *CommandHandler) Handle(topic string, payload []byte) error {
	var cmd messages.PumpCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		h.rejected.Add(1)
		return fmt.Errorf("decode command: %w", err)
	}

	// only stamped commands are deduplicated: a bare "stop" sent twice is intentional
	if !h.seen.First(cmd.RequestID) {
		h.log.Debug("duplicate command dropped", zap.String("topic", topic), zap.String("request_id", cmd.RequestID))
		return nil
	}

	snap, err := h.engine.Execute(cmd)
	if err != nil {
		h.rejected.Add(1)
		h.seen.Forget(cmd.RequestID)
		return fmt.Errorf("command %s: %w", cmd.Cmd, err)
	}
	h.applied.Add(1)
	h.log.Info("command applied",
		zap.String("cmd", cmd.Cmd),
		zap.String("request_id", cmd.RequestID),
		zap.Int("motor_id", snap.MotorID),
		zap.Bool("running", snap.Running),
		zap.Float64("target_flow_lph", snap.TargetFlowLph))
	return nil
}

func (h *CommandHandler) Applied() int64  { return h.applied.Load() }
func (h *CommandHandler) Rejected() int64 { return h.rejected.Load() }
