package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
)

const (
	StateTopic        = "pump/state"
	resultTopicFormat = "event/dosingResult/%d"
)

// Sender publishes raw bytes to a topic. *broker.Publisher satisfies it.
type Sender interface {
	Publish(topic string, payload []byte) error
	PublishJSON(topic string, v any) error
}

// Reporter pushes pump state and dosing results to MQTT and InfluxDB.
// Either sink may be nil.
type Reporter struct {
	engine   *pumpsim.Engine
	mqtt     Sender
	influx   *Writer
	history  *History
	interval time.Duration
	log      *zap.Logger

	published atomic.Int64
	failed    atomic.Int64
}

func NewReporter(engine *pumpsim.Engine, mqtt Sender, influx *Writer, history *History, interval time.Duration, logger *zap.Logger) *Reporter {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{engine: engine, mqtt: mqtt, influx: influx, history: history, interval: interval, log: logger}
}

// Run reports the state every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.influx.Flush()
			return
		case now := <-t.C:
			r.ReportState(now)
		}
	}
}

// ReportState publishes the snapshot of the selected motor.
func (r *Reporter) ReportState(now time.Time) {
	snap, err := r.engine.State(messages.MotorID{})
	if err != nil {
		r.log.Error("state snapshot failed", zap.Error(err))
		return
	}
	if r.mqtt != nil {
		r.count(r.mqtt.PublishJSON(StateTopic, snap), StateTopic)
	}
	r.influx.write(stateMeasurement, StateToPoint(snap, now))
}

// ReportDosingResult is registered as the engine dosing hook.
func (r *Reporter) ReportDosingResult(evt messages.DosingResultEvent) {
	r.history.Add(evt)
	if r.mqtt != nil {
		topic := fmt.Sprintf(resultTopicFormat, evt.MotorID)
		r.count(r.mqtt.PublishJSON(topic, evt), topic)
	}
	r.influx.write(resultMeasurement, ResultToPoint(evt))
}

func (r *Reporter) count(err error, topic string) {
	if err != nil {
		r.failed.Add(1)
		r.log.Warn("telemetry publish failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	r.published.Add(1)
}

// Published and Failed count MQTT publishes since start.
func (r *Reporter) Published() int64 { return r.published.Load() }
func (r *Reporter) Failed() int64    { return r.failed.Load() }
