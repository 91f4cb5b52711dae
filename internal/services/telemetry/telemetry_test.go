package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
	"github.com/LeonardoBeccarini/pump_simulator/pkg/dedup"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs map[string][][]byte
	err  error
}

func newFakeSender() *fakeSender { return &fakeSender{msgs: map[string][][]byte{}} }

func (f *fakeSender) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs[topic] = append(f.msgs[topic], payload)
	return nil
}

func (f *fakeSender) PublishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return f.Publish(topic, b)
}

func (f *fakeSender) get(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[topic]
}

type fakePointWriter struct {
	mu     sync.Mutex
	points []*write.Point
	errs   chan error
}

func newFakePointWriter() *fakePointWriter { return &fakePointWriter{errs: make(chan error, 1)} }

func (f *fakePointWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}
func (f *fakePointWriter) Errors() <-chan error { return f.errs }
func (f *fakePointWriter) Flush()               {}

func TestStateToPoint(t *testing.T) {
	e := pumpsim.NewEngine(pumpsim.Config{})
	snap, err := e.SetFlow(messages.MotorID{}, 6, true)
	require.NoError(t, err)

	line := write.PointToLineProtocol(StateToPoint(snap, time.Unix(10, 0)), time.Second)
	assert.Contains(t, line, "pump_state,")
	assert.Contains(t, line, "direction=reverse")
	assert.Contains(t, line, "motor_id=0")
	assert.Contains(t, line, "running=true")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), " 10"), line)
}

func TestResultToPoint(t *testing.T) {
	start := time.Unix(100, 0)
	line := write.PointToLineProtocol(ResultToPoint(messages.DosingResultEvent{
		RunID: "r1", MotorID: 2, RequestedMl: 5, Status: "OK", StartedAt: start, Timestamp: start.Add(4 * time.Second),
	}), time.Second)
	assert.Contains(t, line, "dosing_result,")
	assert.Contains(t, line, "motor_id=2")
	assert.Contains(t, line, "duration_sec=4")
	assert.Contains(t, line, `run_id="r1"`)
}

func TestReporter_ReportState(t *testing.T) {
	e := pumpsim.NewEngine(pumpsim.Config{})
	_, err := e.StartMotor(messages.MotorID{})
	require.NoError(t, err)

	out := newFakeSender()
	pw := newFakePointWriter()
	w := NewWriter(pw, nil)
	r := NewReporter(e, out, w, nil, time.Second, nil)

	r.ReportState(time.Now())

	msgs := out.get(StateTopic)
	require.Len(t, msgs, 1)
	var snap messages.Snapshot
	require.NoError(t, json.Unmarshal(msgs[0], &snap))
	assert.True(t, snap.Running)
	assert.Equal(t, int64(1), w.Count(stateMeasurement))
	assert.Equal(t, int64(1), r.Published())

	out.err = errors.New("broker down")
	r.ReportState(time.Now())
	assert.Equal(t, int64(1), r.Failed())
	assert.Equal(t, int64(2), w.Count(stateMeasurement), "influx is written even when mqtt fails")
}

func TestReporter_WithoutSinks(t *testing.T) {
	r := NewReporter(pumpsim.NewEngine(pumpsim.Config{}), nil, nil, nil, 0, nil)
	r.ReportState(time.Now())
	r.ReportDosingResult(messages.DosingResultEvent{RunID: "x"})
	assert.Zero(t, r.Published())
}

func TestReporter_DosingResultFromEngine(t *testing.T) {
	e := pumpsim.NewEngine(pumpsim.Config{
		TickInterval: time.Millisecond,
		Expansion:    entities.Expansion{Enabled: true, MotorCount: 1},
	})
	out := newFakeSender()
	hist := NewHistory(10)
	r := NewReporter(e, out, nil, hist, time.Second, nil)
	e.OnDosingComplete(r.ReportDosingResult)

	snap, err := e.StartDosing(messages.Motor(1), 0.2, false)
	require.NoError(t, err)

	e.Start(context.Background())
	defer e.Stop()

	require.Eventually(t, func() bool { return len(out.get("event/dosingResult/1")) == 1 }, 5*time.Second, 10*time.Millisecond)
	var evt messages.DosingResultEvent
	require.NoError(t, json.Unmarshal(out.get("event/dosingResult/1")[0], &evt))
	assert.Equal(t, snap.DosingRunID, evt.RunID)
	assert.Equal(t, 0.2, evt.RequestedMl)
	assert.Equal(t, "OK", evt.Status)

	recent := hist.Recent(5)
	require.Len(t, recent, 1)
	assert.Equal(t, evt.RunID, recent[0].RunID)
	assert.Equal(t, 1, recent[0].MotorID)
}

func TestHistory_RecentNewestFirst(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(messages.DosingResultEvent{RunID: string(rune('a' + i)), Timestamp: time.Unix(int64(i), 0)})
	}
	recent := h.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "e", recent[0].RunID)
	assert.Equal(t, "c", recent[2].RunID)
	assert.Len(t, h.Recent(1), 1)
}

func TestBuildHistoryFlux(t *testing.T) {
	q := buildHistoryFlux("pump", 60, 20)
	assert.Contains(t, q, `from(bucket: "pump")`)
	assert.Contains(t, q, "range(start: -60m)")
	assert.Contains(t, q, `r._measurement == "dosing_result"`)
	assert.Contains(t, q, "limit(n: 20)")
}

func TestWriter_TracksErrors(t *testing.T) {
	pw := newFakePointWriter()
	w := NewWriter(pw, nil)
	assert.Greater(t, w.LastErrorAge(), time.Hour)

	pw.errs <- errors.New("write failed")
	require.Eventually(t, func() bool { return w.LastErrorAge() < time.Minute }, time.Second, 5*time.Millisecond)

	var nilWriter *Writer
	assert.Greater(t, nilWriter.LastErrorAge(), time.Hour)
	assert.Zero(t, nilWriter.Count(stateMeasurement))
}

func TestCommandHandler(t *testing.T) {
	e := pumpsim.NewEngine(pumpsim.Config{})
	h := NewCommandHandler(e, dedup.New(time.Minute, 0), nil)

	require.Error(t, h.Handle(CommandTopic, []byte("{")))

	cmd := []byte(`{"requestId":"r-1","cmd":"flow","litersPerHour":6,"reverse":true}`)
	require.NoError(t, h.Handle(CommandTopic, cmd))
	require.NoError(t, h.Handle(CommandTopic, cmd))
	assert.Equal(t, int64(1), h.Applied(), "redelivery is dropped")

	st, err := e.State(messages.MotorID{})
	require.NoError(t, err)
	assert.Equal(t, "reverse", st.Direction)

	// unstamped commands always run
	require.NoError(t, h.Handle(CommandTopic, []byte(`{"cmd":"stop"}`)))
	require.NoError(t, h.Handle(CommandTopic, []byte(`{"cmd":"stop"}`)))
	assert.Equal(t, int64(3), h.Applied())

	// a rejected command can be retried with the same id
	bad := []byte(`{"requestId":"r-2","cmd":"dosing","motorId":true,"volumeMl":5}`)
	err = h.Handle(CommandTopic, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid motorId")
	err = h.Handle(CommandTopic, bad)
	require.Error(t, err)
	assert.Equal(t, int64(3), h.Rejected())
}
