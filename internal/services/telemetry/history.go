package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

// DosingRecord is one completed run as served by /api/dosing/history.
type DosingRecord struct {
	RunID       string  `json:"runId"`
	MotorID     int     `json:"motorId"`
	RequestedMl float64 `json:"requestedMl"`
	Reverse     bool    `json:"reverse"`
	Status      string  `json:"status"`
	Time        string  `json:"time"` // RFC3339
}

func recordOf(evt messages.DosingResultEvent) DosingRecord {
	return DosingRecord{
		RunID:       evt.RunID,
		MotorID:     evt.MotorID,
		RequestedMl: evt.RequestedMl,
		Reverse:     evt.Reverse,
		Status:      evt.Status,
		Time:        evt.Timestamp.UTC().Format(time.RFC3339),
	}
}

// History keeps the last completed runs in memory.
type History struct {
	mu   sync.RWMutex
	buf  []DosingRecord
	size int
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = 100
	}
	return &History{size: size}
}

func (h *History) Add(evt messages.DosingResultEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf = append(h.buf, recordOf(evt))
	if len(h.buf) > h.size {
		h.buf = h.buf[len(h.buf)-h.size:]
	}
}

// Recent returns up to limit records, newest first.
func (h *History) Recent(limit int) []DosingRecord {
	if h == nil {
		return []DosingRecord{}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := min(limit, len(h.buf))
	out := make([]DosingRecord, 0, n)
	for i := len(h.buf) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.buf[i])
	}
	return out
}

// InfluxHistory reads completed runs back from the dosing_result measurement.
type InfluxHistory struct {
	query  api.QueryAPI
	bucket string
}

func NewInfluxHistory(q api.QueryAPI, bucket string) *InfluxHistory {
	return &InfluxHistory{query: q, bucket: bucket}
}

func buildHistoryFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> keep(columns: ["_time", "motor_id", "status", "run_id", "requested_ml", "reverse"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n: %d)
`, bucket, minutes, resultMeasurement, limit)
}

func (h *InfluxHistory) Recent(ctx context.Context, minutes, limit int) ([]DosingRecord, error) {
	res, err := h.query.Query(ctx, buildHistoryFlux(h.bucket, minutes, limit))
	if err != nil {
		return nil, fmt.Errorf("influx history query: %w", err)
	}
	defer res.Close()

	out := make([]DosingRecord, 0, limit)
	for res.Next() {
		rec := res.Record()
		r := DosingRecord{Time: rec.Time().UTC().Format(time.RFC3339)}
		if v, ok := rec.ValueByKey("motor_id").(string); ok {
			r.MotorID, _ = strconv.Atoi(v)
		}
		r.Status, _ = rec.ValueByKey("status").(string)
		r.RunID, _ = rec.ValueByKey("run_id").(string)
		r.Reverse, _ = rec.ValueByKey("reverse").(bool)
		switch v := rec.ValueByKey("requested_ml").(type) {
		case float64:
			r.RequestedMl = v
		case int64:
			r.RequestedMl = float64(v)
		}
		out = append(out, r)
	}
	if err := res.Err(); err != nil {
		return out, fmt.Errorf("influx history iterate: %w", err)
	}
	return out, nil
}
