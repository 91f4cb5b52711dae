package telemetry

import (
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

const (
	stateMeasurement  = "pump_state"
	resultMeasurement = "dosing_result"
)

// StateToPoint converte lo snapshot del motore selezionato in un punto Influx.
func StateToPoint(s messages.Snapshot, ts time.Time) *write.Point {
	tags := map[string]string{
		"motor_id":  strconv.Itoa(s.MotorID),
		"mode":      s.ModeName,
		"direction": s.Direction,
		"firmware":  s.Firmware,
	}
	fields := map[string]interface{}{
		"running":             s.Running,
		"speed_rpm":           s.SpeedRpm,
		"target_speed_rpm":    s.TargetSpeedRpm,
		"flow_lph":            s.FlowLph,
		"target_flow_lph":     s.TargetFlowLph,
		"dosing_remaining_ml": s.DosingRemainingMl,
		"total_pumped_l":      s.TotalPumpedL,
		"total_hose_l":        s.TotalHoseL,
		"uptime_sec":          s.UptimeSec,
		"active_motors":       int64(s.ActiveMotorCount),
	}
	return influxdb2.NewPoint(stateMeasurement, tags, fields, ts)
}

func ResultToPoint(evt messages.DosingResultEvent) *write.Point {
	tags := map[string]string{
		"motor_id": strconv.Itoa(evt.MotorID),
		"status":   evt.Status,
	}
	fields := map[string]interface{}{
		"run_id":       evt.RunID,
		"requested_ml": evt.RequestedMl,
		"reverse":      evt.Reverse,
		"duration_sec": evt.Timestamp.Sub(evt.StartedAt).Seconds(),
	}
	return influxdb2.NewPoint(resultMeasurement, tags, fields, evt.Timestamp)
}
