package messages

import "time"

// DosingResultEvent is emitted when the integrator completes a dosing run.
type DosingResultEvent struct {
	RunID       string    `json:"run_id"`
	MotorID     int       `json:"motor_id"`
	RequestedMl float64   `json:"requested_ml"`
	Reverse     bool      `json:"reverse"`
	Status      string    `json:"status"` // "OK"
	StartedAt   time.Time `json:"started_at"`
	Timestamp   time.Time `json:"timestamp"`
}
