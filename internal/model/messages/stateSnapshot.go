package messages

import "github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"

// ExpansionState is the expansion board as reported to clients.
type ExpansionState struct {
	Enabled    bool                        `json:"enabled"`
	Interface  entities.ExpansionInterface `json:"interface"`
	MotorCount int                         `json:"motorCount"`
	Connected  bool                        `json:"connected"`
	Address    int                         `json:"address"`
}

// MotorState is one slot of the motor array projection.
type MotorState struct {
	MotorID           int     `json:"motorId"`
	Mode              int     `json:"mode"`
	ModeName          string  `json:"modeName"`
	Running           bool    `json:"running"`
	SpeedRpm          float64 `json:"speedRpm"`
	TargetSpeedRpm    float64 `json:"targetSpeedRpm"`
	FlowMlMin         float64 `json:"flowMlMin"`
	FlowLph           float64 `json:"flowLph"`
	TargetFlowMlMin   float64 `json:"targetFlowMlMin"`
	TargetFlowLph     float64 `json:"targetFlowLph"`
	DosingFlowLph     float64 `json:"dosingFlowLph"`
	Direction         string  `json:"direction"` // "forward" | "reverse"
	PreferredReverse  bool    `json:"preferredReverse"`
	MlPerRevCw        float64 `json:"mlPerRevCw"`
	MlPerRevCcw       float64 `json:"mlPerRevCcw"`
	DosingRemainingMl float64 `json:"dosingRemainingMl"`
	DosingRunID       string  `json:"dosingRunId,omitempty"`
	UptimeSec         int64   `json:"uptimeSec"`
	TotalPumpedL      float64 `json:"totalPumpedL"`
	TotalHoseL        float64 `json:"totalHoseL"`
}

// Snapshot is a consistent read of the pump, rendered for one motor id,
// with every active slot listed in Motors.
type Snapshot struct {
	MotorState
	Firmware         string         `json:"firmware"`
	SelectedMotorID  int            `json:"selectedMotorId"`
	ActiveMotorCount int            `json:"activeMotorCount"`
	Expansion        ExpansionState `json:"expansion"`
	Motors           []MotorState   `json:"motors"`
}
