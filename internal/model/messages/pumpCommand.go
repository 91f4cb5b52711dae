package messages

// Command names accepted by PumpCommand.Cmd.
const (
	CmdStart            = "start"
	CmdStop             = "stop"
	CmdFlow             = "flow"
	CmdDosing           = "dosing"
	CmdCalibrationRun   = "calibration_run"
	CmdCalibrationApply = "calibration_apply"
	CmdSelect           = "select"
)

// PumpCommand is a transport-neutral command, received on the MQTT command
// topic or through the gRPC Execute call. Optional fields follow the HTTP
// request bodies of the same operation.
type PumpCommand struct {
	RequestID     string   `json:"requestId,omitempty"`
	Cmd           string   `json:"cmd"`
	MotorID       MotorID  `json:"motorId"`
	LitersPerHour *float64 `json:"litersPerHour,omitempty"`
	VolumeMl      *float64 `json:"volumeMl,omitempty"`
	Reverse       bool     `json:"reverse,omitempty"`
	Direction     string   `json:"direction,omitempty"`
	Revolutions   *float64 `json:"revolutions,omitempty"`
	MeasuredMl    *float64 `json:"measuredMl,omitempty"`
	Emergency     bool     `json:"emergency,omitempty"`
}
