package pump_simulator

import (
	"strings"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

// Execute runs a transport-neutral command against the engine.
func (e *Engine) Execute(cmd messages.PumpCommand) (messages.Snapshot, error) {
	switch strings.ToLower(strings.TrimSpace(cmd.Cmd)) {
	case messages.CmdStart:
		return e.StartMotor(cmd.MotorID)
	case messages.CmdStop:
		return e.StopMotor(cmd.MotorID, cmd.Emergency)
	case messages.CmdFlow:
		if cmd.LitersPerHour == nil {
			return messages.Snapshot{}, model.Invalid("litersPerHour is required")
		}
		return e.SetFlow(cmd.MotorID, *cmd.LitersPerHour, cmd.Reverse)
	case messages.CmdDosing:
		if cmd.VolumeMl == nil {
			return messages.Snapshot{}, model.Invalid("volumeMl is required")
		}
		return e.StartDosing(cmd.MotorID, *cmd.VolumeMl, cmd.Reverse)
	case messages.CmdCalibrationRun:
		dir, ok := entities.ParseDirection(cmd.Direction)
		if !ok {
			return messages.Snapshot{}, model.Invalid("direction is required (cw/ccw)")
		}
		revs := float64(DefaultCalibrationRevolutions)
		if cmd.Revolutions != nil {
			revs = *cmd.Revolutions
		}
		return e.CalibrationRun(cmd.MotorID, dir, revs)
	case messages.CmdCalibrationApply:
		dir, ok := entities.ParseDirection(cmd.Direction)
		if !ok {
			return messages.Snapshot{}, model.Invalid("direction is required (cw/ccw)")
		}
		measured, revs := -1.0, -1.0
		if cmd.MeasuredMl != nil {
			measured = *cmd.MeasuredMl
		}
		if cmd.Revolutions != nil {
			revs = *cmd.Revolutions
		}
		return e.CalibrationApply(cmd.MotorID, dir, measured, revs)
	case messages.CmdSelect:
		return e.SelectMotor(cmd.MotorID)
	}
	return messages.Snapshot{}, model.Invalid("unknown cmd %q", cmd.Cmd)
}
