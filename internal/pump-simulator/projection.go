package pump_simulator

import (
	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

// resolveMotor applies the default to an unset id and checks the range
// against the current expansion configuration.
func (s *physicalState) resolveMotor(ref messages.MotorID, def int) (int, error) {
	if !ref.Set {
		return def, nil
	}
	if !ref.Valid || ref.Value < 0 || ref.Value >= s.activeMotorCount() {
		return 0, model.ErrInvalidMotorID
	}
	return ref.Value, nil
}

func (s *physicalState) expansionState() messages.ExpansionState {
	st := messages.ExpansionState{
		Enabled:    s.expansion.Enabled,
		Interface:  s.expansion.Interface,
		MotorCount: s.expansion.MotorCount,
		Connected:  s.expansion.Enabled,
	}
	if st.Connected {
		st.Address = entities.ExpansionAddress
	}
	return st
}

// motorState renders the shared physical record for one slot.
func (s *physicalState) motorState(motorID int) messages.MotorState {
	flow := s.flowMlPerMin(s.currentSpeed)
	target := s.flowMlPerMin(s.targetSpeed)
	direction := "forward"
	if s.targetSpeed < 0 {
		direction = "reverse"
	}
	ms := messages.MotorState{
		MotorID:           motorID,
		Mode:              int(s.mode),
		ModeName:          s.mode.String(),
		Running:           s.running,
		SpeedRpm:          s.currentSpeed,
		TargetSpeedRpm:    s.targetSpeed,
		FlowMlMin:         flow,
		FlowLph:           toLph(flow),
		TargetFlowMlMin:   target,
		TargetFlowLph:     toLph(target),
		DosingFlowLph:     s.dosingFlowLph(),
		Direction:         direction,
		PreferredReverse:  s.targetSpeed < 0,
		MlPerRevCw:        s.mlPerRevCw,
		MlPerRevCcw:       s.mlPerRevCcw,
		DosingRemainingMl: s.dosingRemainingMl,
		UptimeSec:         s.uptimeSec,
		TotalPumpedL:      s.totalPumpedL,
		TotalHoseL:        s.totalHoseL,
	}
	if s.run != nil {
		ms.DosingRunID = s.run.id
	}
	return ms
}

// snapshot projects the state onto every active motor slot. All slots carry
// the same values; only the id differs.
func (s *physicalState) snapshot(motorID int) messages.Snapshot {
	n := s.activeMotorCount()
	base := s.motorState(motorID)
	motors := make([]messages.MotorState, n)
	for i := range motors {
		m := base
		m.MotorID = i
		motors[i] = m
	}
	return messages.Snapshot{
		MotorState:       base,
		Firmware:         FirmwareVersion,
		SelectedMotorID:  s.selectedMotorID,
		ActiveMotorCount: n,
		Expansion:        s.expansionState(),
		Motors:           motors,
	}
}
