package pump_simulator

import (
	"strings"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

func positive(v *float64) bool {
	return v != nil && finite(*v) && *v > 0
}

// validateSettings checks every field of u without touching the state.
// Non-positive calibration or dosing values and unknown expansion
// interfaces are ignored rather than rejected.
func validateSettings(u messages.SettingsUpdate) error {
	if u.MaxFlowLph != nil && !positive(u.MaxFlowLph) {
		return model.Invalid("maxFlowLph must be > 0")
	}
	if u.NtpServer != nil && strings.TrimSpace(*u.NtpServer) == "" {
		return model.Invalid("ntpServer cannot be empty")
	}
	return nil
}

// applySettings mutates the state; validateSettings must have passed.
func (s *physicalState) applySettings(u messages.SettingsUpdate) {
	if positive(u.MlPerRevCw) {
		s.mlPerRevCw = *u.MlPerRevCw
	}
	if positive(u.MlPerRevCcw) {
		s.mlPerRevCcw = *u.MlPerRevCcw
	}
	// both limits are expressed against the (possibly just updated) CW calibration
	if positive(u.DosingFlowLph) {
		s.dosingSpeed = s.speedForFlow(*u.DosingFlowLph, false)
	}
	if positive(u.MaxFlowLph) {
		s.maxSpeed = s.speedForFlow(*u.MaxFlowLph, false)
	}
	if u.NtpServer != nil {
		s.ntpServer = strings.TrimSpace(*u.NtpServer)
	}
	if u.GrowthProgramEnabled != nil {
		s.growthProgramEnabled = *u.GrowthProgramEnabled
	}
	if u.PhRegulationEnabled != nil {
		s.phRegulationEnabled = *u.PhRegulationEnabled
	}
	if x := u.Expansion; x != nil {
		if x.Enabled != nil {
			s.expansion.Enabled = *x.Enabled
		}
		if x.MotorCount != nil {
			s.expansion.MotorCount = clampInt(*x.MotorCount, 0, entities.MaxExpansionMotors)
		}
		if x.Interface != nil && x.Interface.Valid() {
			s.expansion.Interface = *x.Interface
		}
	}
	s.renormalize()
}

func (s *physicalState) settings(motorID int) messages.Settings {
	return messages.Settings{
		MotorID:              motorID,
		MlPerRevCw:           s.mlPerRevCw,
		MlPerRevCcw:          s.mlPerRevCcw,
		DosingFlowLph:        s.dosingFlowLph(),
		MaxFlowLph:           s.maxFlowLph(),
		NtpServer:            s.ntpServer,
		GrowthProgramEnabled: s.growthProgramEnabled,
		PhRegulationEnabled:  s.phRegulationEnabled,
		Expansion:            s.expansionState(),
	}
}
