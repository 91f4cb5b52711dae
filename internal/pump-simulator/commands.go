package pump_simulator

import (
	"math"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
)

// DefaultCalibrationRevolutions is used when a calibration run omits the count.
const DefaultCalibrationRevolutions = 200

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// leaveDosing drops any pending run when a command takes the drive back to flow mode.
func (s *physicalState) leaveDosing() {
	s.mode = entities.ModeFlow
	s.dosingRemainingMl = 0
	s.run = nil
}

func (s *physicalState) start() {
	if abs(s.lastManualSpeed) < minSpeed {
		s.lastManualSpeed = defaultManualSpeed
	}
	s.leaveDosing()
	s.targetSpeed = clamp(s.lastManualSpeed, -s.maxSpeed, s.maxSpeed)
	s.running = true
}

// stop requests a ramped stop. An emergency stop also zeroes the current speed.
func (s *physicalState) stop(emergency bool) {
	s.leaveDosing()
	s.targetSpeed = 0
	s.running = false
	if emergency {
		s.currentSpeed = 0
	}
}

func (s *physicalState) setFlow(litersPerHour float64, reverse bool) error {
	if !finite(litersPerHour) || litersPerHour < 0 {
		return model.Invalid("litersPerHour must be >= 0")
	}
	s.leaveDosing()
	s.targetSpeed = clamp(s.speedForFlow(litersPerHour, reverse), -s.maxSpeed, s.maxSpeed)
	s.lastManualSpeed = s.targetSpeed
	s.running = abs(s.targetSpeed) >= minSpeed
	return nil
}

func (s *physicalState) startDosing(volumeMl float64, reverse bool) error {
	if !finite(volumeMl) || volumeMl <= 0 {
		return model.Invalid("volumeMl must be > 0; use reverse=true")
	}
	s.mode = entities.ModeDosing
	s.dosingRemainingMl = volumeMl
	s.targetSpeed = s.dosingSpeed
	if reverse {
		s.targetSpeed = -s.dosingSpeed
	}
	s.running = true
	return nil
}

// calibrationRun doses the volume that revolutions turns should deliver with
// the current calibration, so the operator can measure the real output.
func (s *physicalState) calibrationRun(dir entities.Direction, revolutions float64) (float64, error) {
	if !finite(revolutions) || revolutions <= 0 {
		return 0, model.Invalid("revolutions must be > 0")
	}
	volume := s.mlPerRev(dir) * revolutions
	if err := s.startDosing(volume, dir.Reverse()); err != nil {
		return 0, err
	}
	return volume, nil
}

func (s *physicalState) calibrationApply(dir entities.Direction, measuredMl, revolutions float64) error {
	if !finite(measuredMl) || !finite(revolutions) || measuredMl <= 0 || revolutions <= 0 {
		return model.Invalid("measuredMl and revolutions must be > 0")
	}
	if dir == entities.DirectionCCW {
		s.mlPerRevCcw = measuredMl / revolutions
	} else {
		s.mlPerRevCw = measuredMl / revolutions
	}
	return nil
}
