package pump_simulator

import "github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"

// advance integrates the drive over dtSec seconds. It returns the dosing run
// that completed during this step, if any.
func (s *physicalState) advance(dtSec float64) *dosingRun {
	if dtSec <= 0 {
		return nil
	}

	targetIsStop := abs(s.targetSpeed) < minSpeed
	rate := rampRate
	if targetIsStop {
		rate = haltRate
	}
	step := rate * dtSec

	// move towards target, never past it
	if s.currentSpeed < s.targetSpeed {
		s.currentSpeed = min(s.currentSpeed+step, s.targetSpeed)
	} else if s.currentSpeed > s.targetSpeed {
		s.currentSpeed = max(s.currentSpeed-step, s.targetSpeed)
	}

	if abs(s.currentSpeed) < minSpeed && targetIsStop {
		s.currentSpeed = 0
		s.running = false
	}

	deltaMl := abs(s.currentSpeed) / 60.0 * s.mlPerRev(entities.DirectionOf(s.currentSpeed)) * dtSec
	s.totalPumpedL += deltaMl / 1000.0
	s.totalHoseL += deltaMl / 1000.0

	if abs(s.currentSpeed) >= minSpeed {
		s.uptimeRemainder += dtSec
		if whole := int64(s.uptimeRemainder); whole > 0 {
			s.uptimeSec += whole
			s.uptimeRemainder -= float64(whole)
		}
	}

	if s.mode != entities.ModeDosing || s.dosingRemainingMl <= 0 {
		return nil
	}
	s.dosingRemainingMl -= deltaMl
	if s.dosingRemainingMl > 0 {
		return nil
	}

	// run complete: hand back to flow mode, currentSpeed decays on later ticks
	s.dosingRemainingMl = 0
	s.targetSpeed = 0
	s.mode = entities.ModeFlow
	s.running = false
	done := s.run
	s.run = nil
	return done
}
