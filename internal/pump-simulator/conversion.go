package pump_simulator

import "github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"

// mlPerMinPerLph converts mL/min to L/h.
const mlPerMinPerLph = 0.06

func (s *physicalState) mlPerRev(d entities.Direction) float64 {
	if d == entities.DirectionCCW {
		return s.mlPerRevCcw
	}
	return s.mlPerRevCw
}

// flowMlPerMin is the signed volumetric flow for a signed speed.
func (s *physicalState) flowMlPerMin(speed float64) float64 {
	return speed * s.mlPerRev(entities.DirectionOf(speed))
}

func toLph(mlPerMin float64) float64 {
	return mlPerMin * mlPerMinPerLph
}

// speedForFlow converts a non-negative L/h into a signed speed using the
// calibration of the requested direction.
func (s *physicalState) speedForFlow(litersPerHour float64, reverse bool) float64 {
	dir := entities.DirectionCW
	if reverse {
		dir = entities.DirectionCCW
	}
	speed := (litersPerHour * 1000.0 / 60.0) / s.mlPerRev(dir)
	if reverse {
		speed = -speed
	}
	return speed
}

// dosingFlowLph is the forward flow produced at dosing speed.
func (s *physicalState) dosingFlowLph() float64 {
	return abs(toLph(s.dosingSpeed * s.mlPerRevCw))
}

func (s *physicalState) maxFlowLph() float64 {
	return toLph(s.maxSpeed * s.mlPerRevCw)
}
