package entities

import "strings"

// Mode is the drive operating mode.
type Mode int

const (
	ModeFlow Mode = iota
	ModeDosing
)

// String returns the wire name used by the firmware API ("flow_lph" | "dosing").
func (m Mode) String() string {
	if m == ModeDosing {
		return "dosing"
	}
	return "flow_lph"
}

// Direction of rotation. CW is forward, CCW is reverse.
type Direction string

const (
	DirectionCW  Direction = "cw"
	DirectionCCW Direction = "ccw"
)

// ParseDirection accepts "cw" / "ccw" (case and surrounding blanks ignored).
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionCW:
		return DirectionCW, true
	case DirectionCCW:
		return DirectionCCW, true
	}
	return "", false
}

// DirectionOf maps a signed speed to its rotation direction (>=0 is CW).
func DirectionOf(speed float64) Direction {
	if speed >= 0 {
		return DirectionCW
	}
	return DirectionCCW
}

// Reverse reports whether d is the reverse (CCW) direction.
func (d Direction) Reverse() bool { return d == DirectionCCW }
