package pump_simulator

import (
	"time"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
)

// ====== Tunables ======
// Simulator constants, not a model of any particular motor controller.
const (
	// minSpeed: below this magnitude (rev/min) the drive counts as stopped.
	minSpeed = 0.01

	// rampRate: acceleration towards a non-zero target, rev/min per second.
	rampRate = 50.0

	// haltRate: deceleration when the target is a stop, rev/min per second.
	haltRate = 200.0

	defaultManualSpeed = 120.0
	defaultMaxSpeed    = 450.0
	defaultMlPerRev    = 2.6
	defaultDosingSpeed = 180.0
	defaultNtpServer   = "time.google.com"

	// FirmwareVersion is reported in every snapshot.
	FirmwareVersion = "3.1.0-esp32-sim"
)

// dosingRun tracks the run started by the last dosing or calibration command.
type dosingRun struct {
	id        string
	motorID   int
	volumeMl  float64
	reverse   bool
	startedAt time.Time
}

// physicalState is the single mutable record of the drive. Every virtual motor
// is a projection of it. Callers must hold Engine.mu.
type physicalState struct {
	mode            entities.Mode
	targetSpeed     float64 // rev/min, sign = direction
	currentSpeed    float64
	lastManualSpeed float64
	maxSpeed        float64

	mlPerRevCw  float64
	mlPerRevCcw float64
	dosingSpeed float64 // magnitude

	running           bool
	dosingRemainingMl float64

	totalPumpedL    float64
	totalHoseL      float64
	uptimeSec       int64
	uptimeRemainder float64 // seconds, always < 1

	expansion       entities.Expansion
	selectedMotorID int

	ntpServer            string
	growthProgramEnabled bool
	phRegulationEnabled  bool

	run *dosingRun
}

func newPhysicalState(exp entities.Expansion) physicalState {
	if !exp.Interface.Valid() {
		exp.Interface = entities.InterfaceI2C
	}
	exp.MotorCount = clampInt(exp.MotorCount, 0, entities.MaxExpansionMotors)
	return physicalState{
		mode:            entities.ModeFlow,
		lastManualSpeed: defaultManualSpeed,
		maxSpeed:        defaultMaxSpeed,
		mlPerRevCw:      defaultMlPerRev,
		mlPerRevCcw:     defaultMlPerRev,
		dosingSpeed:     defaultDosingSpeed,
		expansion:       exp,
		ntpServer:       defaultNtpServer,
	}
}

func (s *physicalState) activeMotorCount() int {
	return s.expansion.ActiveMotorCount()
}

// renormalize restores the speed bounds after limits or calibration change.
func (s *physicalState) renormalize() {
	s.targetSpeed = clamp(s.targetSpeed, -s.maxSpeed, s.maxSpeed)
	s.currentSpeed = clamp(s.currentSpeed, -s.maxSpeed, s.maxSpeed)
	s.lastManualSpeed = clamp(s.lastManualSpeed, -s.maxSpeed, s.maxSpeed)
	s.dosingSpeed = min(abs(s.dosingSpeed), s.maxSpeed)
	if s.selectedMotorID >= s.activeMotorCount() {
		s.selectedMotorID = 0
	}
}

func clamp(x, lo, hi float64) float64 {
	return max(lo, min(x, hi))
}

func clampInt(x, lo, hi int) int {
	return max(lo, min(x, hi))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
