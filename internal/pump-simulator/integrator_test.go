package pump_simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
)

func newTestState() physicalState {
	return newPhysicalState(entities.Expansion{})
}

func TestAdvance_RampDoesNotOvershoot(t *testing.T) {
	s := newTestState()
	s.targetSpeed = 100
	s.running = true

	for i := 0; i < 500; i++ {
		s.advance(0.01)
		require.LessOrEqual(t, s.currentSpeed, s.targetSpeed)
	}
	assert.Equal(t, 100.0, s.currentSpeed)
}

func TestAdvance_HaltIsFasterThanRamp(t *testing.T) {
	s := newTestState()
	s.targetSpeed = 100
	s.advance(1)
	assert.InDelta(t, rampRate, s.currentSpeed, 1e-9)

	s.currentSpeed = 100
	s.targetSpeed = 0
	s.advance(0.25)
	assert.InDelta(t, 100-haltRate*0.25, s.currentSpeed, 1e-9)
}

func TestAdvance_ReverseRampTowardsNegativeTarget(t *testing.T) {
	s := newTestState()
	s.targetSpeed = -30
	s.advance(0.2)
	assert.InDelta(t, -10.0, s.currentSpeed, 1e-9)
	s.advance(10)
	assert.Equal(t, -30.0, s.currentSpeed)
}

func TestAdvance_SnapsToRest(t *testing.T) {
	s := newTestState()
	s.currentSpeed = 0.5
	s.running = true

	s.advance(0.01)
	assert.Equal(t, 0.0, s.currentSpeed)
	assert.False(t, s.running)
}

func TestAdvance_AccumulatesVolumePerDirection(t *testing.T) {
	s := newTestState()
	s.mlPerRevCcw = 5
	s.currentSpeed, s.targetSpeed = 60, 60
	s.advance(1)
	assert.InDelta(t, 0.0026, s.totalPumpedL, 1e-12)
	assert.InDelta(t, 0.0026, s.totalHoseL, 1e-12)

	s.currentSpeed, s.targetSpeed = -60, -60
	s.advance(1)
	assert.InDelta(t, 0.0026+0.005, s.totalPumpedL, 1e-12)
	assert.Equal(t, s.totalPumpedL, s.totalHoseL)
}

func TestAdvance_UptimePromotesWholeSeconds(t *testing.T) {
	s := newTestState()
	s.currentSpeed, s.targetSpeed = 60, 60

	s.advance(0.4)
	s.advance(0.4)
	assert.EqualValues(t, 0, s.uptimeSec)
	s.advance(0.4)
	assert.EqualValues(t, 1, s.uptimeSec)
	assert.InDelta(t, 0.2, s.uptimeRemainder, 1e-9)

	s.advance(2.5)
	assert.EqualValues(t, 3, s.uptimeSec)
}

func TestAdvance_NoUptimeWhileStopped(t *testing.T) {
	s := newTestState()
	for i := 0; i < 300; i++ {
		s.advance(0.01)
	}
	assert.EqualValues(t, 0, s.uptimeSec)
	assert.Zero(t, s.totalPumpedL)
}

func TestAdvance_IgnoresNonPositiveDt(t *testing.T) {
	s := newTestState()
	s.targetSpeed = 100
	s.advance(0)
	s.advance(-1)
	assert.Zero(t, s.currentSpeed)
}

func TestAdvance_DosingCompletesAndHandsBackToFlow(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.startDosing(5, false))
	s.run = &dosingRun{id: "run-1", volumeMl: 5}

	var done *dosingRun
	ticks := 0
	for ; ticks < 2000 && done == nil; ticks++ {
		done = s.advance(0.01)
	}
	require.NotNil(t, done, "dosing did not complete within %d ticks", ticks)
	assert.Equal(t, "run-1", done.id)
	assert.Equal(t, entities.ModeFlow, s.mode)
	assert.False(t, s.running)
	assert.Zero(t, s.dosingRemainingMl)
	assert.Zero(t, s.targetSpeed)
	assert.Nil(t, s.run)
	// the motor is not stopped instantly, it decays on the next ticks
	assert.Greater(t, s.currentSpeed, 0.0)

	for i := 0; i < 200; i++ {
		s.advance(0.01)
	}
	assert.Zero(t, s.currentSpeed)
	// the ramp-down after completion keeps pumping a little
	assert.GreaterOrEqual(t, s.totalPumpedL*1000, 5.0)
}
