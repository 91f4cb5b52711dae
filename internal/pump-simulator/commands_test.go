package pump_simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
)

func TestStart_RestoresDefaultManualSpeed(t *testing.T) {
	s := newTestState()
	s.lastManualSpeed = 0
	s.start()
	assert.Equal(t, defaultManualSpeed, s.targetSpeed)
	assert.True(t, s.running)
	assert.Equal(t, entities.ModeFlow, s.mode)
}

func TestStop_IsIdempotent(t *testing.T) {
	s := newTestState()
	s.start()
	s.currentSpeed = 80

	for i := 0; i < 3; i++ {
		s.stop(false)
		assert.False(t, s.running)
		assert.Zero(t, s.targetSpeed)
		assert.Equal(t, 80.0, s.currentSpeed, "ramped stop leaves current speed to the integrator")
	}
}

func TestStop_EmergencyZeroesCurrentSpeed(t *testing.T) {
	s := newTestState()
	s.currentSpeed, s.targetSpeed = 200, 200
	s.stop(true)
	assert.Zero(t, s.currentSpeed)
}

func TestStop_AbortsDosing(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.startDosing(10, false))
	s.stop(false)
	assert.Equal(t, entities.ModeFlow, s.mode)
	assert.Zero(t, s.dosingRemainingMl)
}

func TestSetFlow(t *testing.T) {
	for _, tc := range []struct {
		name          string
		lph           float64
		reverse       bool
		expectedSpeed float64
		running       bool
	}{
		{name: "forward", lph: 6, expectedSpeed: 6000.0 / 60.0 / 2.6, running: true},
		{name: "reverse", lph: 6, reverse: true, expectedSpeed: -6000.0 / 60.0 / 2.6, running: true},
		{name: "zero", lph: 0, expectedSpeed: 0, running: false},
		{name: "clamped", lph: 1000, expectedSpeed: defaultMaxSpeed, running: true},
		{name: "clamped reverse", lph: 1000, reverse: true, expectedSpeed: -defaultMaxSpeed, running: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestState()
			require.NoError(t, s.setFlow(tc.lph, tc.reverse))
			assert.InDelta(t, tc.expectedSpeed, s.targetSpeed, 1e-9)
			assert.Equal(t, s.targetSpeed, s.lastManualSpeed)
			assert.Equal(t, tc.running, s.running)
		})
	}
}

func TestSetFlow_RejectsNegativeAndNaN(t *testing.T) {
	s := newTestState()
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		err := s.setFlow(v, false)
		require.Error(t, err)
		assert.True(t, model.IsValidation(err))
		assert.Equal(t, "litersPerHour must be >= 0", err.Error())
	}
	assert.Zero(t, s.targetSpeed)
}

func TestFlowRoundTrip(t *testing.T) {
	s := newTestState()
	s.mlPerRevCcw = 2.9
	require.NoError(t, s.setFlow(6.0, true))
	ms := s.motorState(0)
	assert.Equal(t, "reverse", ms.Direction)
	assert.InDelta(t, -6.0, ms.TargetFlowLph, 1e-9)
	assert.Less(t, math.Abs(math.Abs(ms.TargetFlowLph)-6.0), 0.25)
}

func TestStartDosing(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.startDosing(12, true))
	assert.Equal(t, entities.ModeDosing, s.mode)
	assert.Equal(t, 12.0, s.dosingRemainingMl)
	assert.Equal(t, -defaultDosingSpeed, s.targetSpeed)
	assert.True(t, s.running)

	for _, v := range []float64{0, -5} {
		err := s.startDosing(v, false)
		require.Error(t, err)
		assert.Equal(t, "volumeMl must be > 0; use reverse=true", err.Error())
	}
}

func TestCalibrationRun_DosesExpectedVolume(t *testing.T) {
	s := newTestState()
	s.mlPerRevCcw = 3
	volume, err := s.calibrationRun(entities.DirectionCCW, 200)
	require.NoError(t, err)
	assert.Equal(t, 600.0, volume)
	assert.Equal(t, 600.0, s.dosingRemainingMl)
	assert.Equal(t, -defaultDosingSpeed, s.targetSpeed)

	_, err = s.calibrationRun(entities.DirectionCW, 0)
	assert.EqualError(t, err, "revolutions must be > 0")
}

func TestCalibrationApply(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.calibrationApply(entities.DirectionCW, 700, 200))
	assert.Equal(t, 3.5, s.mlPerRevCw)
	assert.Equal(t, defaultMlPerRev, s.mlPerRevCcw)
	assert.False(t, s.running, "calibration apply has no motion side effect")

	require.NoError(t, s.calibrationApply(entities.DirectionCCW, 500, 200))
	assert.Equal(t, 2.5, s.mlPerRevCcw)

	for _, in := range [][2]float64{{0, 200}, {700, 0}, {-1, -1}} {
		err := s.calibrationApply(entities.DirectionCW, in[0], in[1])
		assert.EqualError(t, err, "measuredMl and revolutions must be > 0")
	}
	assert.Equal(t, 3.5, s.mlPerRevCw)
}
