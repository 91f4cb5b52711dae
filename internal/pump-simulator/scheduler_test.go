package pump_simulator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

// 2026-10-19 is a Monday.
var monday0830 = time.Date(2026, time.October, 19, 8, 30, 0, 0, time.UTC)

func dailyEntry(hour, minute int, volume float64) entities.ScheduleEntry {
	return entities.ScheduleEntry{
		Enabled:      true,
		Hour:         hour,
		Minute:       minute,
		VolumeMl:     volume,
		WeekdaysMask: entities.AllWeekdays,
	}
}

func newTestScheduler(t *testing.T, entries ...entities.ScheduleEntry) (*DoseScheduler, *Engine, *ScheduleStore) {
	t.Helper()
	e := NewEngine(Config{})
	store := NewScheduleStore()
	store.Replace(entities.Schedule{Entries: entries}, e.ActiveMotorCount())
	return NewDoseScheduler(e, store, 0, nil), e, store
}

func TestScheduleStore_ReplaceSanitizes(t *testing.T) {
	store := NewScheduleStore()
	entries := make([]entities.ScheduleEntry, 10)
	entries[0] = entities.ScheduleEntry{MotorID: 3, Name: strings.Repeat("ä", 40)}
	entries[1] = entities.ScheduleEntry{MotorID: 1, Name: "night"}
	store.Replace(entities.Schedule{TzOffsetMinutes: 180, Entries: entries}, 2)

	got := store.Get()
	require.Len(t, got.Entries, entities.MaxScheduleEntries)
	assert.Equal(t, 180, got.TzOffsetMinutes)
	assert.Equal(t, 0, got.Entries[0].MotorID)
	assert.Equal(t, entities.MaxScheduleNameLen, len([]rune(got.Entries[0].Name)))
	assert.Equal(t, 1, got.Entries[1].MotorID)
	assert.Equal(t, "night", got.Entries[1].Name)

	// Get hands out a copy
	got.Entries[1].Name = "changed"
	assert.Equal(t, "night", store.Get().Entries[1].Name)
}

func TestDoseScheduler_FiresOncePerDay(t *testing.T) {
	d, e, _ := newTestScheduler(t, dailyEntry(8, 30, 5))

	assert.Equal(t, -1, d.Evaluate(monday0830.Add(-time.Minute)))
	assert.Equal(t, 0, d.Evaluate(monday0830))

	st, err := e.State(messages.MotorID{})
	require.NoError(t, err)
	assert.Equal(t, "dosing", st.ModeName)
	assert.Equal(t, 5.0, st.DosingRemainingMl)

	_, err = e.StopMotor(messages.MotorID{}, true)
	require.NoError(t, err)
	assert.Equal(t, -1, d.Evaluate(monday0830.Add(20*time.Second)), "same minute, same day")
	assert.Equal(t, 0, d.Evaluate(monday0830.AddDate(0, 0, 1)))
}

func TestDoseScheduler_SkipsWhileBusy(t *testing.T) {
	d, e, _ := newTestScheduler(t, dailyEntry(8, 30, 5))
	_, err := e.StartMotor(messages.MotorID{})
	require.NoError(t, err)

	assert.Equal(t, -1, d.Evaluate(monday0830))

	// the slot is consumed for today even after the pump frees up
	_, err = e.StopMotor(messages.MotorID{}, true)
	require.NoError(t, err)
	assert.Equal(t, -1, d.Evaluate(monday0830))
	assert.False(t, e.Running())
}

func TestDoseScheduler_TimezoneOffset(t *testing.T) {
	d, _, store := newTestScheduler(t)
	store.Replace(entities.Schedule{TzOffsetMinutes: 120, Entries: []entities.ScheduleEntry{dailyEntry(10, 30, 1)}}, 1)

	assert.Equal(t, 0, d.Evaluate(monday0830))
}

func TestDoseScheduler_WeekdayMask(t *testing.T) {
	entry := dailyEntry(8, 30, 1)
	entry.WeekdaysMask = 1 // Monday only
	d, e, _ := newTestScheduler(t, entry)

	assert.Equal(t, -1, d.Evaluate(monday0830.AddDate(0, 0, -1)))
	assert.Equal(t, 0, d.Evaluate(monday0830))
	_, _ = e.StopMotor(messages.MotorID{}, true)
	assert.Equal(t, -1, d.Evaluate(monday0830.AddDate(0, 0, 1)))
}

func TestDoseScheduler_IgnoresUnusableEntries(t *testing.T) {
	disabled := dailyEntry(8, 30, 1)
	disabled.Enabled = false
	badHour := dailyEntry(24, 30, 1)
	badHour.Hour = 24
	d, e, _ := newTestScheduler(t, disabled, dailyEntry(8, 30, 0), badHour)

	assert.Equal(t, -1, d.Evaluate(monday0830))
	assert.False(t, e.Running())
}

func TestDoseScheduler_SkipsStaleMotorID(t *testing.T) {
	e := NewEngine(Config{Expansion: entities.Expansion{Enabled: true, MotorCount: 2}})
	store := NewScheduleStore()
	stale := dailyEntry(8, 30, 5)
	stale.MotorID = 2
	store.Replace(entities.Schedule{Entries: []entities.ScheduleEntry{stale}}, e.ActiveMotorCount())

	core, logs := observer.New(zap.WarnLevel)
	d := NewDoseScheduler(e, store, 0, zap.New(core))

	_, err := e.UpdateSettings(messages.MotorID{}, messages.SettingsUpdate{
		Expansion: &messages.ExpansionUpdate{Enabled: ptr(false)},
	})
	require.NoError(t, err)

	assert.Equal(t, -1, d.Evaluate(monday0830))
	assert.Equal(t, -1, d.Evaluate(monday0830.Add(30*time.Second)))
	assert.Zero(t, logs.Len())
	assert.False(t, e.Running())

	// the entry is usable again once the motor exists
	_, err = e.UpdateSettings(messages.MotorID{}, messages.SettingsUpdate{
		Expansion: &messages.ExpansionUpdate{Enabled: ptr(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, d.Evaluate(monday0830.Add(40*time.Second)))
}

func TestDoseScheduler_OneEntryPerEvaluation(t *testing.T) {
	d, _, _ := newTestScheduler(t, dailyEntry(8, 30, 1), dailyEntry(8, 30, 2))

	assert.Equal(t, 0, d.Evaluate(monday0830))
	// the second entry finds the pump busy
	assert.Equal(t, -1, d.Evaluate(monday0830))
}

func TestScheduleStore_SetTzOffsetKeepsHistory(t *testing.T) {
	d, e, store := newTestScheduler(t, dailyEntry(8, 30, 1))
	assert.Equal(t, 0, d.Evaluate(monday0830))
	_, _ = e.StopMotor(messages.MotorID{}, true)

	store.SetTzOffset(0)
	assert.Equal(t, -1, d.Evaluate(monday0830), "entry already ran today")
	assert.Len(t, store.Get().Entries, 1)
}
