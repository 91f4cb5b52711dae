package pump_simulator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

// ScheduleStore holds the dose table in memory together with the day each
// entry last fired.
type ScheduleStore struct {
	mu       sync.RWMutex
	schedule entities.Schedule
	lastRun  []int // year*1000 + yday, -1 = never
}

func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{schedule: entities.Schedule{Entries: []entities.ScheduleEntry{}}}
}

func (s *ScheduleStore) Get() entities.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.schedule
	out.Entries = append([]entities.ScheduleEntry{}, s.schedule.Entries...)
	return out
}

// Replace swaps the whole table. Entries past the table size are dropped,
// motor ids outside [0, activeMotors) fall back to 0 and names are cut to
// MaxScheduleNameLen runes. Run history is reset.
func (s *ScheduleStore) Replace(sch entities.Schedule, activeMotors int) {
	if len(sch.Entries) > entities.MaxScheduleEntries {
		sch.Entries = sch.Entries[:entities.MaxScheduleEntries]
	}
	entries := make([]entities.ScheduleEntry, len(sch.Entries))
	for i, e := range sch.Entries {
		if e.MotorID < 0 || e.MotorID >= activeMotors {
			e.MotorID = 0
		}
		if r := []rune(e.Name); len(r) > entities.MaxScheduleNameLen {
			e.Name = string(r[:entities.MaxScheduleNameLen])
		}
		entries[i] = e
	}
	last := make([]int, len(entries))
	for i := range last {
		last[i] = -1
	}

	s.mu.Lock()
	s.schedule = entities.Schedule{TzOffsetMinutes: sch.TzOffsetMinutes, Entries: entries}
	s.lastRun = last
	s.mu.Unlock()
}

// SetTzOffset changes the local offset without touching the entries or their history.
func (s *ScheduleStore) SetTzOffset(minutes int) {
	s.mu.Lock()
	s.schedule.TzOffsetMinutes = minutes
	s.mu.Unlock()
}

// DoseScheduler starts dosing runs when a schedule entry comes due.
type DoseScheduler struct {
	engine   *Engine
	store    *ScheduleStore
	interval time.Duration
	log      *zap.Logger
}

func NewDoseScheduler(engine *Engine, store *ScheduleStore, interval time.Duration, logger *zap.Logger) *DoseScheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoseScheduler{engine: engine, store: store, interval: interval, log: logger}
}

// Run evaluates the schedule every interval until ctx is cancelled.
func (d *DoseScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.Evaluate(now)
		}
	}
}

// Evaluate fires at most one due entry and returns its index, or -1.
// An entry that comes due while the pump is busy is skipped for the day.
func (d *DoseScheduler) Evaluate(now time.Time) int {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	local := now.UTC().Add(time.Duration(d.store.schedule.TzOffsetMinutes) * time.Minute)
	day := local.Year()*1000 + local.YearDay()

	for i, s := range d.store.schedule.Entries {
		if !s.Enabled || s.VolumeMl <= 0 {
			continue
		}
		if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
			continue
		}
		if !s.WeekdayEnabled(int(local.Weekday())) {
			continue
		}
		if local.Hour() != s.Hour || local.Minute() != s.Minute {
			continue
		}
		if d.store.lastRun[i] == day {
			continue
		}
		// ids left stale by a shrunk expansion are skipped quietly
		if s.MotorID < 0 || s.MotorID >= d.engine.ActiveMotorCount() {
			continue
		}
		if d.engine.Running() {
			d.store.lastRun[i] = day
			d.log.Info("schedule: pump busy, skipping entry for today", zap.Int("entry", i), zap.String("name", s.Name))
			continue
		}
		if _, err := d.engine.StartDosing(messages.Motor(s.MotorID), s.VolumeMl, s.Reverse); err != nil {
			d.log.Warn("schedule: dosing start failed", zap.Int("entry", i), zap.Error(err))
			continue
		}
		d.store.lastRun[i] = day
		d.log.Info("schedule: dosing started",
			zap.Int("entry", i), zap.String("name", s.Name), zap.Float64("volume_ml", s.VolumeMl), zap.Int("motor_id", s.MotorID))
		return i
	}
	return -1
}
