package pump_simulator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

const (
	defaultTickInterval = 10 * time.Millisecond
	stopJoinTimeout     = time.Second
)

type Config struct {
	TickInterval time.Duration
	Expansion    entities.Expansion
	Logger       *zap.Logger
}

// Engine owns the physical state of the pump. A background goroutine advances
// it; commands and reads from any goroutine are serialized on mu.
type Engine struct {
	mu    sync.Mutex
	state physicalState

	tick time.Duration
	log  *zap.Logger
	now  func() time.Time

	hooksMu sync.RWMutex
	hooks   []func(messages.DosingResultEvent)

	// lifecycle of the integrator goroutine
	lcMu sync.Mutex
	quit chan struct{}
	done chan struct{}
}

func NewEngine(cfg Config) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		state: newPhysicalState(cfg.Expansion),
		tick:  cfg.TickInterval,
		log:   cfg.Logger,
		now:   time.Now,
	}
}

// OnDosingComplete registers fn to be called, outside the state lock, each
// time a dosing run finishes.
func (e *Engine) OnDosingComplete(fn func(messages.DosingResultEvent)) {
	e.hooksMu.Lock()
	e.hooks = append(e.hooks, fn)
	e.hooksMu.Unlock()
}

// Start launches the integrator. Calling Start on a started engine is a no-op;
// an integrator that exited because its context was cancelled is relaunched.
func (e *Engine) Start(ctx context.Context) {
	e.lcMu.Lock()
	defer e.lcMu.Unlock()
	if e.aliveLocked() {
		return
	}
	e.quit = make(chan struct{})
	e.done = make(chan struct{})
	go e.loop(ctx, e.quit, e.done)
	e.log.Info("pump integrator started", zap.Duration("tick", e.tick))
}

// Stop halts the integrator and waits up to one second for it to exit.
// It is safe to call on a stopped engine.
func (e *Engine) Stop() {
	e.lcMu.Lock()
	defer e.lcMu.Unlock()
	if e.quit == nil {
		return
	}
	close(e.quit)
	select {
	case <-e.done:
		e.log.Info("pump integrator stopped")
	case <-time.After(stopJoinTimeout):
		e.log.Warn("pump integrator did not stop in time", zap.Duration("timeout", stopJoinTimeout))
	}
	e.quit, e.done = nil, nil
}

// Started reports whether the integrator goroutine is running.
func (e *Engine) Started() bool {
	e.lcMu.Lock()
	defer e.lcMu.Unlock()
	return e.aliveLocked()
}

// aliveLocked needs lcMu. A closed done means the loop has returned.
func (e *Engine) aliveLocked() bool {
	if e.quit == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

func (e *Engine) loop(ctx context.Context, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	// time.Now carries a monotonic reading, so Sub is immune to wall clock jumps
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			now := time.Now()
			e.advance(now.Sub(last))
			last = now
		}
	}
}

func (e *Engine) advance(dt time.Duration) {
	e.mu.Lock()
	run := e.state.advance(dt.Seconds())
	e.mu.Unlock()

	if run != nil {
		e.emit(run)
	}
}

func (e *Engine) emit(run *dosingRun) {
	evt := messages.DosingResultEvent{
		RunID:       run.id,
		MotorID:     run.motorID,
		RequestedMl: run.volumeMl,
		Reverse:     run.reverse,
		Status:      "OK",
		StartedAt:   run.startedAt,
		Timestamp:   e.now(),
	}
	e.log.Info("dosing run complete",
		zap.String("run_id", evt.RunID), zap.Int("motor_id", evt.MotorID), zap.Float64("volume_ml", evt.RequestedMl))

	e.hooksMu.RLock()
	hooks := append([]func(messages.DosingResultEvent){}, e.hooks...)
	e.hooksMu.RUnlock()
	for _, h := range hooks {
		go h(evt)
	}
}

// ===================== queries =====================

// State returns the projection for ref, defaulting to the selected motor.
func (e *Engine) State(ref messages.MotorID) (messages.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.state.resolveMotor(ref, e.state.selectedMotorID)
	if err != nil {
		return messages.Snapshot{}, err
	}
	return e.state.snapshot(id), nil
}

// Settings returns calibration and limits for ref, defaulting to the selected motor.
func (e *Engine) Settings(ref messages.MotorID) (messages.Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.state.resolveMotor(ref, e.state.selectedMotorID)
	if err != nil {
		return messages.Settings{}, err
	}
	return e.state.settings(id), nil
}

func (e *Engine) ActiveMotorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.activeMotorCount()
}

// Running reports whether the drive is commanded to move.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.running
}

// ===================== commands =====================

// command resolves ref (default motor 0), runs fn and snapshots, all under one lock hold.
func (e *Engine) command(ref messages.MotorID, fn func(s *physicalState, id int) error) (messages.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.state.resolveMotor(ref, 0)
	if err != nil {
		return messages.Snapshot{}, err
	}
	if err := fn(&e.state, id); err != nil {
		return messages.Snapshot{}, err
	}
	return e.state.snapshot(id), nil
}

func (e *Engine) StartMotor(ref messages.MotorID) (messages.Snapshot, error) {
	return e.command(ref, func(s *physicalState, _ int) error {
		s.start()
		return nil
	})
}

func (e *Engine) StopMotor(ref messages.MotorID, emergency bool) (messages.Snapshot, error) {
	return e.command(ref, func(s *physicalState, _ int) error {
		s.stop(emergency)
		return nil
	})
}

func (e *Engine) SetFlow(ref messages.MotorID, litersPerHour float64, reverse bool) (messages.Snapshot, error) {
	return e.command(ref, func(s *physicalState, _ int) error {
		return s.setFlow(litersPerHour, reverse)
	})
}

func (e *Engine) StartDosing(ref messages.MotorID, volumeMl float64, reverse bool) (messages.Snapshot, error) {
	return e.command(ref, func(s *physicalState, id int) error {
		if err := s.startDosing(volumeMl, reverse); err != nil {
			return err
		}
		s.run = e.newRun(id, volumeMl, reverse)
		return nil
	})
}

func (e *Engine) CalibrationRun(ref messages.MotorID, dir entities.Direction, revolutions float64) (messages.Snapshot, error) {
	return e.command(ref, func(s *physicalState, id int) error {
		volume, err := s.calibrationRun(dir, revolutions)
		if err != nil {
			return err
		}
		s.run = e.newRun(id, volume, dir.Reverse())
		return nil
	})
}

func (e *Engine) CalibrationApply(ref messages.MotorID, dir entities.Direction, measuredMl, revolutions float64) (messages.Snapshot, error) {
	return e.command(ref, func(s *physicalState, _ int) error {
		return s.calibrationApply(dir, measuredMl, revolutions)
	})
}

// UpdateSettings validates the whole update before applying any of it.
func (e *Engine) UpdateSettings(ref messages.MotorID, u messages.SettingsUpdate) (messages.Snapshot, error) {
	if err := validateSettings(u); err != nil {
		return messages.Snapshot{}, err
	}
	return e.command(ref, func(s *physicalState, _ int) error {
		s.applySettings(u)
		return nil
	})
}

// SelectMotor changes the motor reported by default reads.
func (e *Engine) SelectMotor(ref messages.MotorID) (messages.Snapshot, error) {
	if !ref.Set {
		return messages.Snapshot{}, model.ErrInvalidMotorID
	}
	return e.command(ref, func(s *physicalState, id int) error {
		s.selectedMotorID = id
		return nil
	})
}

func (e *Engine) newRun(motorID int, volumeMl float64, reverse bool) *dosingRun {
	return &dosingRun{
		id:        uuid.NewString(),
		motorID:   motorID,
		volumeMl:  volumeMl,
		reverse:   reverse,
		startedAt: e.now(),
	}
}
