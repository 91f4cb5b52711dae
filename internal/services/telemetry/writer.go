package telemetry

import (
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// PointWriter is the subset of the Influx non-blocking WriteAPI in use.
type PointWriter interface {
	WritePoint(point *write.Point)
	Errors() <-chan error
	Flush()
}

// Writer wraps the write API and remembers when the last write error
// happened, for /healthz and /readyz.
type Writer struct {
	api     PointWriter
	log     *zap.Logger
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

func NewWriter(w PointWriter, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ww := &Writer{
		api:     w,
		log:     logger,
		lastErr: time.Now().Add(-24 * time.Hour), // no recent error
		counts:  make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err == nil {
				continue
			}
			ww.mu.Lock()
			ww.lastErr = time.Now()
			ww.mu.Unlock()
			logger.Warn("influx write error", zap.Error(err))
		}
	}()
	return ww
}

func (w *Writer) write(measurement string, p *write.Point) {
	if w == nil {
		return
	}
	w.api.WritePoint(p)
	w.mu.Lock()
	w.counts[measurement]++
	w.mu.Unlock()
}

// LastErrorAge returns how long ago the last write error happened.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// Count returns the number of points queued for measurement.
func (w *Writer) Count(measurement string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts[measurement]
}

func (w *Writer) Flush() {
	if w != nil {
		w.api.Flush()
	}
}
