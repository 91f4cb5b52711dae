package dedup

import (
	"sync"
	"time"
)

const (
	defaultTTL      = 10 * time.Minute
	defaultCapacity = 10000
)

// Window remembers recently seen keys for a fixed TTL. It is used to drop
// commands that a broker redelivers or a client retries with the same id.
type Window struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time // key -> expiry
	now  func() time.Time
}

func New(ttl time.Duration, max int) *Window {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if max <= 0 {
		max = defaultCapacity
	}
	return &Window{ttl: ttl, max: max, seen: make(map[string]time.Time), now: time.Now}
}

// First reports whether key is seen for the first time within the window and
// records it. An empty key is never deduplicated.
func (w *Window) First(key string) bool {
	if key == "" {
		return true
	}
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	if exp, ok := w.seen[key]; ok && now.Before(exp) {
		return false
	}
	w.seen[key] = now.Add(w.ttl)
	if len(w.seen) > w.max {
		w.evict(now)
	}
	return true
}

// Forget drops key so that a later delivery is processed again, e.g. after
// the first attempt failed.
func (w *Window) Forget(key string) {
	w.mu.Lock()
	delete(w.seen, key)
	w.mu.Unlock()
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// evict removes expired keys, then the oldest ones while over capacity.
func (w *Window) evict(now time.Time) {
	for k, exp := range w.seen {
		if !now.Before(exp) {
			delete(w.seen, k)
		}
	}
	for len(w.seen) > w.max {
		var oldest string
		var oldestExp time.Time
		for k, exp := range w.seen {
			if oldest == "" || exp.Before(oldestExp) {
				oldest, oldestExp = k, exp
			}
		}
		delete(w.seen, oldest)
	}
}
