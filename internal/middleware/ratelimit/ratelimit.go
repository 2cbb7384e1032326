// Package ratelimit implements a per-client fixed-window request limiter.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds rate limiter configuration. Zero values take the defaults.
type Config struct {
	Limit           int           // requests per window
	Window          time.Duration // defaults to one minute
	IdleTTL         time.Duration // clients idle longer are forgotten
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Limit:           120,
		Window:          time.Minute,
		IdleTTL:         10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Limit <= 0 {
		c.Limit = d.Limit
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = d.IdleTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

type window struct {
	start time.Time
	last  time.Time
	count int
}

// Limiter counts requests per client key within fixed windows.
type Limiter struct {
	cfg      Config
	mu       sync.Mutex
	windows  map[string]*window
	rejected atomic.Int64
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts the limiter's cleanup goroutine; call Stop to release it.
func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg.withDefaults(),
		windows: make(map[string]*window),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow records one request for key. When the request is over the limit it
// returns false and the time left until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		l.windows[key] = &window{start: now, last: now, count: 1}
		return true, 0
	}
	w.count++
	w.last = now
	if w.count <= l.cfg.Limit {
		return true, 0
	}
	l.rejected.Add(1)
	return false, l.cfg.Window - now.Sub(w.start)
}

func (l *Limiter) sweepLoop() {
	t := time.NewTicker(l.cfg.CleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep forgets clients idle for longer than IdleTTL.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.cfg.IdleTTL)
	for key, w := range l.windows {
		if w.last.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Metrics is exported on /metrics.
type Metrics struct {
	Rejected    int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	l.mu.Lock()
	n := len(l.windows)
	l.mu.Unlock()
	return Metrics{Rejected: l.rejected.Load(), ClientCount: int64(n)}
}

// Middleware rejects over-limit requests with Retry-After set. onLimit
// renders the rejection; a plain-text 429 is written when it is nil.
func (l *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Allow(key(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(wait.Seconds())))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Demasiadas solicitudes. Intente nuevamente en unos segundos.", http.StatusTooManyRequests)
		})
	}
}
