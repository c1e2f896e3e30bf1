package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitManager owns the per-client limiters and prunes idle ones.
type RateLimitManager struct {
	visitors           map[string]*visitor
	visitorsMu         sync.Mutex
	progressVisitors   map[string]*visitor
	progressVisitorsMu sync.Mutex
	ctx                context.Context
	cancel             context.CancelFunc
	wg                 sync.WaitGroup
}

func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		visitors:         make(map[string]*visitor),
		progressVisitors: make(map[string]*visitor),
		ctx:              managerCtx,
		cancel:           cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// GetVisitor returns the general limiter for a client IP. A nil limiter means
// limiting is disabled.
func (m *RateLimitManager) GetVisitor(ip string, requestsPerWindow int, windowSeconds int, burst int) *rate.Limiter {
	if burst < requestsPerWindow {
		burst = requestsPerWindow
	}

	m.visitorsMu.Lock()
	defer m.visitorsMu.Unlock()
	return lookupLimiter(m.visitors, ip, requestsPerWindow, windowSeconds, burst)
}

// GetProgressLimiter returns the limiter applied to progress events. The key
// is the learner id when known, otherwise the client IP.
func (m *RateLimitManager) GetProgressLimiter(key string, requestsPerWindow int, windowSeconds int) *rate.Limiter {
	m.progressVisitorsMu.Lock()
	defer m.progressVisitorsMu.Unlock()
	return lookupLimiter(m.progressVisitors, key, requestsPerWindow, windowSeconds, requestsPerWindow)
}

func lookupLimiter(visitors map[string]*visitor, key string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}

	if v, exists := visitors[key]; exists {
		v.lastSeen = time.Now()
		return v.limiter
	}

	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	limitPerSecond := float64(requestsPerWindow) / float64(windowSeconds)
	limit := rate.Limit(limitPerSecond)
	if limitPerSecond <= 0 {
		limit = rate.Inf
	}

	limiter := rate.NewLimiter(limit, burst)
	visitors[key] = &visitor{limiter, time.Now()}
	return limiter
}

func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup(time.Now())
		}
	}
}

func (m *RateLimitManager) cleanup(now time.Time) {
	m.visitorsMu.Lock()
	pruneVisitors(m.visitors, now, 3*time.Minute)
	m.visitorsMu.Unlock()

	m.progressVisitorsMu.Lock()
	pruneVisitors(m.progressVisitors, now, 10*time.Minute)
	m.progressVisitorsMu.Unlock()
}

func pruneVisitors(visitors map[string]*visitor, now time.Time, idle time.Duration) {
	for key, v := range visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(visitors, key)
		}
	}
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
