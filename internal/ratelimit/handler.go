package ratelimit

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultIntervals is the escalating cooldown schedule applied on
// repeated rate limiting. Google tends to clear kh rate limits within
// minutes; later hits back off harder.
var DefaultIntervals = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	20 * time.Minute,
	30 * time.Minute,
}

// Handler tracks provider-side rate limiting across all tile fetches.
// When a limit is observed, fetches fail fast into the transient path
// until the cooldown elapses instead of hammering the endpoint.
type Handler struct {
	mu        sync.Mutex
	intervals []time.Duration
	hits      int
	until     time.Time
	logger    *slog.Logger
}

// NewHandler creates a handler with the given cooldown schedule; nil
// intervals use DefaultIntervals.
func NewHandler(intervals []time.Duration, logger *slog.Logger) *Handler {
	if len(intervals) == 0 {
		intervals = DefaultIntervals
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{intervals: intervals, logger: logger}
}

// CheckResponse inspects a response for rate-limit indicators and records
// a cooldown when one is found. Returns true if the response was a rate
// limit. A clean response clears any previous limit.
func (h *Handler) CheckResponse(resp *http.Response) bool {
	limited := resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode == http.StatusForbidden || // Google uses 403 for rate limits
		resp.StatusCode == 509 // Bandwidth Limit Exceeded

	h.mu.Lock()
	defer h.mu.Unlock()

	if !limited {
		if h.hits > 0 {
			h.hits = 0
			h.until = time.Time{}
			h.logger.Info("rate limit cleared")
		}
		return false
	}

	interval := h.intervals[min(h.hits, len(h.intervals)-1)]
	h.hits++
	h.until = time.Now().Add(interval)
	h.logger.Warn("rate limited by tile endpoint",
		"status", resp.StatusCode, "hit", h.hits, "cooldown", interval)
	return true
}

// Limited reports whether a cooldown is currently active and how long it
// has left.
func (h *Handler) Limited() (bool, time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	remaining := time.Until(h.until)
	if remaining <= 0 {
		return false, 0
	}
	return true, remaining
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
