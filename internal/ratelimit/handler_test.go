package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int) *http.Response {
	return &http.Response{StatusCode: status}
}

func TestCheckResponse(t *testing.T) {
	t.Parallel()

	t.Run("clean response is not a limit", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(nil, nil)
		assert.False(t, h.CheckResponse(response(http.StatusOK)))
		limited, _ := h.Limited()
		assert.False(t, limited)
	})

	t.Run("429 starts a cooldown", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(nil, nil)
		assert.True(t, h.CheckResponse(response(http.StatusTooManyRequests)))

		limited, remaining := h.Limited()
		assert.True(t, limited)
		assert.Greater(t, remaining, time.Duration(0))
		assert.LessOrEqual(t, remaining, DefaultIntervals[0])
	})

	t.Run("403 and 509 count as limits", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(nil, nil)
		assert.True(t, h.CheckResponse(response(http.StatusForbidden)))
		h = NewHandler(nil, nil)
		assert.True(t, h.CheckResponse(response(509)))
	})

	t.Run("repeated hits escalate the cooldown", func(t *testing.T) {
		t.Parallel()
		h := NewHandler([]time.Duration{time.Minute, 10 * time.Minute}, nil)

		h.CheckResponse(response(http.StatusTooManyRequests))
		_, first := h.Limited()

		h.CheckResponse(response(http.StatusTooManyRequests))
		_, second := h.Limited()

		assert.Greater(t, second, first)

		// The schedule caps at its last interval.
		h.CheckResponse(response(http.StatusTooManyRequests))
		_, third := h.Limited()
		assert.LessOrEqual(t, third, 10*time.Minute)
	})

	t.Run("clean response clears the limit", func(t *testing.T) {
		t.Parallel()
		h := NewHandler(nil, nil)
		require.True(t, h.CheckResponse(response(http.StatusTooManyRequests)))
		require.False(t, h.CheckResponse(response(http.StatusOK)))

		limited, _ := h.Limited()
		assert.False(t, limited)

		// Escalation restarts from the first interval.
		h.CheckResponse(response(http.StatusTooManyRequests))
		_, remaining := h.Limited()
		assert.LessOrEqual(t, remaining, DefaultIntervals[0])
	})

	t.Run("expired cooldown reports unlimited", func(t *testing.T) {
		t.Parallel()
		h := NewHandler([]time.Duration{time.Millisecond}, nil)
		h.CheckResponse(response(http.StatusTooManyRequests))
		time.Sleep(5 * time.Millisecond)

		limited, remaining := h.Limited()
		assert.False(t, limited)
		assert.Zero(t, remaining)
	})
}
