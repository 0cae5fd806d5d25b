package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"imagery-timelapse/internal/common"
	"imagery-timelapse/internal/fetch"
	"imagery-timelapse/internal/geo"
)

// NoImageryError means the area has no coverage at all: even the newest
// version cannot serve the representative tile. Fatal, not retried.
type NoImageryError struct {
	Newest common.Version
	Err    error
}

func (e *NoImageryError) Error() string {
	return fmt.Sprintf("no imagery available for this area at version %s: %v", e.Newest, e.Err)
}

func (e *NoImageryError) Unwrap() error { return e.Err }

// Window is the retained version range, inclusive on both ends.
// Invariant: Oldest <= Newest.
type Window struct {
	Oldest common.Version
	Newest common.Version
}

func (w Window) Count() int {
	return int(w.Newest-w.Oldest) + 1
}

// Descending lists the window's versions newest first.
func (w Window) Descending() []common.Version {
	out := make([]common.Version, 0, w.Count())
	for v := w.Newest; v >= w.Oldest; v-- {
		out = append(out, v)
	}
	return out
}

// Ascending lists the window's versions oldest first.
func (w Window) Ascending() []common.Version {
	out := make([]common.Version, 0, w.Count())
	for v := w.Oldest; v <= w.Newest; v++ {
		out = append(out, v)
	}
	return out
}

// DefaultMaxLookback bounds the backward scan. The provider has never
// been observed to retain anywhere near this many versions.
const DefaultMaxLookback = 200

// Prober locates the eviction boundary of the version space by probing a
// single representative tile per candidate id.
type Prober struct {
	source      fetch.Source
	maxLookback int
	logger      *slog.Logger
}

func NewProber(source fetch.Source, maxLookback int, logger *slog.Logger) *Prober {
	if maxLookback <= 0 {
		maxLookback = DefaultMaxLookback
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{source: source, maxLookback: maxLookback, logger: logger}
}

// FindWindow determines the retained version window ending at newest.
//
// The scan is a strictly sequential bounded linear walk backwards from
// newest: each probe's outcome decides whether there is a next candidate,
// so this step is never parallelized. Binary search is deliberately not
// used; the eviction boundary is not guaranteed monotonic-searchable in
// the presence of provider-side gaps.
func (p *Prober) FindWindow(ctx context.Context, grid geo.TileGrid, dir common.Direction, newest common.Version) (Window, error) {
	cx, cy := grid.CenterTile()

	probeVersion := func(v common.Version) error {
		_, err := p.source.Fetch(ctx, fetch.Request{
			Z: grid.Zoom, X: cx, Y: cy,
			Version:   v,
			Direction: dir,
		})
		return err
	}

	if err := probeVersion(newest); err != nil {
		var unavailable *fetch.TileUnavailableError
		if errors.As(err, &unavailable) {
			return Window{}, &NoImageryError{Newest: newest, Err: err}
		}
		return Window{}, fmt.Errorf("probing newest version %s: %w", newest, err)
	}

	oldest := newest
	for i := 1; i <= p.maxLookback; i++ {
		candidate := newest - common.Version(i)
		if !candidate.Valid() {
			break
		}
		if ctx.Err() != nil {
			return Window{}, ctx.Err()
		}

		err := probeVersion(candidate)
		if err == nil {
			oldest = candidate
			continue
		}

		var unavailable *fetch.TileUnavailableError
		if errors.As(err, &unavailable) {
			// Eviction boundary: the previous candidate is the
			// oldest retained version.
			p.logger.Debug("eviction boundary found", "evicted", candidate, "oldest", oldest)
			break
		}

		// Retry-exhausted transient failure: the boundary is
		// unobservable past this point, stop with what was proven
		// reachable.
		p.logger.Warn("version scan stopped by transient failure", "version", candidate, "error", err)
		break
	}

	if i := newest - oldest; int(i)+1 > p.maxLookback {
		p.logger.Info("version scan hit the lookback bound", "lookback", p.maxLookback)
	}

	return Window{Oldest: oldest, Newest: newest}, nil
}
