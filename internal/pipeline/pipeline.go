package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"imagery-timelapse/internal/assemble"
	"imagery-timelapse/internal/common"
	"imagery-timelapse/internal/dedup"
	"imagery-timelapse/internal/fetch"
	"imagery-timelapse/internal/geo"
	"imagery-timelapse/internal/probe"
)

// Config wires the pipeline's collaborators. Source and Sentinel are
// required; the rest default sensibly.
type Config struct {
	Source   fetch.Source
	Sentinel probe.Sentinel

	// MaxLookback bounds the version window scan.
	MaxLookback int

	// VersionParallelism allows assembling several versions at once.
	// Results are still delivered to deduplication in version order.
	VersionParallelism int

	// OldestFirst orders the output chronologically (default). When
	// false the sequence runs newest to oldest.
	OldestFirst bool

	Progress common.ProgressFunc
	Logger   *slog.Logger
}

// Request describes one run.
type Request struct {
	Rect      geo.Rect
	Policy    geo.Policy
	Direction common.Direction
}

// SkippedVersion records a version excluded from the output and why.
type SkippedVersion struct {
	Version common.Version
	Reason  string
}

// FrameSequence is the pipeline's terminal output: deduplicated frames
// in the requested chronological order, each tagged with its originating
// version, plus the grid for filename/metadata embedding downstream.
type FrameSequence struct {
	RunID   string
	Grid    geo.TileGrid
	Window  probe.Window
	Frames  []*assemble.Frame
	Skipped []SkippedVersion
}

// Pipeline sequences mapping, window discovery, per-version assembly and
// deduplication. It is the only component with cross-cutting knowledge.
type Pipeline struct {
	source      fetch.Source
	sentinel    probe.Sentinel
	maxLookback int
	parallelism int
	oldestFirst bool
	progress    common.ProgressFunc
	logger      *slog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if cfg.Sentinel == nil {
		return nil, fmt.Errorf("sentinel is required")
	}
	parallelism := cfg.VersionParallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		source:      cfg.Source,
		sentinel:    cfg.Sentinel,
		maxLookback: cfg.MaxLookback,
		parallelism: parallelism,
		oldestFirst: cfg.OldestFirst,
		progress:    cfg.Progress,
		logger:      logger,
	}, nil
}

// Run executes one pipeline pass. Versions whose assembly is incomplete
// are recorded as skipped and never abort the run; only invalid extents
// and total absence of coverage surface as errors.
func (p *Pipeline) Run(ctx context.Context, req Request) (*FrameSequence, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run", runID)

	grid, err := geo.Map(req.Rect, req.Policy)
	if err != nil {
		return nil, err
	}
	logger.Info("mapped extent to tile grid",
		"zoom", grid.Zoom, "cols", grid.CountX(), "rows", grid.CountY(),
		"crop", fmt.Sprintf("%dx%d", grid.Crop.Dx(), grid.Crop.Dy()))

	newest, err := p.sentinel.Latest(ctx, req.Direction)
	if err != nil {
		return nil, fmt.Errorf("resolving newest version: %w", err)
	}

	prober := probe.NewProber(p.source, p.maxLookback, logger)
	window, err := prober.FindWindow(ctx, grid, req.Direction, newest)
	if err != nil {
		return nil, err
	}
	logger.Info("version window found", "oldest", window.Oldest, "newest", window.Newest, "count", window.Count())

	frames, skipped, err := p.assembleWindow(ctx, grid, req.Direction, window, logger)
	if err != nil {
		return nil, err
	}

	if p.oldestFirst {
		for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
			frames[i], frames[j] = frames[j], frames[i]
		}
	}

	deduped := dedup.Dedup(frames)
	logger.Info("deduplicated frames",
		"assembled", len(frames), "retained", len(deduped), "skipped", len(skipped))

	return &FrameSequence{
		RunID:   runID,
		Grid:    grid,
		Window:  window,
		Frames:  deduped,
		Skipped: skipped,
	}, nil
}

// assembleWindow assembles every version in the window, newest first,
// with bounded parallelism. Frames land in an indexed slice so that the
// deduplicator always consumes them in version order no matter which
// assembly finishes first.
func (p *Pipeline) assembleWindow(ctx context.Context, grid geo.TileGrid, dir common.Direction, window probe.Window, logger *slog.Logger) ([]*assemble.Frame, []SkippedVersion, error) {
	versions := window.Descending()
	assembler := assemble.New(p.source, p.progress, logger)

	results := make([]*assemble.Frame, len(versions))
	var mu sync.Mutex
	var skipped []SkippedVersion

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)

	for i, version := range versions {
		i, version := i, version
		g.Go(func() error {
			p.emitVersionProgress(i+1, len(versions), version)

			frame, err := assembler.Assemble(gctx, grid, version, dir)
			if err == nil {
				results[i] = frame
				logger.Debug("version assembled", "version", version)
				return nil
			}

			var incomplete *assemble.VersionIncompleteError
			if errors.As(err, &incomplete) {
				mu.Lock()
				skipped = append(skipped, SkippedVersion{Version: version, Reason: incomplete.Err.Error()})
				mu.Unlock()
				logger.Warn("version skipped", "version", version, "reason", incomplete.Err)
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	frames := make([]*assemble.Frame, 0, len(results))
	for _, frame := range results {
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames, skipped, nil
}

func (p *Pipeline) emitVersionProgress(current, total int, version common.Version) {
	if p.progress == nil {
		return
	}
	p.progress(common.Progress{
		Status:         fmt.Sprintf("assembling version %s", version),
		CurrentVersion: current,
		TotalVersions:  total,
	})
}
