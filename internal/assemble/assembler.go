package assemble

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // tile decode
	_ "image/png"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"imagery-timelapse/internal/common"
	"imagery-timelapse/internal/fetch"
	"imagery-timelapse/internal/geo"
)

// VersionIncompleteError means at least one tile of a version's grid
// could not be retrieved. Partial grids are never stitched; a frame with
// holes would silently corrupt deduplication and the output sequence.
// The version is skipped, the run continues.
type VersionIncompleteError struct {
	Version common.Version
	Err     error
}

func (e *VersionIncompleteError) Error() string {
	return fmt.Sprintf("version %s incomplete: %v", e.Version, e.Err)
}

func (e *VersionIncompleteError) Unwrap() error { return e.Err }

// Frame is the cropped, stitched composite for one version. Immutable
// once produced; Version is carried for provenance/labeling downstream.
type Frame struct {
	Version common.Version
	Image   *image.RGBA
	Grid    geo.TileGrid
}

// Assembler fetches all tiles of a grid concurrently and stitches them
// into uniform cropped frames.
type Assembler struct {
	source   fetch.Source
	progress common.ProgressFunc
	logger   *slog.Logger
}

func New(source fetch.Source, progress common.ProgressFunc, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{source: source, progress: progress, logger: logger}
}

// Assemble fetches every tile in the grid for one version, all in
// parallel under the fetcher's shared limiter, and joins before
// stitching. All-or-nothing: the first failed tile cancels the remaining
// fetches and the whole version fails with *VersionIncompleteError.
func (a *Assembler) Assemble(ctx context.Context, grid geo.TileGrid, version common.Version, dir common.Direction) (*Frame, error) {
	xs := grid.TileXs()
	countY := grid.CountY()
	total := len(xs) * countY

	type placedTile struct {
		col, row int
		data     []byte
	}
	results := make([]placedTile, total)

	g, gctx := errgroup.WithContext(ctx)
	var done int64

	for col, x := range xs {
		for row := 0; row < countY; row++ {
			col, row, x, y := col, row, x, grid.YMin+row
			g.Go(func() error {
				data, err := a.source.Fetch(gctx, fetch.Request{
					Z: grid.Zoom, X: x, Y: y,
					Version:   version,
					Direction: dir,
				})
				if err != nil {
					return err
				}
				results[col*countY+row] = placedTile{col: col, row: row, data: data}
				if a.progress != nil {
					n := int(atomic.AddInt64(&done, 1))
					a.progress(common.Progress{
						Downloaded: n,
						Total:      total,
						Percent:    n * 100 / total,
						Status:     fmt.Sprintf("version %s: tile %d/%d", version, n, total),
					})
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			// Caller cancellation, not a version-level failure.
			return nil, ctx.Err()
		}
		return nil, &VersionIncompleteError{Version: version, Err: err}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, grid.CanvasWidth(), grid.CanvasHeight()))
	for _, t := range results {
		tile, _, err := image.Decode(bytes.NewReader(t.data))
		if err != nil {
			return nil, &VersionIncompleteError{Version: version, Err: fmt.Errorf("decoding tile at col %d row %d: %w", t.col, t.row, err)}
		}
		if tile.Bounds().Dx() != common.TileSize || tile.Bounds().Dy() != common.TileSize {
			return nil, &VersionIncompleteError{Version: version, Err: fmt.Errorf("tile at col %d row %d is %v, want %dx%d", t.col, t.row, tile.Bounds().Size(), common.TileSize, common.TileSize)}
		}

		dest := image.Rect(t.col*common.TileSize, t.row*common.TileSize,
			(t.col+1)*common.TileSize, (t.row+1)*common.TileSize)
		draw.Draw(canvas, dest, tile, image.Point{}, draw.Src)
	}

	return &Frame{Version: version, Image: cropCanvas(canvas, grid.Crop), Grid: grid}, nil
}

// cropCanvas copies the crop window out of the stitched canvas so the
// frame owns a compact zero-origin image and the canvas can be freed.
func cropCanvas(canvas *image.RGBA, crop image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), canvas, crop.Min, draw.Src)
	return out
}
