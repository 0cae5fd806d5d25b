package geo

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRect(t *testing.T, center Point, widthM, heightM float64) Rect {
	t.Helper()
	rect, err := RectAround(center, widthM, heightM)
	require.NoError(t, err)
	return rect
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, PolicyMaxTiles(4).Validate())
	assert.NoError(t, PolicyWidthPx(500).Validate())
	assert.NoError(t, PolicyHeightPx(500).Validate())
	assert.Error(t, Policy{}.Validate())
	assert.Error(t, Policy{MaxTileCount: 4, TargetWidthPx: 500}.Validate())
}

func TestMapTargetWidth(t *testing.T) {
	t.Parallel()

	rect := mustRect(t, Point{Lat: 38.900068, Lon: -77.036555}, 1000, 1000)
	grid, err := Map(rect, PolicyWidthPx(500))
	require.NoError(t, err)

	// The crop is exactly the requested width and fits the canvas.
	assert.Equal(t, 500, grid.Crop.Dx())
	assert.GreaterOrEqual(t, grid.Crop.Min.X, 0)
	assert.LessOrEqual(t, grid.Crop.Max.X, grid.CanvasWidth())
	assert.GreaterOrEqual(t, grid.Crop.Min.Y, 0)
	assert.LessOrEqual(t, grid.Crop.Max.Y, grid.CanvasHeight())

	// Lowest zoom whose resolution covers 1000m in 500px (2 m/px).
	assert.LessOrEqual(t, MetersPerPixel(38.900068, grid.Zoom), 2.0)
	if grid.Zoom > 0 {
		assert.Greater(t, MetersPerPixel(38.900068, grid.Zoom-1), 2.0)
	}
}

func TestMapTargetHeight(t *testing.T) {
	t.Parallel()

	rect := mustRect(t, Point{Lat: -33.8568, Lon: 151.2153}, 2000, 1000)
	grid, err := Map(rect, PolicyHeightPx(400))
	require.NoError(t, err)

	assert.Equal(t, 400, grid.Crop.Dy())
	assert.LessOrEqual(t, grid.Crop.Max.Y, grid.CanvasHeight())
}

func TestMapMaxTiles(t *testing.T) {
	t.Parallel()

	rect := mustRect(t, Point{Lat: 51.5, Lon: -0.1}, 3000, 3000)
	grid, err := Map(rect, PolicyMaxTiles(4))
	require.NoError(t, err)

	assert.LessOrEqual(t, grid.CountX(), 4)
	assert.LessOrEqual(t, grid.CountY(), 4)

	// A deeper zoom would exceed the cap on at least one axis.
	deeper, err := zoomForTileCount(rect, 4)
	require.NoError(t, err)
	assert.Equal(t, deeper, grid.Zoom)
}

func TestMapDeterministic(t *testing.T) {
	t.Parallel()

	rect := mustRect(t, Point{Lat: 38.9, Lon: -77.03}, 1500, 800)
	a, err := Map(rect, PolicyWidthPx(640))
	require.NoError(t, err)
	b, err := Map(rect, PolicyWidthPx(640))
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same inputs produced different grids (-first +second):\n%s", diff)
	}
}

func TestMapAntimeridian(t *testing.T) {
	t.Parallel()

	rect := mustRect(t, Point{Lat: -16.5, Lon: 179.99}, 8000, 4000)
	require.True(t, rect.Wraps())

	grid, err := Map(rect, PolicyMaxTiles(8))
	require.NoError(t, err)

	// Stored indices wrap; the column count stays the short way around.
	assert.Greater(t, grid.XMin, grid.XMax)
	assert.LessOrEqual(t, grid.CountX(), 8)

	n := 1 << grid.Zoom
	xs := grid.TileXs()
	require.Len(t, xs, grid.CountX())
	assert.Equal(t, grid.XMin, xs[0])
	assert.Equal(t, grid.XMax, xs[len(xs)-1])
	for i := 1; i < len(xs); i++ {
		assert.Equal(t, (xs[i-1]+1)%n, xs[i], "column indices must be contiguous modulo 2^zoom")
	}
}

func TestMapRejectsInvalidRect(t *testing.T) {
	t.Parallel()

	upsideDown := Rect{SW: Point{Lat: 10, Lon: 0}, NE: Point{Lat: 5, Lon: 1}}
	_, err := Map(upsideDown, PolicyMaxTiles(4))
	var extentErr *InvalidExtentError
	require.ErrorAs(t, err, &extentErr)
}

func TestCenterTileInsideGrid(t *testing.T) {
	t.Parallel()

	rect := mustRect(t, Point{Lat: 40.7, Lon: -74.0}, 2000, 2000)
	grid, err := Map(rect, PolicyMaxTiles(4))
	require.NoError(t, err)

	cx, cy := grid.CenterTile()
	assert.Contains(t, grid.TileXs(), cx)
	assert.GreaterOrEqual(t, cy, grid.YMin)
	assert.LessOrEqual(t, cy, grid.YMax)
}

func TestGridCounts(t *testing.T) {
	t.Parallel()

	g := TileGrid{Zoom: 4, XMin: 14, XMax: 1, YMin: 5, YMax: 7}
	assert.Equal(t, 4, g.CountX()) // 14, 15, 0, 1
	assert.Equal(t, 3, g.CountY())
	assert.Equal(t, []int{14, 15, 0, 1}, g.TileXs())
	assert.Equal(t, 4*256, g.CanvasWidth())
	assert.Equal(t, 3*256, g.CanvasHeight())
}
