package geo

import (
	"fmt"
	"image"
	"math"

	"imagery-timelapse/internal/common"
)

// Policy resolves a geographic rectangle to a concrete zoom level.
// Exactly one constraint must be set.
type Policy struct {
	// MaxTileCount caps the number of tiles spanned on either axis;
	// the highest zoom level that fits is chosen.
	MaxTileCount int

	// TargetWidthPx / TargetHeightPx request an output dimension in
	// pixels; the lowest zoom level whose projected span still covers
	// the dimension is chosen and the crop is centered to match it
	// exactly.
	TargetWidthPx  int
	TargetHeightPx int
}

// PolicyMaxTiles constrains the grid to at most m tiles per axis.
func PolicyMaxTiles(m int) Policy { return Policy{MaxTileCount: m} }

// PolicyWidthPx requests an output exactly w pixels wide.
func PolicyWidthPx(w int) Policy { return Policy{TargetWidthPx: w} }

// PolicyHeightPx requests an output exactly h pixels tall.
func PolicyHeightPx(h int) Policy { return Policy{TargetHeightPx: h} }

// Validate checks that exactly one constraint is supplied.
func (p Policy) Validate() error {
	set := 0
	if p.MaxTileCount > 0 {
		set++
	}
	if p.TargetWidthPx > 0 {
		set++
	}
	if p.TargetHeightPx > 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("resolution policy needs exactly one of max tile count, target width or target height (%d set)", set)
	}
	return nil
}

// TileGrid addresses the slippy-map tiles covering a rectangle at one
// zoom level, plus the pixel crop that trims the stitched canvas down to
// the requested area. Ranges are inclusive. XMin > XMax means the grid
// wraps across the antimeridian; x indices are taken modulo 2^zoom.
type TileGrid struct {
	Zoom int

	XMin, XMax int
	YMin, YMax int

	// Crop is relative to the stitched canvas of
	// CountX*TileSize x CountY*TileSize pixels.
	Crop image.Rectangle
}

// CountX returns the number of tile columns, wrap-adjusted.
func (g TileGrid) CountX() int {
	n := 1 << g.Zoom
	return (g.XMax-g.XMin+n)%n + 1
}

// CountY returns the number of tile rows.
func (g TileGrid) CountY() int {
	return g.YMax - g.YMin + 1
}

// CanvasWidth returns the stitched canvas width in pixels.
func (g TileGrid) CanvasWidth() int { return g.CountX() * common.TileSize }

// CanvasHeight returns the stitched canvas height in pixels.
func (g TileGrid) CanvasHeight() int { return g.CountY() * common.TileSize }

// TileXs enumerates the x indices in stitch order, wrapping modulo 2^zoom.
func (g TileGrid) TileXs() []int {
	n := 1 << g.Zoom
	xs := make([]int, g.CountX())
	for i := range xs {
		xs[i] = (g.XMin + i) % n
	}
	return xs
}

// CenterTile returns the tile nearest the grid center, the cheapest
// representative for availability probing.
func (g TileGrid) CenterTile() (x, y int) {
	n := 1 << g.Zoom
	x = (g.XMin + g.CountX()/2) % n
	y = g.YMin + g.CountY()/2
	return x, y
}

// Map derives the tile grid and crop rectangle for a rectangle under a
// resolution policy. The same inputs always yield the same grid.
func Map(rect Rect, policy Policy) (TileGrid, error) {
	if err := policy.Validate(); err != nil {
		return TileGrid{}, err
	}
	if err := rect.validate(); err != nil {
		return TileGrid{}, err
	}

	zoom, err := resolveZoom(rect, policy)
	if err != nil {
		return TileGrid{}, err
	}

	// Fractional tile coordinates of the corners. xe is unwrapped past
	// 2^zoom when the rectangle crosses the antimeridian so that the
	// x extent stays a continuous interval.
	xw, yn := Project(Point{Lat: rect.NE.Lat, Lon: rect.SW.Lon}, zoom)
	xe, ys := Project(Point{Lat: rect.SW.Lat, Lon: rect.NE.Lon}, zoom)
	n := 1 << zoom
	if rect.Wraps() {
		xe += float64(n)
	}

	xMin := int(math.Floor(xw))
	xMaxU := int(math.Floor(xe))
	countX := xMaxU - xMin + 1
	if countX > n {
		return TileGrid{}, &InvalidExtentError{Reason: "rectangle spans more than the full globe on the x axis"}
	}

	yMin := clampInt(int(math.Floor(yn)), 0, n-1)
	yMax := clampInt(int(math.Floor(ys)), 0, n-1)

	g := TileGrid{
		Zoom: zoom,
		XMin: xMin % n,
		XMax: xMaxU % n,
		YMin: yMin,
		YMax: yMax,
	}

	g.Crop = cropRect(g, policy, xw, xe, yn, ys, xMin, yMin)
	return g, nil
}

// cropRect computes the pixel crop within the stitched canvas: the
// projected rectangle by default, overridden to the exact requested
// dimension (centered) on the axis a target-pixel policy constrains.
func cropRect(g TileGrid, policy Policy, xw, xe, yn, ys float64, xMin, yMin int) image.Rectangle {
	canvasW := g.CanvasWidth()
	canvasH := g.CanvasHeight()

	offX := int(math.Round((xw - float64(xMin)) * common.TileSize))
	offY := int(math.Round((yn - float64(yMin)) * common.TileSize))
	cropW := int(math.Round((xe - xw) * common.TileSize))
	cropH := int(math.Round((ys - yn) * common.TileSize))

	if policy.TargetWidthPx > 0 {
		cropW = policy.TargetWidthPx
		centerX := ((xw+xe)/2 - float64(xMin)) * common.TileSize
		offX = int(math.Round(centerX - float64(cropW)/2))
	}
	if policy.TargetHeightPx > 0 {
		cropH = policy.TargetHeightPx
		centerY := ((yn+ys)/2 - float64(yMin)) * common.TileSize
		offY = int(math.Round(centerY - float64(cropH)/2))
	}

	cropW = clampInt(cropW, 1, canvasW)
	cropH = clampInt(cropH, 1, canvasH)
	offX = clampInt(offX, 0, canvasW-cropW)
	offY = clampInt(offY, 0, canvasH-cropH)

	return image.Rect(offX, offY, offX+cropW, offY+cropH)
}

func resolveZoom(rect Rect, policy Policy) (int, error) {
	if policy.MaxTileCount > 0 {
		return zoomForTileCount(rect, policy.MaxTileCount)
	}

	center := rect.Center()
	metersPerDegree := common.EarthCircumference / 360
	widthM := rect.LonSpan() * metersPerDegree * math.Cos(center.Lat*math.Pi/180)
	heightM := (rect.NE.Lat - rect.SW.Lat) * metersPerDegree

	var maxMpp float64
	if policy.TargetWidthPx > 0 {
		maxMpp = widthM / float64(policy.TargetWidthPx)
	} else {
		maxMpp = heightM / float64(policy.TargetHeightPx)
	}
	return zoomForMetersPerPixel(center.Lat, maxMpp)
}

// zoomForTileCount picks the highest zoom level whose tile span does not
// exceed the cap on either axis.
func zoomForTileCount(rect Rect, maxTiles int) (int, error) {
	for zoom := common.MaxZoom; zoom >= 0; zoom-- {
		xw, yn := Project(Point{Lat: rect.NE.Lat, Lon: rect.SW.Lon}, zoom)
		xe, ys := Project(Point{Lat: rect.SW.Lat, Lon: rect.NE.Lon}, zoom)
		if rect.Wraps() {
			xe += float64(int(1) << zoom)
		}

		countX := int(math.Floor(xe)) - int(math.Floor(xw)) + 1
		countY := int(math.Floor(ys)) - int(math.Floor(yn)) + 1
		if countX <= maxTiles && countY <= maxTiles {
			return zoom, nil
		}
	}
	return 0, &InvalidExtentError{Reason: fmt.Sprintf("no zoom level fits the rectangle in %d tiles per axis", maxTiles)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
