package geo

import (
	"fmt"
	"math"

	"imagery-timelapse/internal/common"
)

// Point is a latitude-longitude pair, in that order per ISO 6709.
type Point struct {
	Lat float64
	Lon float64
}

func (p Point) String() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lon)
}

// Rect is a geographic rectangle between two points. SW must be the
// southwestern corner and NE the northeastern one:
//
//	   +---+ ne
//	   |   |
//	sw +---+
//
// SW.Lon > NE.Lon is legal and means the rectangle stretches across the
// antimeridian.
type Rect struct {
	SW Point
	NE Point
}

// RectAround builds a rectangle of the given size in meters centered on a
// point. Widths are converted to degrees using the local parallel scale,
// so high-latitude rectangles span more longitude for the same meters.
func RectAround(center Point, widthM, heightM float64) (Rect, error) {
	if widthM <= 0 || heightM <= 0 {
		return Rect{}, &InvalidExtentError{Reason: fmt.Sprintf("width and height must be positive, got %gx%g", widthM, heightM)}
	}

	metersPerDegree := common.EarthCircumference / 360

	widthDeg := widthM / (metersPerDegree * math.Cos(center.Lat*math.Pi/180))
	heightDeg := heightM / metersPerDegree

	if widthDeg > 360 {
		return Rect{}, &InvalidExtentError{Reason: fmt.Sprintf("width %gm spans more than the full globe at latitude %f", widthM, center.Lat)}
	}

	sw := Point{Lat: center.Lat - heightDeg/2, Lon: normalizeLon(center.Lon - widthDeg/2)}
	ne := Point{Lat: center.Lat + heightDeg/2, Lon: normalizeLon(center.Lon + widthDeg/2)}

	if sw.Lat < common.MinLat || ne.Lat > common.MaxLat {
		return Rect{}, &InvalidExtentError{Reason: fmt.Sprintf("rectangle crosses the Web Mercator latitude limit (%f..%f)", sw.Lat, ne.Lat)}
	}

	return Rect{SW: sw, NE: ne}, nil
}

// Center returns the rectangle's midpoint, wrap-aware on the lon axis.
func (r Rect) Center() Point {
	return Point{
		Lat: (r.SW.Lat + r.NE.Lat) / 2,
		Lon: normalizeLon(r.SW.Lon + r.LonSpan()/2),
	}
}

// LonSpan returns the longitudinal extent in degrees, in (0, 360].
func (r Rect) LonSpan() float64 {
	span := r.NE.Lon - r.SW.Lon
	if span <= 0 {
		span += 360
	}
	return span
}

// Wraps reports whether the rectangle stretches across the antimeridian.
func (r Rect) Wraps() bool {
	return r.NE.Lon < r.SW.Lon
}

func (r Rect) validate() error {
	if r.SW.Lat > r.NE.Lat {
		return &InvalidExtentError{Reason: fmt.Sprintf("southwest latitude %f above northeast latitude %f", r.SW.Lat, r.NE.Lat)}
	}
	if r.SW.Lat < common.MinLat || r.NE.Lat > common.MaxLat {
		return &InvalidExtentError{Reason: fmt.Sprintf("latitude range %f..%f outside Web Mercator limits", r.SW.Lat, r.NE.Lat)}
	}
	return nil
}

// Project applies the Web Mercator projection, returning fractional tile
// coordinates at the given zoom. Fractions are kept (no flooring) so that
// stitched canvases can be cropped to the exact configured area.
func Project(p Point, zoom int) (x, y float64) {
	factor := float64(int(1)<<zoom) / (2 * math.Pi)
	latRad := p.Lat * math.Pi / 180
	lonRad := p.Lon * math.Pi / 180

	x = factor * (lonRad + math.Pi)
	y = factor * (math.Pi - math.Log(math.Tan(math.Pi/4+latRad/2)))
	return x, y
}

// MetersPerPixel returns the ground resolution of one tile pixel at the
// given latitude and zoom.
func MetersPerPixel(lat float64, zoom int) float64 {
	return common.EarthCircumference * math.Cos(lat*math.Pi/180) / float64(int(common.TileSize)<<zoom)
}

// zoomForMetersPerPixel returns the outermost (lowest) zoom level whose
// ground resolution still satisfies the constraint.
func zoomForMetersPerPixel(lat, maxMetersPerPixel float64) (int, error) {
	for zoom := 0; zoom <= common.MaxZoom; zoom++ {
		if MetersPerPixel(lat, zoom) <= maxMetersPerPixel {
			return zoom, nil
		}
	}
	return 0, &InvalidExtentError{Reason: fmt.Sprintf("requested resolution %g m/px needs a zoom level beyond %d", maxMetersPerPixel, common.MaxZoom)}
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
