package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"imagery-timelapse/internal/geo"
)

func TestSanitizeCoordinate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "38p9001N", SanitizeCoordinate(38.900068, true))
	assert.Equal(t, "33p8568S", SanitizeCoordinate(-33.8568, true))
	assert.Equal(t, "77p0366W", SanitizeCoordinate(-77.036555, false))
	assert.Equal(t, "151p2153E", SanitizeCoordinate(151.2153, false))
}

func TestFrameFilename(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC)
	grid := geo.TileGrid{Zoom: 16, XMin: 18741, XMax: 18743, YMin: 25070, YMax: 25071}
	center := geo.Point{Lat: 38.900068, Lon: -77.036555}

	name := FrameFilename("google-kh", ts, 904, grid, center, "png")
	assert.Equal(t,
		"google-kh_2026-08-31T14.30.05_v904_x18741-18743_y25070-25071_z16_38p9001N_77p0366W.png",
		name)
}

func TestSequenceFilename(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC)
	grid := geo.TileGrid{Zoom: 16, XMin: 18741, XMax: 18743, YMin: 25070, YMax: 25071}
	center := geo.Point{Lat: 38.900068, Lon: -77.036555}

	name := SequenceFilename("google-kh", ts, 865, 904, grid, center, "gif")
	assert.Equal(t,
		"google-kh_2026-08-31T14.30.05_v865-904_z16_38p9001N_77p0366W.gif",
		name)
}
