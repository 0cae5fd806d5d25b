package naming

import (
	"fmt"
	"math"
	"strings"
	"time"

	"imagery-timelapse/internal/common"
	"imagery-timelapse/internal/geo"
)

// FrameFilename builds a provenance-rich name for one exported frame:
// source, version, tile index ranges, zoom and center, so a frame on
// disk can always be traced back to exactly what was fetched.
// Format: {source}_{datetime}_v{version}_x{xmin}-{xmax}_y{ymin}-{ymax}_z{zoom}_{lat}_{lon}.{ext}
func FrameFilename(source string, t time.Time, version common.Version, grid geo.TileGrid, center geo.Point, ext string) string {
	return fmt.Sprintf("%s_%s_v%s_x%d-%d_y%d-%d_z%d_%s_%s.%s",
		source,
		t.Format("2006-01-02T15.04.05"),
		version,
		grid.XMin, grid.XMax,
		grid.YMin, grid.YMax,
		grid.Zoom,
		SanitizeCoordinate(center.Lat, true),
		SanitizeCoordinate(center.Lon, false),
		ext)
}

// SequenceFilename builds a name for the assembled animation.
// Format: {source}_{datetime}_v{oldest}-{newest}_z{zoom}_{lat}_{lon}.{ext}
func SequenceFilename(source string, t time.Time, oldest, newest common.Version, grid geo.TileGrid, center geo.Point, ext string) string {
	return fmt.Sprintf("%s_%s_v%s-%s_z%d_%s_%s.%s",
		source,
		t.Format("2006-01-02T15.04.05"),
		oldest, newest,
		grid.Zoom,
		SanitizeCoordinate(center.Lat, true),
		SanitizeCoordinate(center.Lon, false),
		ext)
}

// SanitizeCoordinate formats a coordinate for use in filenames: N/S/E/W
// instead of a minus sign, 'p' instead of the decimal point for Windows
// compatibility.
func SanitizeCoordinate(coord float64, isLat bool) string {
	var dir string
	if isLat {
		dir = "N"
		if coord < 0 {
			dir = "S"
		}
	} else {
		dir = "E"
		if coord < 0 {
			dir = "W"
		}
	}
	coordStr := fmt.Sprintf("%.4f", math.Abs(coord))
	return strings.Replace(coordStr, ".", "p", 1) + dir
}
