package common

// Shared constants for tile handling and Web Mercator math.
const (
	// TileSize is the edge length of a provider tile in pixels
	TileSize = 256

	// EarthCircumference is the equatorial circumference in meters
	EarthCircumference = 40075016.686

	// MinLat / MaxLat are the Web Mercator latitude limits
	MinLat = -85.051129
	MaxLat = 85.051129

	MinLon = -180.0
	MaxLon = 180.0

	// MaxZoom is the highest zoom level observed anywhere on the kh
	// endpoint (19-20 is the practical ceiling in most places)
	MaxZoom = 23

	// DefaultWorkers is the default number of concurrent tile fetches
	DefaultWorkers = 10
)

// Progress reports the state of a multi-tile operation.
type Progress struct {
	Downloaded     int    `json:"downloaded"`
	Total          int    `json:"total"`
	Percent        int    `json:"percent"`
	Status         string `json:"status"`
	CurrentVersion int    `json:"currentVersion"` // For multi-version runs
	TotalVersions  int    `json:"totalVersions"`
}

// ProgressFunc receives progress updates during a run. Callbacks must be
// safe to call from multiple goroutines.
type ProgressFunc func(Progress)
