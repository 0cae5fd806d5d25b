package geotiff

import (
	"fmt"
	"image"
	"os"
)

// Georef ties raster pixel (0,0) to EPSG:3857 model coordinates.
// PixelHeight is negative for north-up rasters.
type Georef struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64
}

// Save writes img to path as a GeoTIFF projected in Web Mercator.
func Save(path string, img image.Image, ref Georef) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	extraTags := make(map[uint16]interface{})

	// GeoKeyDirectory: version 1.1.0, 3 keys.
	// 1024 GTModelType = 1 (projected), 1025 GTRasterType = 1
	// (PixelIsArea), 3072 ProjectedCSType = 3857.
	extraTags[tagGeoKeyDirectory] = []uint16{
		1, 1, 0, 3,
		1024, 0, 1, 1,
		1025, 0, 1, 1,
		3072, 0, 1, 3857,
	}

	scaleY := ref.PixelHeight
	if scaleY < 0 {
		scaleY = -scaleY
	}
	extraTags[tagModelPixelScale] = []float64{ref.PixelWidth, scaleY, 0.0}
	extraTags[tagModelTiepoint] = []float64{0.0, 0.0, 0.0, ref.OriginX, ref.OriginY, 0.0}

	if err := Encode(f, img, extraTags); err != nil {
		return fmt.Errorf("failed to encode GeoTIFF: %w", err)
	}
	return nil
}
