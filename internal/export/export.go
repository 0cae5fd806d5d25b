// Package export turns an assembled frame sequence into deliverables:
// an animated GIF, a Motion JPEG AVI, or per-frame stills (PNG, WebP,
// GeoTIFF) with provenance-rich filenames.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/icza/mjpeg"
	"golang.org/x/image/draw"

	"imagery-timelapse/internal/assemble"
	"imagery-timelapse/internal/common"
	"imagery-timelapse/internal/geo"
	"imagery-timelapse/internal/utils/naming"
	"imagery-timelapse/pkg/geotiff"
)

// Options controls rendering and encoding of exported frames.
type Options struct {
	// FrameDelay is the display time of each frame in seconds.
	FrameDelay float64

	// Quality is the JPEG quality (0-100) used for AVI frames and WebP.
	Quality int

	// Width and Height scale the output. Zero keeps the source size;
	// setting only one preserves the aspect ratio.
	Width  int
	Height int

	Label LabelOptions

	Logger *slog.Logger
}

// DefaultOptions returns the defaults used when a field is zero.
func DefaultOptions() Options {
	return Options{
		FrameDelay: 0.5,
		Quality:    90,
		Label:      DefaultLabelOptions(),
	}
}

// Exporter renders frames (scaling, version label) and encodes them.
type Exporter struct {
	opts   Options
	label  *labeler
	logger *slog.Logger
}

func New(opts Options) (*Exporter, error) {
	if opts.FrameDelay <= 0 {
		opts.FrameDelay = 0.5
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 90
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Exporter{opts: opts, logger: logger}
	if opts.Label.Show {
		label, err := newLabeler(opts.Label)
		if err != nil {
			// A missing font should not sink the whole export.
			logger.Warn("label overlay disabled", "error", err)
		} else {
			e.label = label
		}
	}
	return e, nil
}

// Close releases the label font face, if any.
func (e *Exporter) Close() error {
	if e.label != nil {
		return e.label.Close()
	}
	return nil
}

// WriteGIF encodes the sequence as an animated GIF with Floyd-Steinberg
// dithering. The GIF loops forever.
func (e *Exporter) WriteGIF(path string, frames []*assemble.Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to export")
	}

	delay := int(e.opts.FrameDelay * 100) // hundredths of a second
	if delay < 1 {
		delay = 1
	}

	images := make([]*image.Paletted, 0, len(frames))
	delays := make([]int, 0, len(frames))
	for _, frame := range frames {
		rendered := e.render(frame)
		bounds := rendered.Bounds()
		paletted := image.NewPaletted(bounds, palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, bounds, rendered, image.Point{})
		images = append(images, paletted)
		delays = append(delays, delay)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	first := images[0].Bounds()
	err = gif.EncodeAll(f, &gif.GIF{
		Image:     images,
		Delay:     delays,
		LoopCount: 0,
		Config: image.Config{
			Width:  first.Dx(),
			Height: first.Dy(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode GIF: %w", err)
	}

	e.logger.Info("GIF exported", "path", path, "frames", len(frames))
	return nil
}

// WriteAVI encodes the sequence as a Motion JPEG AVI, which plays
// everywhere without an external encoder.
func (e *Exporter) WriteAVI(path string, frames []*assemble.Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to export")
	}

	fps := int32(math.Round(1.0 / e.opts.FrameDelay))
	if fps < 1 {
		fps = 1
	}
	if fps > 30 {
		fps = 30
	}

	first := e.render(frames[0])
	width := int32(first.Bounds().Dx())
	height := int32(first.Bounds().Dy())

	writer, err := mjpeg.New(path, width, height, fps)
	if err != nil {
		return fmt.Errorf("failed to create video writer: %w", err)
	}
	defer writer.Close()

	for i, frame := range frames {
		rendered := first
		if i > 0 {
			rendered = e.render(frame)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, rendered, &jpeg.Options{Quality: e.opts.Quality}); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to add frame %d: %w", i, err)
		}
	}

	e.logger.Info("AVI exported", "path", path, "frames", len(frames), "fps", fps)
	return nil
}

// SaveFrames writes each frame as a separate still into dir. Supported
// formats: "png", "webp", "tiff" (GeoTIFF with Web Mercator
// georeferencing). Filenames carry the version, tile range, zoom and
// center so frames on disk stay traceable.
func (e *Exporter) SaveFrames(dir, source, format string, frames []*assemble.Frame, center geo.Point) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to export")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	now := time.Now()
	for _, frame := range frames {
		name := naming.FrameFilename(source, now, frame.Version, frame.Grid, center, format)
		path := filepath.Join(dir, name)
		if err := e.saveFrame(path, format, frame); err != nil {
			return fmt.Errorf("version %s: %w", frame.Version, err)
		}
	}

	e.logger.Info("frames exported", "dir", dir, "format", format, "count", len(frames))
	return nil
}

func (e *Exporter) saveFrame(path, format string, frame *assemble.Frame) error {
	rendered := e.render(frame)

	switch format {
	case "png":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer f.Close()
		return png.Encode(f, rendered)
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer f.Close()
		return nativewebp.Encode(f, rendered, nil)
	case "tiff":
		// Georeferencing is computed from the unscaled grid; the label
		// overlay would corrupt the raster, so GeoTIFFs get the plain
		// crop regardless of options.
		return geotiff.Save(path, frame.Image, GeorefFor(frame.Grid))
	default:
		return fmt.Errorf("unsupported frame format: %s (supported: png, webp, tiff)", format)
	}
}

// render scales the frame to the configured output size and stamps the
// version label. The source image is never mutated.
func (e *Exporter) render(frame *assemble.Frame) *image.RGBA {
	src := frame.Image
	width, height := e.outputSize(src.Bounds())

	var out *image.RGBA
	if width == src.Bounds().Dx() && height == src.Bounds().Dy() && e.label == nil {
		return src
	}

	out = image.NewRGBA(image.Rect(0, 0, width, height))
	if width == src.Bounds().Dx() && height == src.Bounds().Dy() {
		draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	if e.label != nil {
		e.label.Draw(out, frame.Version.String())
	}
	return out
}

func (e *Exporter) outputSize(src image.Rectangle) (int, int) {
	width, height := e.opts.Width, e.opts.Height
	switch {
	case width <= 0 && height <= 0:
		return src.Dx(), src.Dy()
	case width <= 0:
		return int(math.Round(float64(src.Dx()) * float64(height) / float64(src.Dy()))), height
	case height <= 0:
		return width, int(math.Round(float64(src.Dy()) * float64(width) / float64(src.Dx())))
	default:
		return width, height
	}
}

// GeorefFor derives the EPSG:3857 georeferencing of a grid's crop
// window. At zoom z the world spans one equator circumference across
// 2^z tiles, centered on the origin.
func GeorefFor(grid geo.TileGrid) geotiff.Georef {
	worldPx := float64(int64(1)<<grid.Zoom) * common.TileSize
	metersPerPx := common.EarthCircumference / worldPx
	half := common.EarthCircumference / 2

	originPxX := float64(grid.XMin)*common.TileSize + float64(grid.Crop.Min.X)
	originPxY := float64(grid.YMin)*common.TileSize + float64(grid.Crop.Min.Y)

	return geotiff.Georef{
		OriginX:     originPxX*metersPerPx - half,
		OriginY:     half - originPxY*metersPerPx,
		PixelWidth:  metersPerPx,
		PixelHeight: -metersPerPx,
	}
}
