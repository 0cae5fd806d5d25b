package export

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LabelOptions controls the version label stamped on exported frames.
type LabelOptions struct {
	Show     bool
	FontPath string
	FontSize float64
	Position string // "top-left", "top-right", "bottom-left", "bottom-right"
	Color    color.RGBA
	Shadow   bool
}

func DefaultLabelOptions() LabelOptions {
	return LabelOptions{
		FontSize: 24,
		Position: "bottom-right",
		Color:    color.RGBA{255, 255, 255, 255},
		Shadow:   true,
	}
}

type labeler struct {
	opts LabelOptions
	face font.Face
}

func newLabeler(opts LabelOptions) (*labeler, error) {
	if opts.FontPath == "" {
		return nil, fmt.Errorf("label font path not set")
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 24
	}

	fontBytes, err := os.ReadFile(opts.FontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	return &labeler{opts: opts, face: face}, nil
}

func (l *labeler) Close() error {
	return l.face.Close()
}

// Draw stamps text into the chosen corner with a drop shadow.
func (l *labeler) Draw(dst *image.RGBA, text string) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(l.opts.Color),
		Face: l.face,
	}

	bounds, _ := drawer.BoundString(text)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()
	textHeight := (bounds.Max.Y - bounds.Min.Y).Ceil()

	width := dst.Bounds().Dx()
	height := dst.Bounds().Dy()
	padding := 10

	var x, y int
	switch l.opts.Position {
	case "top-left":
		x = padding
		y = padding + textHeight
	case "top-right":
		x = width - textWidth - padding
		y = padding + textHeight
	case "bottom-left":
		x = padding
		y = height - padding
	default: // bottom-right
		x = width - textWidth - padding
		y = height - padding
	}

	if l.opts.Shadow {
		shadow := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(color.RGBA{0, 0, 0, 180}),
			Face: l.face,
			Dot:  fixed.P(x+1, y+1),
		}
		shadow.DrawString(text)
	}

	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)
}
