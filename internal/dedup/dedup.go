package dedup

import (
	"crypto/sha256"
	"encoding/binary"
	"image"

	"imagery-timelapse/internal/assemble"
)

// Fingerprint hashes a frame's pixel content. Exact, not perceptual:
// bit-identical source tiles always stitch to bit-identical frames, so an
// exact content hash is sufficient to collapse re-published versions.
// Dimensions are mixed in so a blank 2x8 never collides with a blank 4x4.
func Fingerprint(img *image.RGBA) [sha256.Size]byte {
	h := sha256.New()

	bounds := img.Bounds()
	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[:8], uint64(bounds.Dx()))
	binary.LittleEndian.PutUint64(dims[8:], uint64(bounds.Dy()))
	h.Write(dims[:])

	// Hash row by row; Pix may carry stride padding beyond the bounds.
	rowLen := bounds.Dx() * 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		start := img.PixOffset(bounds.Min.X, y)
		h.Write(img.Pix[start : start+rowLen])
	}

	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sum
}

// Dedup collapses consecutive runs of identical frame content, keeping
// each run's earliest representative. A pure reducer: frames come in the
// order the caller chose (oldest→newest or the reverse), leave in the
// same order, and are never re-requested or mutated. Provenance survives
// on the retained frames.
func Dedup(frames []*assemble.Frame) []*assemble.Frame {
	out := make([]*assemble.Frame, 0, len(frames))

	var last [sha256.Size]byte
	for i, frame := range frames {
		fp := Fingerprint(frame.Image)
		if i > 0 && fp == last {
			continue
		}
		out = append(out, frame)
		last = fp
	}
	return out
}
