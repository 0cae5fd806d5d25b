package dedup

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagery-timelapse/internal/assemble"
	"imagery-timelapse/internal/common"
)

func solidFrame(version common.Version, w, h int, fill uint8) *assemble.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	return &assemble.Frame{Version: version, Image: img}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	t.Run("identical content matches", func(t *testing.T) {
		t.Parallel()
		a := solidFrame(900, 64, 64, 10)
		b := solidFrame(901, 64, 64, 10)
		assert.Equal(t, Fingerprint(a.Image), Fingerprint(b.Image))
	})

	t.Run("single pixel difference changes the hash", func(t *testing.T) {
		t.Parallel()
		a := solidFrame(900, 64, 64, 10)
		b := solidFrame(900, 64, 64, 10)
		b.Image.Pix[0] ^= 1
		assert.NotEqual(t, Fingerprint(a.Image), Fingerprint(b.Image))
	})

	t.Run("dimensions are part of the identity", func(t *testing.T) {
		t.Parallel()
		a := solidFrame(900, 32, 128, 0)
		b := solidFrame(900, 64, 64, 0)
		assert.NotEqual(t, Fingerprint(a.Image), Fingerprint(b.Image))
	})

	t.Run("subimage stride is handled", func(t *testing.T) {
		t.Parallel()
		big := image.NewRGBA(image.Rect(0, 0, 100, 100))
		for i := range big.Pix {
			big.Pix[i] = 7
		}
		sub := big.SubImage(image.Rect(10, 10, 42, 42)).(*image.RGBA)
		plain := solidFrame(900, 32, 32, 7)
		assert.Equal(t, Fingerprint(plain.Image), Fingerprint(sub))
	})
}

func TestDedup(t *testing.T) {
	t.Parallel()

	t.Run("collapses a run keeping the earliest", func(t *testing.T) {
		t.Parallel()
		frames := []*assemble.Frame{
			solidFrame(900, 16, 16, 1),
			solidFrame(901, 16, 16, 1),
			solidFrame(902, 16, 16, 1),
			solidFrame(903, 16, 16, 2),
		}
		out := Dedup(frames)
		require.Len(t, out, 2)
		assert.Equal(t, common.Version(900), out[0].Version)
		assert.Equal(t, common.Version(903), out[1].Version)
	})

	t.Run("interior run collapses at its first frame", func(t *testing.T) {
		t.Parallel()
		frames := []*assemble.Frame{
			solidFrame(900, 16, 16, 1),
			solidFrame(901, 16, 16, 2),
			solidFrame(902, 16, 16, 2),
			solidFrame(903, 16, 16, 2),
			solidFrame(904, 16, 16, 3),
		}
		out := Dedup(frames)
		require.Len(t, out, 3)
		assert.Equal(t, common.Version(900), out[0].Version)
		assert.Equal(t, common.Version(901), out[1].Version)
		assert.Equal(t, common.Version(904), out[2].Version)
	})

	t.Run("non-adjacent duplicates are retained", func(t *testing.T) {
		t.Parallel()
		// A-B-A: only consecutive runs collapse; a reverted change is
		// still a change.
		frames := []*assemble.Frame{
			solidFrame(900, 16, 16, 1),
			solidFrame(901, 16, 16, 2),
			solidFrame(902, 16, 16, 1),
		}
		out := Dedup(frames)
		assert.Len(t, out, 3)
	})

	t.Run("first frame always survives", func(t *testing.T) {
		t.Parallel()
		frames := []*assemble.Frame{solidFrame(900, 16, 16, 1)}
		out := Dedup(frames)
		require.Len(t, out, 1)
		assert.Same(t, frames[0], out[0])
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Dedup(nil))
	})

	t.Run("order is preserved", func(t *testing.T) {
		t.Parallel()
		frames := []*assemble.Frame{
			solidFrame(904, 16, 16, 4),
			solidFrame(903, 16, 16, 3),
			solidFrame(902, 16, 16, 2),
		}
		out := Dedup(frames)
		require.Len(t, out, 3)
		assert.Equal(t, common.Version(904), out[0].Version)
		assert.Equal(t, common.Version(902), out[2].Version)
	})
}
