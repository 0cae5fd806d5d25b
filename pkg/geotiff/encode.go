// Package geotiff writes uncompressed RGBA TIFF files with embedded
// GeoTIFF georeferencing tags. Only the handful of tags needed for a
// single-strip EPSG:3857 raster are implemented; pulling in a full TIFF
// dependency for that is not worth it.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"sort"
)

const (
	dtByte     = 1
	dtASCII    = 2
	dtShort    = 3
	dtLong     = 4
	dtRational = 5
	dtDouble   = 12

	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagXResolution               = 282
	tagYResolution               = 283
	tagResolutionUnit            = 296
	tagExtraSamples              = 338

	// GeoTIFF tags
	tagModelPixelScale   = 33550
	tagModelTiepoint     = 33922
	tagGeoKeyDirectory   = 34735
)

var enc = binary.LittleEndian

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	data     []byte
}

// Encode writes m to w as a single-strip uncompressed RGBA TIFF.
// extraTags maps tag id to []uint16 (SHORT), []float64 (DOUBLE) or
// string (ASCII) values.
func Encode(w io.Writer, m image.Image, extraTags map[uint16]interface{}) error {
	bounds := m.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Header: little endian (II), version 42, first IFD at offset 8.
	if _, err := w.Write([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00}); err != nil {
		return err
	}

	// Pixel data as one strip of 8-bit RGBA samples.
	pixels := make([]byte, 0, width*height*4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := m.At(x, y).RGBA()
			pixels = append(pixels, uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
		}
	}

	var entries []ifdEntry
	addEntry := func(tag, datatype uint16, count uint32, data []byte) {
		entries = append(entries, ifdEntry{tag, datatype, count, data})
	}

	addEntry(tagImageWidth, dtShort, 1, enc16(uint16(width)))
	addEntry(tagImageLength, dtShort, 1, enc16(uint16(height)))
	addEntry(tagBitsPerSample, dtShort, 4, enc16s([]uint16{8, 8, 8, 8}))
	addEntry(tagCompression, dtShort, 1, enc16(1))               // none
	addEntry(tagPhotometricInterpretation, dtShort, 1, enc16(2)) // RGB
	addEntry(tagSamplesPerPixel, dtShort, 1, enc16(4))
	addEntry(tagRowsPerStrip, dtShort, 1, enc16(uint16(height)))
	addEntry(tagXResolution, dtRational, 1, encRational(72, 1))
	addEntry(tagYResolution, dtRational, 1, encRational(72, 1))
	addEntry(tagResolutionUnit, dtShort, 1, enc16(2)) // inch
	addEntry(tagExtraSamples, dtShort, 1, enc16(2))   // unassociated alpha

	// Filled in once the pixel offset is known.
	addEntry(tagStripOffsets, dtLong, 1, make([]byte, 4))
	addEntry(tagStripByteCounts, dtLong, 1, make([]byte, 4))

	for tag, val := range extraTags {
		switch v := val.(type) {
		case []uint16:
			addEntry(tag, dtShort, uint32(len(v)), enc16s(v))
		case []float64:
			addEntry(tag, dtDouble, uint32(len(v)), encDoubles(v))
		case string:
			b := append([]byte(v), 0) // ASCII values are null terminated
			addEntry(tag, dtASCII, uint32(len(b)), b)
		default:
			return fmt.Errorf("unsupported tag value type for tag %d", tag)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Layout: header (8) | IFD | out-of-line values | pixel strip.
	// Values wider than 4 bytes move to the value area and the entry
	// holds their offset instead.
	ifdSize := 2 + 12*len(entries) + 4
	valueDataOffset := 8 + ifdSize

	var valueData bytes.Buffer
	for i := range entries {
		e := &entries[i]
		if len(e.data) <= 4 {
			continue
		}
		offset := uint32(valueDataOffset + valueData.Len())
		valueData.Write(e.data)
		e.data = enc32(offset)
	}

	pixelsOffset := uint32(valueDataOffset + valueData.Len())
	for i := range entries {
		switch entries[i].tag {
		case tagStripOffsets:
			entries[i].data = enc32(pixelsOffset)
		case tagStripByteCounts:
			entries[i].data = enc32(uint32(len(pixels)))
		}
	}

	if err := binary.Write(w, enc, uint16(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := binary.Write(w, enc, e.tag); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.datatype); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.count); err != nil {
			return err
		}
		var val [4]byte
		copy(val[:], e.data)
		if _, err := w.Write(val[:]); err != nil {
			return err
		}
	}
	if err := binary.Write(w, enc, uint32(0)); err != nil { // no next IFD
		return err
	}

	if _, err := valueData.WriteTo(w); err != nil {
		return err
	}
	_, err := w.Write(pixels)
	return err
}

func enc16(v uint16) []byte {
	b := make([]byte, 2)
	enc.PutUint16(b, v)
	return b
}

func enc32(v uint32) []byte {
	b := make([]byte, 4)
	enc.PutUint32(b, v)
	return b
}

func enc16s(vs []uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		enc.PutUint16(b[i*2:], v)
	}
	return b
}

func encDoubles(vs []float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		enc.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

func encRational(num, den uint32) []byte {
	b := make([]byte, 8)
	enc.PutUint32(b[:4], num)
	enc.PutUint32(b[4:], den)
	return b
}
