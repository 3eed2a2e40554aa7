package imageexport

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrjoshuak/go-openexr/exr"
)

// packRGBA32F interleaves pixels as little-endian 32-bit float RGBA, the
// byte layout read back from an RGBA32Float texture.
func packRGBA32F(pixels [][4]float32) []byte {
	data := make([]byte, 0, len(pixels)*16)
	var b [4]byte
	for _, px := range pixels {
		for _, v := range px {
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
			data = append(data, b[:]...)
		}
	}
	return data
}

// EXR channels are stored as full 32-bit floats: every value must survive
// a write-and-reread cycle bit-for-bit, including values outside [0,1] and
// values with no exact binary representation.
func TestSaveEXRRoundTrip(t *testing.T) {
	const w, h = 3, 2
	pixels := [][4]float32{
		{0, 0.25, 0.5, 1},
		{0.1, 0.2, 0.3, 0.4},
		{-2.75, 1.5, 3.125, 0.625},
		{1e6, 1e-6, 0.0078125, 1},
		{0.123456789, 0.987654321, 0.5555555, 0.25},
		{42, 0, -0.5, 0.75},
	}
	path := filepath.Join(t.TempDir(), "00001.exr")

	if err := saveEXR(path, packRGBA32F(pixels), w, h); err != nil {
		t.Fatalf("saveEXR: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("missing or empty output: %v", err)
	}

	f, err := exr.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	in, err := exr.NewScanlineReader(f)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	fb := exr.NewFrameBuffer()
	for _, name := range exrChannels {
		fb.Insert(name, exr.NewSliceFromFloat32(make([]float32, w*h), w, h))
	}
	in.SetFrameBuffer(fb)
	if err := in.ReadPixels(0, h-1); err != nil {
		t.Fatalf("read: %v", err)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c, name := range exrChannels {
				want := pixels[y*w+x][c]
				got := fb.Get(name).GetFloat32(x, y)
				if got != want {
					t.Errorf("texel (%d,%d) channel %s = %v, want %v", x, y, name, got, want)
				}
			}
		}
	}
}
