package imageexport

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/mrjoshuak/go-openexr/exr"
)

// exrChannels is the channel order of the interleaved source bytes.
var exrChannels = [4]string{"R", "G", "B", "A"}

// saveEXR interprets data as tightly packed 32-bit float RGBA rows and
// writes a scanline EXR file with full-float R, G, B, A channels.
func saveEXR(path string, data []byte, width, height uint32) error {
	if uint64(len(data)) != 16*uint64(width)*uint64(height) {
		return fmt.Errorf("%w: got %d bytes for %dx%d rgba32float",
			ErrPixelSizeMismatch, len(data), width, height)
	}

	w, h := int(width), int(height)
	header := exr.NewScanlineHeader(w, h)
	cl := exr.NewChannelList()
	for _, name := range exrChannels {
		cl.Add(exr.NewChannel(name, exr.PixelTypeFloat))
	}
	header.SetChannels(cl)

	fb := exr.NewFrameBuffer()
	for _, name := range exrChannels {
		fb.Insert(name, exr.NewSliceFromFloat32(make([]float32, w*h), w, h))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := (y*w + x) * 16
			for c, name := range exrChannels {
				v := math.Float32frombits(binary.LittleEndian.Uint32(data[base+c*4:]))
				fb.Get(name).SetFloat32(x, y, v)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	out, err := exr.NewScanlineWriter(f, header)
	if err != nil {
		f.Close()
		return fmt.Errorf("create %s: %w", path, err)
	}
	out.SetFrameBuffer(fb)
	if err := out.WritePixels(0, h-1); err != nil {
		out.Close()
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
