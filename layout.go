package imageexport

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// CopyBytesPerRowAlignment is the row pitch alignment required by
// texture-to-buffer copies. WebGPU (and DX12) require BytesPerRow in
// a buffer copy to be a multiple of 256 bytes.
const CopyBytesPerRowAlignment = 256

// ErrUnsupportedFormat is returned when a texture format has no known
// texel size. Export targets are limited to 8-bit and 32-bit float RGBA.
var ErrUnsupportedFormat = fmt.Errorf("imageexport: unsupported texture format")

// RowLayout describes how one frame of pixel data is laid out inside a
// readback buffer: the tight row size, the device-aligned row pitch used
// by the copy command, and the total buffer size.
type RowLayout struct {
	// BytesPerRow is the unpadded row size: width * bytes per texel.
	BytesPerRow uint32

	// PaddedBytesPerRow is BytesPerRow rounded up to
	// CopyBytesPerRowAlignment. Always >= BytesPerRow.
	PaddedBytesPerRow uint32

	// BufferSize is PaddedBytesPerRow * height.
	BufferSize uint64
}

// Padded reports whether rows carry alignment padding that must be
// stripped before encoding.
func (l RowLayout) Padded() bool {
	return l.PaddedBytesPerRow != l.BytesPerRow
}

// BytesPerTexel returns the texel size in bytes for the given format.
// Only the RGBA formats used by export targets are supported.
func BytesPerTexel(format gputypes.TextureFormat) (uint32, error) {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4, nil
	case gputypes.TextureFormatRGBA32Float:
		return 16, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

// AlignCopyBytesPerRow rounds n up to the next multiple of
// CopyBytesPerRowAlignment.
func AlignCopyBytesPerRow(n uint32) uint32 {
	return (n + CopyBytesPerRowAlignment - 1) &^ (CopyBytesPerRowAlignment - 1)
}

// AlignTextureWidth rounds a texture width up to the next multiple of 256
// texels. Some copy paths constrain the texture width itself rather than
// the row pitch; the excess columns are cropped out after readback.
func AlignTextureWidth(width uint32) uint32 {
	return (width + 255) &^ 255
}

// ComputeRowLayout computes the readback buffer layout for a texture of the
// given format and dimensions.
func ComputeRowLayout(format gputypes.TextureFormat, width, height uint32) (RowLayout, error) {
	texel, err := BytesPerTexel(format)
	if err != nil {
		return RowLayout{}, err
	}
	bytesPerRow := width * texel
	padded := AlignCopyBytesPerRow(bytesPerRow)
	return RowLayout{
		BytesPerRow:       bytesPerRow,
		PaddedBytesPerRow: padded,
		BufferSize:        uint64(padded) * uint64(height),
	}, nil
}
