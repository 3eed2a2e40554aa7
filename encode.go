package imageexport

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Encoding errors. All of them are terminal to a single write task.
var (
	// ErrUnsupportedExtension is returned for extensions no codec
	// handles. The write is skipped, not crashed.
	ErrUnsupportedExtension = errors.New("imageexport: unsupported image extension")

	// ErrPixelSizeMismatch is returned when the byte buffer does not
	// match width*height at the extension's texel size.
	ErrPixelSizeMismatch = errors.New("imageexport: pixel buffer size mismatch")
)

// saveImage persists one depadded, cropped frame as
// {outputDir}/{frameID:05d}.{ext}. The directory is created recursively;
// failure to create it is fatal to this write only.
func saveImage(outputDir, ext string, frameID uint64, data []byte, width, height uint32) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outputDir, fmt.Sprintf("%05d.%s", frameID, ext))

	switch ext {
	case "exr":
		return saveEXR(path, data, width, height)
	case "png", "jpg", "jpeg", "bmp", "tiff":
		return saveRGBA8(path, ext, data, width, height)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// saveRGBA8 interprets data as tightly packed 8-bit RGBA rows and writes
// it in the container format named by ext.
func saveRGBA8(path, ext string, data []byte, width, height uint32) error {
	if uint64(len(data)) != 4*uint64(width)*uint64(height) {
		return fmt.Errorf("%w: got %d bytes for %dx%d rgba8",
			ErrPixelSizeMismatch, len(data), width, height)
	}

	// Straight (non-premultiplied) alpha, matching what render targets
	// hold and what the codecs expect.
	img := &image.NRGBA{
		Pix:    data,
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	switch ext {
	case "png":
		err = png.Encode(f, img)
	case "jpg", "jpeg":
		err = jpeg.Encode(f, img, nil)
	case "bmp":
		err = bmp.Encode(f, img)
	case "tiff":
		err = tiff.Encode(f, img, nil)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
