package imageexport

import (
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// PNG is lossless: a frame must decode to the exact texel values that were
// encoded. The decoded concrete type varies with the content (the encoder
// drops the alpha channel for fully opaque images, which decode as RGBA),
// so texels are compared through the NRGBA color model.
func TestSaveImagePNGRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		texel [4]byte
	}{
		{"opaque", [4]byte{10, 200, 30, 255}},
		{"translucent", [4]byte{10, 200, 30, 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			const w, h = 16, 12
			data := solidRGBA(w, h, tt.texel)

			if err := saveImage(dir, "png", 7, data, w, h); err != nil {
				t.Fatalf("saveImage: %v", err)
			}

			f, err := os.Open(filepath.Join(dir, "00007.png"))
			if err != nil {
				t.Fatalf("expected zero-padded file name: %v", err)
			}
			defer f.Close()

			img, err := png.Decode(f)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
				t.Fatalf("decoded %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), w, h)
			}
			want := color.NRGBA{tt.texel[0], tt.texel[1], tt.texel[2], tt.texel[3]}
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
					if got != want {
						t.Fatalf("texel (%d,%d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestSaveImageCreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	data := solidRGBA(4, 4, [4]byte{1, 2, 3, 4})
	if err := saveImage(dir, "png", 1, data, 4, 4); err != nil {
		t.Fatalf("saveImage: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "00001.png")); err != nil {
		t.Fatalf("missing output: %v", err)
	}
}

func TestSaveImageSizeMismatch(t *testing.T) {
	err := saveImage(t.TempDir(), "png", 1, make([]byte, 10), 4, 4)
	if !errors.Is(err, ErrPixelSizeMismatch) {
		t.Fatalf("err = %v, want ErrPixelSizeMismatch", err)
	}
}

func TestSaveImageUnsupportedExtension(t *testing.T) {
	err := saveImage(t.TempDir(), "gif", 1, solidRGBA(2, 2, [4]byte{}), 2, 2)
	if !errors.Is(err, ErrUnsupportedExtension) {
		t.Fatalf("err = %v, want ErrUnsupportedExtension", err)
	}
}

func TestSaveImageContainerFormats(t *testing.T) {
	for _, ext := range []string{"jpg", "jpeg", "bmp", "tiff"} {
		t.Run(ext, func(t *testing.T) {
			dir := t.TempDir()
			if err := saveImage(dir, ext, 3, solidRGBA(8, 8, [4]byte{50, 60, 70, 255}), 8, 8); err != nil {
				t.Fatalf("saveImage: %v", err)
			}
			info, err := os.Stat(filepath.Join(dir, "00003."+ext))
			if err != nil {
				t.Fatalf("missing output: %v", err)
			}
			if info.Size() == 0 {
				t.Fatal("wrote empty file")
			}
		})
	}
}

func TestSaveEXRSizeMismatch(t *testing.T) {
	err := saveEXR(filepath.Join(t.TempDir(), "00001.exr"), make([]byte, 10), 4, 4)
	if !errors.Is(err, ErrPixelSizeMismatch) {
		t.Fatalf("err = %v, want ErrPixelSizeMismatch", err)
	}
}
