package imageexport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStripRowPadding(t *testing.T) {
	layout := RowLayout{BytesPerRow: 4, PaddedBytesPerRow: 8, BufferSize: 8 * 3}
	data := []byte{
		1, 2, 3, 4, 0xee, 0xee, 0xee, 0xee,
		5, 6, 7, 8, 0xee, 0xee, 0xee, 0xee,
		9, 10, 11, 12, 0xee, 0xee, 0xee, 0xee,
	}
	got := stripRowPadding(data, layout, 3)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

// Cropping keeps exactly the first targetWidth texels of each row.
func TestCropRowWidth(t *testing.T) {
	const width, target, height = 4, 2, 3
	var data []byte
	for y := byte(0); y < height; y++ {
		for x := byte(0); x < width; x++ {
			data = append(data, y, x, 0, 0xff)
		}
	}
	got := cropRowWidth(data, width*4, width, target)
	if len(got) != target*4*height {
		t.Fatalf("len = %d, want %d", len(got), target*4*height)
	}
	for y := byte(0); y < height; y++ {
		for x := byte(0); x < target; x++ {
			off := (int(y)*target + int(x)) * 4
			if got[off] != y || got[off+1] != x {
				t.Fatalf("texel (%d,%d) = (%d,%d), want (%d,%d)",
					x, y, got[off], got[off+1], y, x)
			}
		}
	}
}

func TestWritePoolWritesFile(t *testing.T) {
	dir := t.TempDir()
	pool := NewWritePool()
	pool.Submit(PendingWrite{
		Data:           solidRGBA(8, 8, [4]byte{255, 0, 0, 255}),
		Layout:         RowLayout{BytesPerRow: 32, PaddedBytesPerRow: 32, BufferSize: 32 * 8},
		Width:          8,
		Height:         8,
		RequestedWidth: 8,
		FrameID:        1,
		OutputDir:      dir,
		Extension:      "png",
	})
	pool.WaitUntilIdle()

	if _, err := os.Stat(filepath.Join(dir, "00001.png")); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

// WaitUntilIdle on an idle pool must return immediately.
func TestWaitUntilIdleIdempotent(t *testing.T) {
	pool := NewWritePool()
	start := time.Now()
	pool.WaitUntilIdle()
	pool.WaitUntilIdle()
	if elapsed := time.Since(start); elapsed > idlePollInterval {
		t.Fatalf("idle wait took %v", elapsed)
	}
	if pool.InFlight() != 0 {
		t.Fatalf("InFlight = %d, want 0", pool.InFlight())
	}
}

// A write that cannot create its output directory must still decrement
// the in-flight counter, or WaitUntilIdle would hang forever.
func TestFailedWriteDecrementsCounter(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	pool := NewWritePool()
	pool.Submit(PendingWrite{
		Data:           solidRGBA(2, 2, [4]byte{0, 0, 0, 255}),
		Layout:         RowLayout{BytesPerRow: 8, PaddedBytesPerRow: 8, BufferSize: 16},
		Width:          2,
		Height:         2,
		RequestedWidth: 2,
		FrameID:        1,
		// MkdirAll fails: a path component is a regular file.
		OutputDir: filepath.Join(blocker, "out"),
		Extension: "png",
	})

	done := make(chan struct{})
	go func() {
		pool.WaitUntilIdle()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitUntilIdle hung after failed write")
	}
}

// An unsupported extension is a soft failure: logged, skipped, counted
// down.
func TestUnsupportedExtensionSoftFailure(t *testing.T) {
	dir := t.TempDir()
	pool := NewWritePool()
	pool.Submit(PendingWrite{
		Data:           solidRGBA(2, 2, [4]byte{0, 0, 0, 255}),
		Layout:         RowLayout{BytesPerRow: 8, PaddedBytesPerRow: 8, BufferSize: 16},
		Width:          2,
		Height:         2,
		RequestedWidth: 2,
		FrameID:        1,
		OutputDir:      dir,
		Extension:      "webp",
	})
	pool.WaitUntilIdle()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no output files, got %d", len(entries))
	}
}

func solidRGBA(width, height int, c [4]byte) []byte {
	data := make([]byte, 0, width*height*4)
	for i := 0; i < width*height; i++ {
		data = append(data, c[0], c[1], c[2], c[3])
	}
	return data
}
