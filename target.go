package imageexport

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// TargetID identifies a registered export target. IDs are stable for the
// lifetime of the exporter and never reused.
type TargetID uint64

// TargetSource is what a host render target must expose to be exported.
//
// The host implements this for whatever drives rendering (a camera, an
// offscreen view). The physical size may be unknown while the target is
// still initializing; registration is retried every tick until it is known.
type TargetSource interface {
	// PhysicalSize returns the target's output resolution in pixels.
	// ok is false while the resolution cannot yet be determined.
	PhysicalSize() (width, height uint32, ok bool)

	// AttachTexture redirects the source's rendering into tex.
	// Called once during registration with the export texture.
	AttachTexture(tex Texture)

	// Texture returns the texture the source currently renders into,
	// or nil if rendering is not live (e.g. the texture was released).
	Texture() Texture
}

// ExportSettings configures where and how a target's frames are written.
type ExportSettings struct {
	// OutputDir is the directory image files are written to.
	// Created recursively on first write.
	OutputDir string

	// Extension selects the file format. "exr" writes 32-bit float
	// RGBA; "png", "jpg", "jpeg", "bmp" and "tiff" write 8-bit RGBA.
	Extension string

	// Format is the pixel format of the export texture.
	// Use RGBA32Float together with the "exr" extension.
	Format gputypes.TextureFormat

	// Width and Height override the source's physical resolution when
	// both are non-zero.
	Width  uint32
	Height uint32
}

// DefaultSettings returns settings writing 8-bit RGBA PNG files to "out".
func DefaultSettings() ExportSettings {
	return ExportSettings{
		OutputDir: "out",
		Extension: "png",
		Format:    gputypes.TextureFormatRGBA8Unorm,
	}
}

// ExportTarget is the per-target bookkeeping: the export texture the host
// renders into, the readback buffer that receives each frame's copy, and
// the frame-sequence state.
//
// The buffer is sized once at registration and reused every frame through
// the map/read/unmap cycle; it is never reallocated per frame.
type ExportTarget struct {
	id       TargetID
	src      TargetSource
	settings ExportSettings

	// texture is the render target allocated at registration.
	// nil until registration succeeds.
	texture Texture
	buffer  Buffer
	layout  RowLayout

	// width/height are the allocated texture dimensions.
	// requestedWidth < width when the width was rounded up to the copy
	// alignment; the excess columns are cropped after readback.
	width          uint32
	height         uint32
	requestedWidth uint32

	// startFrame is the global tick at which this target began
	// exporting. Captured once, the first tick after registration;
	// zero means not yet capturing.
	startFrame uint64

	// mapPending guards the single-buffered map cycle.
	mapPending bool
}

// ID returns the target's registry ID.
func (t *ExportTarget) ID() TargetID { return t.id }

// Settings returns the target's export settings.
func (t *ExportTarget) Settings() ExportSettings { return t.settings }

// ready reports whether the target has a registered buffer.
func (t *ExportTarget) ready() bool { return t.buffer != nil }

// resolution resolves the target's output size: the settings override when
// present, the source's physical size otherwise. ok is false while neither
// is available.
func (t *ExportTarget) resolution() (w, h uint32, ok bool) {
	if t.settings.Width > 0 && t.settings.Height > 0 {
		return t.settings.Width, t.settings.Height, true
	}
	return t.src.PhysicalSize()
}

// register allocates the export texture and readback buffer and redirects
// the source's rendering into the texture. Returns false without error when
// the resolution is not yet known; the caller retries next tick.
func (t *ExportTarget) register(dev Device, alignWidth bool) (bool, error) {
	w, h, ok := t.resolution()
	if ok && w > 0 && h > 0 {
		t.requestedWidth = w
		if alignWidth {
			w = AlignTextureWidth(w)
		}
	} else {
		return false, nil
	}

	layout, err := ComputeRowLayout(t.settings.Format, w, h)
	if err != nil {
		return false, err
	}

	tex, err := dev.CreateTexture(&TextureDescriptor{
		Label:  fmt.Sprintf("export_target_%d", t.id),
		Width:  w,
		Height: h,
		Format: t.settings.Format,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return false, fmt.Errorf("create export texture: %w", err)
	}

	buf, err := dev.CreateBuffer(&BufferDescriptor{
		Label: fmt.Sprintf("export_readback_%d", t.id),
		Size:  layout.BufferSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return false, fmt.Errorf("create readback buffer: %w", err)
	}

	t.texture = tex
	t.buffer = buf
	t.layout = layout
	t.width = w
	t.height = h
	t.src.AttachTexture(tex)

	Logger().Debug("registered export target",
		"id", t.id,
		"width", w, "height", h,
		"bytes_per_row", layout.BytesPerRow,
		"padded_bytes_per_row", layout.PaddedBytesPerRow,
		"buffer_size", layout.BufferSize)
	return true, nil
}

// destroy releases the target's readback buffer. The export texture is
// left to the host, which may still be rendering into it.
func (t *ExportTarget) destroy() {
	if t.buffer != nil {
		t.buffer.Destroy()
		t.buffer = nil
	}
}
