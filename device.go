package imageexport

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Device errors shared by all backend implementations.
var (
	// ErrDeviceLost is returned by Poll when the device has been lost.
	// The frame in flight is dropped; the render loop continues.
	ErrDeviceLost = errors.New("imageexport: device lost")

	// ErrBufferNotMapped is returned when reading a buffer whose mapping
	// has not completed.
	ErrBufferNotMapped = errors.New("imageexport: buffer is not mapped")

	// ErrBufferMapPending is returned when a map is requested while a
	// previous map operation is still pending.
	ErrBufferMapPending = errors.New("imageexport: buffer mapping already pending")
)

// Device is the GPU device contract the render host must provide.
//
// The host owns the device; imageexport receives it and never creates one.
// This mirrors how the library shares textures and command streams with the
// host: all GPU resources created here live on the host's device.
type Device interface {
	// CreateBuffer creates a buffer of the given size and usage.
	// Readback buffers are created with MapRead|CopyDst usage.
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// CreateTexture creates a texture suitable for use as a render
	// attachment and copy source. Registration allocates one per export
	// target and redirects the target's rendering into it.
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// Poll processes outstanding asynchronous operations, invoking any
	// completed buffer-map callbacks. When wait is true, Poll blocks
	// until the device has made progress. Returns ErrDeviceLost (or a
	// backend error) when the device can no longer make progress.
	Poll(wait bool) error
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Width and Height are the texture dimensions in pixels.
	Width  uint32
	Height uint32

	// Format is the texture pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage
}

// Buffer is a host-readable GPU buffer following the WebGPU mapping
// contract: mapping is asynchronous, completion is signaled through a
// callback invoked during device polling.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64

	// MapAsync initiates an asynchronous map of the given byte range.
	// The callback fires once the device reports completion, with a nil
	// error on success. The buffer must not be read before then.
	MapAsync(mode gputypes.MapMode, offset, size uint64, callback func(error)) error

	// GetMappedRange returns the mapped bytes. Only valid between a
	// successful map completion and Unmap; the slice must not be
	// retained past Unmap.
	GetMappedRange(offset, size uint64) ([]byte, error)

	// Unmap releases the mapping, making the buffer usable as a copy
	// destination again.
	Unmap()

	// Destroy releases the buffer's GPU resources.
	Destroy()
}

// Texture is the subset of a GPU texture the export path needs.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// Format returns the texture pixel format.
	Format() gputypes.TextureFormat
}

// CommandEncoder records copy commands into the host's frame command
// stream. The host hands one to ExportNode.Run after the frame's camera
// work has been recorded.
type CommandEncoder interface {
	// CopyTextureToBuffer records a copy of the full texture into dst
	// using the given layout. Layout.BytesPerRow must satisfy
	// CopyBytesPerRowAlignment.
	CopyTextureToBuffer(src Texture, dst Buffer, layout gputypes.TextureDataLayout, size gputypes.Extent3D) error
}
