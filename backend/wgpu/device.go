// Package wgpu adapts a gogpu/wgpu HAL device to the imageexport device
// contract, for hosts that render through the gogpu stack.
//
// The HAL exposes buffer readback synchronously (fence wait + ReadBuffer)
// rather than through WebGPU's callback-based MapAsync. The adapter bridges
// the two: MapAsync records the request and Poll completes it by reading
// the buffer contents into a staging copy, then fires the callback. The
// host must have submitted, and synchronized on, the frame's command
// buffers before polling — the same ordering the exporter's ProcessFrame
// phase already guarantees.
package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	imageexport "github.com/gogpu/imageexport"
)

// Adapter errors.
var (
	// ErrNoHALAccess is returned when a device provider does not expose
	// the underlying HAL device and queue.
	ErrNoHALAccess = errors.New("wgpu: provider does not expose HAL types")

	// ErrNilDevice is returned when constructing an adapter without a
	// device or queue.
	ErrNilDevice = errors.New("wgpu: device and queue must be non-nil")
)

// Device adapts hal.Device/hal.Queue to imageexport.Device.
type Device struct {
	dev   hal.Device
	queue hal.Queue

	mu      sync.Mutex
	pending []*mapRequest
}

type mapRequest struct {
	buf      *Buffer
	callback func(error)
}

// NewDevice wraps a HAL device and queue owned by the host.
func NewDevice(dev hal.Device, queue hal.Queue) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &Device{dev: dev, queue: queue}, nil
}

// FromProvider obtains the HAL device and queue from a gpucontext device
// provider. The provider must additionally expose HalDevice() and
// HalQueue() accessors, as gogpu application contexts do.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALAccess
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALAccess)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALAccess)
	}
	return NewDevice(dev, queue)
}

// CreateBuffer implements imageexport.Device.
func (d *Device) CreateBuffer(desc *imageexport.BufferDescriptor) (imageexport.Buffer, error) {
	halBuf, err := d.dev.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer: %w", err)
	}
	return &Buffer{device: d, halBuf: halBuf, size: desc.Size}, nil
}

// CreateTexture implements imageexport.Device.
func (d *Device) CreateTexture(desc *imageexport.TextureDescriptor) (imageexport.Texture, error) {
	halTex, err := d.dev.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture: %w", err)
	}
	return &Texture{
		halTex: halTex,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

// Poll implements imageexport.Device: it completes every mapping
// requested before this call by reading the buffer contents back from the
// device. Per-buffer read failures are delivered to the request's
// callback, not returned.
func (d *Device) Poll(_ bool) error {
	d.mu.Lock()
	ready := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, req := range ready {
		req.callback(req.buf.complete(d.queue))
	}
	return nil
}

// enqueue schedules a map completion for the next Poll.
func (d *Device) enqueue(req *mapRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, req)
}

// Encoder wraps the host's HAL command encoder for the copy-scheduling
// phase. Recording must already be begun on enc.
func (d *Device) Encoder(enc hal.CommandEncoder) imageexport.CommandEncoder {
	return &Encoder{enc: enc}
}

// Texture wraps a hal.Texture created for an export target.
type Texture struct {
	halTex hal.Texture
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

// Width implements imageexport.Texture.
func (t *Texture) Width() uint32 { return t.width }

// Height implements imageexport.Texture.
func (t *Texture) Height() uint32 { return t.height }

// Format implements imageexport.Texture.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Raw returns the underlying HAL texture for the host's render pass
// attachment.
func (t *Texture) Raw() hal.Texture { return t.halTex }

// WrapTexture adapts an existing host-owned HAL texture, for sources that
// already render offscreen.
func WrapTexture(halTex hal.Texture, width, height uint32, format gputypes.TextureFormat) *Texture {
	return &Texture{halTex: halTex, width: width, height: height, format: format}
}

// Buffer adapts a hal.Buffer to the asynchronous mapping contract.
type Buffer struct {
	device *Device
	halBuf hal.Buffer
	size   uint64

	mu      sync.Mutex
	pending bool
	staging []byte
}

// Size implements imageexport.Buffer.
func (b *Buffer) Size() uint64 { return b.size }

// MapAsync implements imageexport.Buffer. Only whole-buffer reads are
// used by the export path; the offset/size arguments bound the staged
// range.
func (b *Buffer) MapAsync(_ gputypes.MapMode, offset, size uint64, callback func(error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending || b.staging != nil {
		return imageexport.ErrBufferMapPending
	}
	if offset != 0 || size > b.size {
		return fmt.Errorf("wgpu: map range %d+%d outside buffer of %d bytes", offset, size, b.size)
	}
	b.pending = true
	b.device.enqueue(&mapRequest{buf: b, callback: callback})
	return nil
}

// complete performs the deferred readback for a pending map.
func (b *Buffer) complete(queue hal.Queue) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending {
		// Unmapped before completion; nothing to deliver.
		return imageexport.ErrBufferNotMapped
	}
	staging := make([]byte, b.size)
	if err := queue.ReadBuffer(b.halBuf, 0, staging); err != nil {
		b.pending = false
		return fmt.Errorf("wgpu: readback: %w", err)
	}
	b.staging = staging
	b.pending = false
	return nil
}

// GetMappedRange implements imageexport.Buffer.
func (b *Buffer) GetMappedRange(offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.staging == nil {
		return nil, imageexport.ErrBufferNotMapped
	}
	if offset+size > uint64(len(b.staging)) {
		return nil, fmt.Errorf("wgpu: mapped range %d+%d outside %d staged bytes", offset, size, len(b.staging))
	}
	return b.staging[offset : offset+size], nil
}

// Unmap implements imageexport.Buffer.
func (b *Buffer) Unmap() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.staging = nil
	b.pending = false
}

// Destroy implements imageexport.Buffer.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	halBuf := b.halBuf
	b.halBuf = nil
	b.staging = nil
	b.pending = false
	b.mu.Unlock()
	if halBuf != nil {
		b.device.dev.DestroyBuffer(halBuf)
	}
}

// Encoder records export copies into the host's command encoder.
type Encoder struct {
	enc hal.CommandEncoder
}

// CopyTextureToBuffer implements imageexport.CommandEncoder.
func (e *Encoder) CopyTextureToBuffer(src imageexport.Texture, dst imageexport.Buffer, layout gputypes.TextureDataLayout, size gputypes.Extent3D) error {
	tex, ok := src.(*Texture)
	if !ok {
		return fmt.Errorf("wgpu: source texture is %T, not a wgpu texture", src)
	}
	buf, ok := dst.(*Buffer)
	if !ok {
		return fmt.Errorf("wgpu: destination buffer is %T, not a wgpu buffer", dst)
	}

	e.enc.CopyTextureToBuffer(tex.halTex, buf.halBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       layout.Offset,
			BytesPerRow:  layout.BytesPerRow,
			RowsPerImage: layout.RowsPerImage,
		},
		TextureBase: hal.ImageCopyTexture{Texture: tex.halTex, MipLevel: 0},
		Size: hal.Extent3D{
			Width:              size.Width,
			Height:             size.Height,
			DepthOrArrayLayers: size.DepthOrArrayLayers,
		},
	}})
	return nil
}
