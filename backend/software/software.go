// Package software provides an in-memory implementation of the imageexport
// device contract.
//
// Textures are plain byte slices, copies execute immediately, and buffer
// mapping follows the WebGPU asynchronous protocol with completion
// simulated at poll time: a MapAsync callback never fires before the next
// Device.Poll. This makes the full export pipeline runnable in tests and
// examples without a GPU.
package software

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	imageexport "github.com/gogpu/imageexport"
)

// Backend errors.
var (
	// ErrInvalidDescriptor is returned for zero-sized resources.
	ErrInvalidDescriptor = errors.New("software: invalid descriptor")

	// ErrCopyOutOfBounds is returned when a copy does not fit the
	// source texture or the destination buffer.
	ErrCopyOutOfBounds = errors.New("software: copy out of bounds")

	// ErrMapUsageMismatch is returned when mapping a buffer created
	// without MapRead usage.
	ErrMapUsageMismatch = errors.New("software: buffer does not have MapRead usage")
)

// Device is an in-memory GPU device. The zero value is not usable;
// create one with New.
type Device struct {
	mu      sync.Mutex
	pending []func()
	pollErr error
}

// New creates a software device.
func New() *Device {
	return &Device{}
}

// FailWith makes every subsequent Poll return err without completing
// outstanding mappings, simulating a lost device. Pass nil to recover.
func (d *Device) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pollErr = err
}

// CreateTexture implements imageexport.Device.
func (d *Device) CreateTexture(desc *imageexport.TextureDescriptor) (imageexport.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d texture", ErrInvalidDescriptor, desc.Width, desc.Height)
	}
	texel, err := imageexport.BytesPerTexel(desc.Format)
	if err != nil {
		return nil, err
	}
	return &Texture{
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		texel:  texel,
		pix:    make([]byte, uint64(desc.Width)*uint64(desc.Height)*uint64(texel)),
	}, nil
}

// CreateBuffer implements imageexport.Device.
func (d *Device) CreateBuffer(desc *imageexport.BufferDescriptor) (imageexport.Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: zero-size buffer", ErrInvalidDescriptor)
	}
	return &Buffer{
		device: d,
		size:   desc.Size,
		usage:  desc.Usage,
		data:   make([]byte, desc.Size),
	}, nil
}

// Poll implements imageexport.Device: it fires the completion callbacks of
// every mapping requested before this call. With an injected failure the
// callbacks stay queued and the error is returned instead.
func (d *Device) Poll(_ bool) error {
	d.mu.Lock()
	if d.pollErr != nil {
		err := d.pollErr
		d.mu.Unlock()
		return err
	}
	ready := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, complete := range ready {
		complete()
	}
	return nil
}

// enqueue schedules a map completion for the next Poll.
func (d *Device) enqueue(complete func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, complete)
}

// Encoder returns a command encoder. Software commands execute
// immediately; recording order is execution order.
func (d *Device) Encoder() imageexport.CommandEncoder {
	return &Encoder{}
}

// Texture is a CPU-resident texture with tightly packed rows.
type Texture struct {
	width  uint32
	height uint32
	format gputypes.TextureFormat
	texel  uint32
	pix    []byte
}

// Width implements imageexport.Texture.
func (t *Texture) Width() uint32 { return t.width }

// Height implements imageexport.Texture.
func (t *Texture) Height() uint32 { return t.height }

// Format implements imageexport.Texture.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Pix returns the backing pixel storage, rows tightly packed.
func (t *Texture) Pix() []byte { return t.pix }

// Fill writes the given texel value to every pixel.
func (t *Texture) Fill(texel []byte) {
	n := int(t.texel)
	for off := 0; off+n <= len(t.pix); off += n {
		copy(t.pix[off:off+n], texel[:n])
	}
}

// SetTexel writes one pixel. Out-of-bounds coordinates are ignored.
func (t *Texture) SetTexel(x, y uint32, texel []byte) {
	if x >= t.width || y >= t.height {
		return
	}
	off := (uint64(y)*uint64(t.width) + uint64(x)) * uint64(t.texel)
	copy(t.pix[off:off+uint64(t.texel)], texel[:t.texel])
}

// Buffer is a host-visible buffer with simulated asynchronous mapping.
type Buffer struct {
	device *Device

	mu     sync.Mutex
	size   uint64
	usage  gputypes.BufferUsage
	data   []byte
	state  mapState
	mapOff uint64
	mapLen uint64
}

type mapState int

const (
	mapUnmapped mapState = iota
	mapPending
	mapMapped
)

// Size implements imageexport.Buffer.
func (b *Buffer) Size() uint64 { return b.size }

// MapAsync implements imageexport.Buffer. The callback fires during the
// next Device.Poll, never synchronously.
func (b *Buffer) MapAsync(mode gputypes.MapMode, offset, size uint64, callback func(error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mode == gputypes.MapModeRead && b.usage&gputypes.BufferUsageMapRead == 0 {
		return ErrMapUsageMismatch
	}
	if b.state != mapUnmapped {
		return imageexport.ErrBufferMapPending
	}
	if offset+size > b.size {
		return fmt.Errorf("%w: map %d+%d exceeds buffer size %d", ErrCopyOutOfBounds, offset, size, b.size)
	}
	b.state = mapPending
	b.mapOff = offset
	b.mapLen = size
	b.device.enqueue(func() {
		b.mu.Lock()
		if b.state == mapPending {
			b.state = mapMapped
		}
		b.mu.Unlock()
		callback(nil)
	})
	return nil
}

// GetMappedRange implements imageexport.Buffer.
func (b *Buffer) GetMappedRange(offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != mapMapped {
		return nil, imageexport.ErrBufferNotMapped
	}
	if offset < b.mapOff || offset+size > b.mapOff+b.mapLen {
		return nil, fmt.Errorf("%w: range %d+%d outside mapped region", ErrCopyOutOfBounds, offset, size)
	}
	return b.data[offset : offset+size], nil
}

// Unmap implements imageexport.Buffer.
func (b *Buffer) Unmap() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = mapUnmapped
}

// Destroy implements imageexport.Buffer.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	b.state = mapUnmapped
}

// Encoder executes copy commands immediately against CPU memory.
type Encoder struct{}

// CopyTextureToBuffer implements imageexport.CommandEncoder. Each tight
// source row is written at the padded row pitch given by layout.
func (e *Encoder) CopyTextureToBuffer(src imageexport.Texture, dst imageexport.Buffer, layout gputypes.TextureDataLayout, size gputypes.Extent3D) error {
	tex, ok := src.(*Texture)
	if !ok {
		return fmt.Errorf("software: source texture is %T, not a software texture", src)
	}
	buf, ok := dst.(*Buffer)
	if !ok {
		return fmt.Errorf("software: destination buffer is %T, not a software buffer", dst)
	}
	if size.Width > tex.width || size.Height > tex.height {
		return fmt.Errorf("%w: copy %dx%d from %dx%d texture",
			ErrCopyOutOfBounds, size.Width, size.Height, tex.width, tex.height)
	}

	rowBytes := uint64(size.Width) * uint64(tex.texel)
	pitch := uint64(layout.BytesPerRow)
	end := layout.Offset + pitch*uint64(size.Height)

	buf.mu.Lock()
	defer buf.mu.Unlock()
	if end > buf.size {
		return fmt.Errorf("%w: copy needs %d bytes, buffer has %d", ErrCopyOutOfBounds, end, buf.size)
	}
	srcStride := uint64(tex.width) * uint64(tex.texel)
	for y := uint64(0); y < uint64(size.Height); y++ {
		srcOff := y * srcStride
		dstOff := layout.Offset + y*pitch
		copy(buf.data[dstOff:dstOff+rowBytes], tex.pix[srcOff:srcOff+rowBytes])
	}
	return nil
}
