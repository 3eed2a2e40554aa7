package imageexport

import (
	"sync/atomic"
	"time"
)

// idlePollInterval is how often WaitUntilIdle re-checks the in-flight
// counter. A fixed sleep keeps the barrier free of OS synchronization
// primitives; shutdown latency of a quarter second is acceptable there.
const idlePollInterval = 250 * time.Millisecond

// PendingWrite is one frame handed off to a background write task. After
// hand-off the task owns Data exclusively; the render thread never touches
// it again.
type PendingWrite struct {
	// Data is the raw padded pixel bytes copied out of the readback
	// buffer.
	Data []byte

	// Layout is the row layout Data was copied with.
	Layout RowLayout

	// Width and Height are the allocated texture dimensions.
	Width  uint32
	Height uint32

	// RequestedWidth is the output width. When smaller than Width
	// (width rounded up for copy alignment) each row is cropped to it.
	RequestedWidth uint32

	// FrameID is the 1-based frame number used for the file name.
	FrameID uint64

	// OutputDir and Extension locate and format the output file.
	OutputDir string
	Extension string
}

// WritePool runs disk writes on fire-and-forget goroutines, one per frame,
// with no upper bound on concurrency and no queue. The only shared state
// is the in-flight counter, so callers can block until every pending file
// has been written before process exit.
type WritePool struct {
	count atomic.Int64
}

// NewWritePool creates an idle write pool.
func NewWritePool() *WritePool {
	return &WritePool{}
}

// InFlight returns the number of write tasks currently running.
func (p *WritePool) InFlight() int64 {
	return p.count.Load()
}

// Submit spawns a background task for w. The counter is incremented before
// the goroutine starts and decremented on every exit path, including a
// panic inside encoding, so WaitUntilIdle can never hang on a leaked
// increment.
//
// All failures in the task are terminal to that single write: they are
// logged and never propagated back to the render thread.
func (p *WritePool) Submit(w PendingWrite) {
	p.count.Add(1)
	go func() {
		defer p.count.Add(-1)
		w.process()
	}()
}

// WaitUntilIdle blocks until all pending write tasks have finished.
// Returns immediately when the pool is already idle.
func (p *WritePool) WaitUntilIdle() {
	for p.count.Load() > 0 {
		time.Sleep(idlePollInterval)
	}
}

// process depads, crops and persists one frame.
func (w PendingWrite) process() {
	data := w.Data
	if w.Layout.Padded() {
		data = stripRowPadding(data, w.Layout, w.Height)
	}
	if w.RequestedWidth < w.Width {
		data = cropRowWidth(data, w.Layout.BytesPerRow, w.Width, w.RequestedWidth)
	}
	if err := saveImage(w.OutputDir, w.Extension, w.FrameID, data, w.RequestedWidth, w.Height); err != nil {
		Logger().Warn("frame write failed",
			"frame", w.FrameID, "dir", w.OutputDir, "ext", w.Extension, "err", err)
	}
}

// stripRowPadding compacts padded rows into tight rows, keeping only the
// first BytesPerRow bytes of each PaddedBytesPerRow-wide source row.
func stripRowPadding(data []byte, layout RowLayout, height uint32) []byte {
	tight := make([]byte, 0, uint64(layout.BytesPerRow)*uint64(height))
	padded := int(layout.PaddedBytesPerRow)
	row := int(layout.BytesPerRow)
	for off := 0; off+row <= len(data); off += padded {
		tight = append(tight, data[off:off+row]...)
	}
	return tight
}

// cropRowWidth crops each tight row of a width-texel image down to
// targetWidth texels. bytesPerRow is the source row size in bytes.
func cropRowWidth(data []byte, bytesPerRow, width, targetWidth uint32) []byte {
	texel := bytesPerRow / width
	keep := int(targetWidth * texel)
	row := int(bytesPerRow)
	out := make([]byte, 0, keep*(len(data)/row))
	for off := 0; off+row <= len(data); off += row {
		out = append(out, data[off:off+keep]...)
	}
	return out
}
