package imageexport

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ReadbackTarget is the capability of extracting a frame's raw bytes from
// a mapped readback buffer. The cycle per frame is:
//
//	BeginMap -> (device poll until the callback fires) -> FinishMap
//
// FinishMap unmaps the buffer, so the next frame's copy can target it
// again. This is single-buffering: the caller blocks on the mapping before
// the next copy is scheduled.
type ReadbackTarget interface {
	// BeginMap submits a map-for-read request covering the whole
	// buffer. The callback fires when the device signals completion.
	BeginMap(callback func(error)) error

	// FinishMap copies the mapped bytes into an owned slice and unmaps
	// the buffer. Only valid after the BeginMap callback reported
	// success.
	FinishMap() ([]byte, error)
}

// BeginMap implements ReadbackTarget.
func (t *ExportTarget) BeginMap(callback func(error)) error {
	if t.mapPending {
		return ErrBufferMapPending
	}
	if err := t.buffer.MapAsync(gputypes.MapModeRead, 0, t.layout.BufferSize, callback); err != nil {
		return fmt.Errorf("map readback buffer: %w", err)
	}
	t.mapPending = true
	return nil
}

// FinishMap implements ReadbackTarget.
func (t *ExportTarget) FinishMap() ([]byte, error) {
	defer func() {
		t.buffer.Unmap()
		t.mapPending = false
	}()
	mapped, err := t.buffer.GetMappedRange(0, t.layout.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("read mapped range: %w", err)
	}
	// Copy out: the mapped slice is invalid once the buffer is unmapped,
	// and the write goroutine must own its bytes exclusively.
	out := make([]byte, len(mapped))
	copy(out, mapped)
	return out, nil
}

// abortMap cancels a failed mapping so the buffer can be mapped again
// next frame. Unmapping a buffer with a pending map is allowed and
// resolves the outstanding request.
func (t *ExportTarget) abortMap() {
	t.buffer.Unmap()
	t.mapPending = false
}

// readFrame drives one target through the full readback cycle, blocking
// the calling thread until the device reports the mapping complete.
//
// A device error while polling drops the frame: the error is returned and
// the render loop continues. There is no retry and no timeout; the poll
// blocks until the device signals.
func readFrame(dev Device, t *ExportTarget) ([]byte, error) {
	done := make(chan error, 1)
	if err := t.BeginMap(func(err error) { done <- err }); err != nil {
		return nil, err
	}

	for {
		select {
		case err := <-done:
			if err != nil {
				t.abortMap()
				return nil, fmt.Errorf("buffer mapping failed: %w", err)
			}
			return t.FinishMap()
		default:
			if err := dev.Poll(true); err != nil {
				t.abortMap()
				return nil, err
			}
		}
	}
}
