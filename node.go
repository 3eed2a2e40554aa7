package imageexport

import (
	"github.com/gogpu/gputypes"
)

// CopySchedulable is the capability of recording a frame's texture-to-buffer
// copy into a command stream. ExportTarget implements it; hosts with their
// own target types may implement it directly.
type CopySchedulable interface {
	ScheduleCopy(enc CommandEncoder) error
}

// ScheduleCopy records a copy of the target's rendered texture into its
// readback buffer, using the padded row pitch from registration. The host
// must record this after the frame's camera work and before submission.
func (t *ExportTarget) ScheduleCopy(enc CommandEncoder) error {
	tex := t.src.Texture()
	if tex == nil {
		// Texture released by the host; nothing to copy this frame.
		return nil
	}
	return enc.CopyTextureToBuffer(tex, t.buffer,
		gputypes.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  t.layout.PaddedBytesPerRow,
			RowsPerImage: t.height,
		},
		gputypes.Extent3D{
			Width:              t.width,
			Height:             t.height,
			DepthOrArrayLayers: 1,
		})
}

// ExportNode is the render-graph node that schedules every registered
// target's copy once per rendered frame. The host positions it as a
// dependent of its camera/driver node so the copy sees the finished frame.
type ExportNode struct {
	reg *Registry
}

// Run records the copy commands for all ready targets into enc.
// A failed copy is logged and skipped; the remaining targets still run.
func (n *ExportNode) Run(enc CommandEncoder) {
	for _, t := range n.reg.Ready() {
		if err := t.ScheduleCopy(enc); err != nil {
			Logger().Warn("copy scheduling failed", "target", t.id, "err", err)
		}
	}
}
