package imageexport

// Options configures an Exporter.
type Options struct {
	// AlignTextureWidth rounds every allocated texture width up to the
	// next multiple of 256 texels, for hosts whose copy path constrains
	// the texture width rather than the row pitch. The excess columns
	// are cropped out of the written files.
	AlignTextureWidth bool
}

// DefaultOptions returns the default exporter configuration:
// only the row pitch is aligned, texture widths are allocated as requested.
func DefaultOptions() Options {
	return Options{}
}

// Exporter drives the whole capture pipeline for any number of export
// targets: registration, per-frame copy scheduling, blocking readback and
// background persistence.
//
// All methods except Finish must be called from the render thread. The
// host drives three phases per tick, in order:
//
//  1. Update, before camera/render-target setup, so a target registered
//     this tick renders into its export texture this tick.
//  2. Node().Run(encoder), after the frame's camera work is recorded.
//  3. ProcessFrame, after the frame's commands have been submitted.
type Exporter struct {
	device Device
	reg    *Registry
	seq    FrameSequencer
	pool   *WritePool
	node   *ExportNode
	opts   Options
}

// New creates an Exporter on the host's device.
func New(device Device, opts Options) *Exporter {
	reg := NewRegistry()
	return &Exporter{
		device: device,
		reg:    reg,
		pool:   NewWritePool(),
		node:   &ExportNode{reg: reg},
		opts:   opts,
	}
}

// AddTarget marks a render target for frame-by-frame capture. The target
// becomes active on the first Update where its resolution is known.
func (e *Exporter) AddTarget(src TargetSource, settings ExportSettings) TargetID {
	return e.reg.Add(src, settings)
}

// RemoveTarget stops capturing a target and releases its readback buffer.
// Frames already handed to the write pool still finish.
func (e *Exporter) RemoveTarget(id TargetID) {
	e.reg.Remove(id)
}

// Targets returns the registry for inspection.
func (e *Exporter) Targets() *Registry {
	return e.reg
}

// Node returns the render-graph node scheduling the per-frame copies.
func (e *Exporter) Node() *ExportNode {
	return e.node
}

// Update advances the global tick, retries registration for targets whose
// resolution was previously unknown, and captures the start frame of
// targets that just became ready. Call once per application tick, before
// the host's camera update.
func (e *Exporter) Update() {
	tick := e.seq.Advance()
	for _, t := range e.reg.All() {
		if !t.ready() {
			ok, err := t.register(e.device, e.opts.AlignTextureWidth)
			if err != nil {
				Logger().Warn("export target registration failed", "target", t.id, "err", err)
				continue
			}
			if !ok {
				// Resolution not determinable yet; retried next tick.
				Logger().Debug("export resolution not yet known", "target", t.id)
				continue
			}
		}
		if t.startFrame == 0 {
			t.startFrame = tick
		}
	}
}

// ProcessFrame reads every ready target's rendered frame back from the
// device and hands the bytes to a background write task. It blocks until
// each buffer's mapping completes; a device failure drops that target's
// frame and the loop continues.
func (e *Exporter) ProcessFrame() {
	for _, t := range e.reg.Ready() {
		if t.startFrame == 0 || t.src.Texture() == nil {
			continue
		}
		frameID := e.seq.FileFrameID(t.startFrame)

		data, err := readFrame(e.device, t)
		if err != nil {
			Logger().Warn("frame capture dropped",
				"target", t.id, "frame", frameID, "err", err)
			continue
		}

		e.pool.Submit(PendingWrite{
			Data:           data,
			Layout:         t.layout,
			Width:          t.width,
			Height:         t.height,
			RequestedWidth: t.requestedWidth,
			FrameID:        frameID,
			OutputDir:      t.settings.OutputDir,
			Extension:      t.settings.Extension,
		})
	}
}

// Finish blocks until every pending background write has completed.
// Call before process exit so no frame file is lost. Safe to call from
// any goroutine, and returns immediately when nothing is in flight.
func (e *Exporter) Finish() {
	e.pool.WaitUntilIdle()
}
