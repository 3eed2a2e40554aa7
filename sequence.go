package imageexport

// FrameSequencer tracks the global tick and derives each target's 1-based
// file frame number from it. The tick increments exactly once per
// application tick regardless of how many targets exist, so a target that
// joins at tick T still writes its first file as 00001.
//
// The sequencer is owned by the Exporter and advanced explicitly; there is
// no hidden process-wide counter.
type FrameSequencer struct {
	tick uint64
}

// Advance increments the global tick and returns its new value.
func (s *FrameSequencer) Advance() uint64 {
	s.tick++
	return s.tick
}

// Tick returns the current global tick.
func (s *FrameSequencer) Tick() uint64 {
	return s.tick
}

// FileFrameID returns the 1-based frame number for a target that began
// exporting at startFrame.
func (s *FrameSequencer) FileFrameID(startFrame uint64) uint64 {
	return s.tick - startFrame + 1
}
