// Package imageexport captures the pixel output of render targets on every
// rendered frame and persists each frame as a numbered image file, producing
// a reproducible image sequence from a live scene.
//
// # Overview
//
// The library plugs into a wgpu-style render host. The host owns the scene,
// the cameras, and the GPU device; imageexport owns the readback path:
//
//   - per-target staging buffer allocation with 256-byte row alignment
//   - a texture-to-buffer copy recorded into the host's frame command stream
//   - the asynchronous map / read / unmap cycle that moves pixels to the CPU
//   - per-target 1-based frame numbering, independent of when a target joined
//   - background goroutines that strip row padding and write image files
//
// # Quick Start
//
//	exp := imageexport.New(device, imageexport.DefaultOptions())
//	exp.AddTarget(source, imageexport.DefaultSettings())
//
//	for running {
//	    exp.Update()              // before camera/render-target setup
//	    renderScene()             // host records the frame
//	    exp.Node().Run(encoder)   // after the camera driver node
//	    submitFrame()
//	    exp.ProcessFrame()        // after submission
//	}
//	exp.Finish()                  // block until all files are on disk
//
// Files are written as {output_dir}/{frame:05d}.{extension}. The "exr"
// extension selects 32-bit float RGBA encoding; png, jpg, bmp and tiff are
// written as 8-bit RGBA.
//
// # Architecture
//
// The root package works against small device interfaces (Device, Buffer,
// Texture, CommandEncoder). Two implementations ship with the library:
//   - backend/wgpu: adapter over gogpu/wgpu hal for real GPU hosts
//   - backend/software: in-memory device used by tests and examples
package imageexport
