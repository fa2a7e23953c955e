// Package audio holds small PCM byte-accounting utilities shared by the
// ingress and segment stages: frame-size arithmetic and the partial-frame
// accumulator that assembles fixed-size frames out of an arbitrarily
// chunked transport stream.
//
// Resampling from arbitrary input rates is explicitly out of scope (see the
// specification's Non-goals): the pipeline requires its configured
// sample_rate end to end and never converts between rates.
package audio

// ChunkDuration returns the number of bytes in a mono 16-bit PCM chunk of the
// given duration at the given sample rate (2 bytes per sample).
func ChunkDuration(sampleRate int, durationMs int) int {
	return sampleRate * durationMs / 1000 * 2
}

// Accumulator assembles fixed-size PCM frames out of arbitrarily sized byte
// chunks as they arrive off the wire. The transport may deliver less (or
// more) than one frame's worth of bytes per read; Accumulator buffers the
// remainder so every frame handed to the pipeline is exactly FrameBytes
// long, per the spec's invariant that "partial frames are buffered until a
// full frame is available."
//
// Not safe for concurrent use: one Accumulator per ingress source.
type Accumulator struct {
	// FrameBytes is the fixed frame size in bytes (2 * samples per frame).
	FrameBytes int

	pending []byte
}

// NewAccumulator builds an Accumulator for the given frame byte size.
func NewAccumulator(frameBytes int) *Accumulator {
	return &Accumulator{FrameBytes: frameBytes}
}

// Write appends chunk to the pending buffer and returns every complete
// frame it now contains, in arrival order. Any leftover bytes (less than
// one frame) remain buffered for the next call.
func (a *Accumulator) Write(chunk []byte) [][]byte {
	a.pending = append(a.pending, chunk...)

	var frames [][]byte
	for len(a.pending) >= a.FrameBytes {
		frame := make([]byte, a.FrameBytes)
		copy(frame, a.pending[:a.FrameBytes])
		frames = append(frames, frame)
		a.pending = a.pending[a.FrameBytes:]
	}
	return frames
}

// Pending returns the number of buffered bytes not yet forming a complete
// frame.
func (a *Accumulator) Pending() int {
	return len(a.pending)
}

// Reset discards any buffered partial frame, e.g. on session barge-in.
func (a *Accumulator) Reset() {
	a.pending = nil
}
