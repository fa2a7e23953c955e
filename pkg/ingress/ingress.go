// Package ingress implements the bounded FIFO that bridges a transport's
// frame producer (possibly many concurrent short-lived callers) and the
// pipeline's single consumer task. It never blocks the producer: once full,
// it drops the oldest buffered frame to admit the newest.
package ingress

import (
	"context"
	"sync"
	"time"

	"github.com/saletech/speechcore/pkg/audio"
	"github.com/saletech/speechcore/pkg/perr"
	"github.com/saletech/speechcore/pkg/types"
)

const component = "ingress"

// DefaultMaxFrames is the spec's default capacity: ~20s of audio at 20ms
// frames.
const DefaultMaxFrames = 1000

// Buffer is a thread-safe, bounded, drop-oldest FIFO of audio frames. The
// producer side (Push) is safe to call from any number of goroutines; the
// consumer side (Pop) is meant for a single owning goroutine, mirroring the
// pipeline's single-task-per-session ownership model.
type Buffer struct {
	maxFrames int

	mu      sync.Mutex
	frames  []types.Frame
	closed  bool
	waiters []chan struct{}

	framesAttempted int64
	framesReceived  int64
	framesDropped   int64
	lastFrameTS     float64

	accMu sync.Mutex
	acc   *audio.Accumulator
}

// New builds an empty Buffer with the given capacity. maxFrames <= 0 uses
// DefaultMaxFrames.
func New(maxFrames int) *Buffer {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	return &Buffer{maxFrames: maxFrames}
}

// NewWithFrameSize builds a Buffer that additionally accepts arbitrarily
// sized byte chunks via PushChunk, accumulating them into fixed-size frames
// of frameBytes before admitting each complete frame through Push.
func NewWithFrameSize(maxFrames, frameBytes int) *Buffer {
	b := New(maxFrames)
	b.acc = audio.NewAccumulator(frameBytes)
	return b
}

// PushChunk feeds an arbitrarily sized byte chunk from the transport into
// the frame accumulator, pushing every frame the chunk completes. Partial
// trailing bytes are buffered for the next call, per the spec's invariant
// that partial frames are accumulated until a full frame is available.
// Requires a Buffer built with NewWithFrameSize; callers that already
// deliver pre-framed payloads should call Push directly.
func (b *Buffer) PushChunk(chunk []byte, timestamp float64) error {
	b.accMu.Lock()
	if b.acc == nil {
		b.accMu.Unlock()
		return perr.New(perr.InvalidFrame, component).WithContext("reason", "no frame accumulator configured")
	}
	frames := b.acc.Write(chunk)
	b.accMu.Unlock()

	for _, f := range frames {
		if err := b.Push(f, timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Push enqueues a frame. Never blocks: if the buffer is full, the oldest
// frame is dropped to make room. If the buffer is closed, the frame is
// silently discarded (observable only via Metrics). Returns InvalidFrame if
// payload is empty. timestamp, if zero, defaults to the wall clock.
func (b *Buffer) Push(payload []byte, timestamp float64) error {
	if len(payload) == 0 {
		return perr.New(perr.InvalidFrame, component)
	}
	if timestamp == 0 {
		timestamp = float64(time.Now().UnixNano()) / 1e9
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.framesAttempted++
	if b.closed {
		return nil
	}

	if len(b.frames) >= b.maxFrames {
		b.frames = b.frames[1:]
		b.framesDropped++
	}
	b.frames = append(b.frames, types.Frame{PCM: payload, Timestamp: timestamp})
	b.framesReceived++
	b.lastFrameTS = timestamp

	b.wakeOne()
	return nil
}

// Pop awaits a frame up to timeout, returning ok=false on timeout or on
// observing buffer closure with nothing left to drain.
func (b *Buffer) Pop(ctx context.Context, timeout time.Duration) (types.Frame, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		b.mu.Lock()
		if len(b.frames) > 0 {
			f := b.frames[0]
			b.frames = b.frames[1:]
			b.mu.Unlock()
			return f, true
		}
		if b.closed {
			b.mu.Unlock()
			return types.Frame{}, false
		}
		wake := make(chan struct{})
		b.waiters = append(b.waiters, wake)
		b.mu.Unlock()

		select {
		case <-wake:
			continue
		case <-deadline.C:
			return types.Frame{}, false
		case <-ctx.Done():
			return types.Frame{}, false
		}
	}
}

// wakeOne signals one waiting Pop call, if any. Must be called with mu held.
func (b *Buffer) wakeOne() {
	if len(b.waiters) == 0 {
		return
	}
	w := b.waiters[0]
	b.waiters = b.waiters[1:]
	close(w)
}

// Close marks the buffer closed and wakes every waiter. Idempotent.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, w := range b.waiters {
		close(w)
	}
	b.waiters = nil
}

// Metrics returns a snapshot of the buffer's liveness/QoS counters.
func (b *Buffer) Metrics() types.PipelineMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	var dropRate float64
	if b.framesAttempted > 0 {
		dropRate = float64(b.framesDropped) / float64(b.framesAttempted)
	}

	return types.PipelineMetrics{
		FramesAttempted: b.framesAttempted,
		FramesReceived:  b.framesReceived,
		FramesDropped:   b.framesDropped,
		DropRate:        dropRate,
		QueueSize:       len(b.frames),
		LastFrameTS:     b.lastFrameTS,
		Closed:          b.closed,
	}
}
