package ingress

import (
	"context"
	"testing"
	"time"
)

func TestPushPopPreservesOrder(t *testing.T) {
	b := New(10)
	for i := 0; i < 5; i++ {
		if err := b.Push([]byte{byte(i)}, float64(i)+1); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		f, ok := b.Pop(context.Background(), time.Second)
		if !ok {
			t.Fatalf("Pop %d: expected a frame", i)
		}
		if f.PCM[0] != byte(i) {
			t.Fatalf("Pop %d: got %v, want %v", i, f.PCM[0], i)
		}
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		_ = b.Push([]byte{byte(i)}, float64(i)+1)
	}
	m := b.Metrics()
	if m.FramesDropped != 2 {
		t.Fatalf("FramesDropped = %d, want 2", m.FramesDropped)
	}
	if m.QueueSize != 3 {
		t.Fatalf("QueueSize = %d, want 3", m.QueueSize)
	}

	// The surviving frames should be the 3 most recent: 2, 3, 4.
	for i := 2; i < 5; i++ {
		f, ok := b.Pop(context.Background(), time.Second)
		if !ok {
			t.Fatalf("Pop: expected a frame")
		}
		if f.PCM[0] != byte(i) {
			t.Fatalf("Pop: got %v, want %v (drop-oldest should keep newest)", f.PCM[0], i)
		}
	}
}

func TestPopTimesOutOnEmptyBuffer(t *testing.T) {
	b := New(10)
	_, ok := b.Pop(context.Background(), 10*time.Millisecond)
	if ok {
		t.Fatal("expected timeout on empty buffer")
	}
}

func TestCloseIsIdempotentAndWakesWaiters(t *testing.T) {
	b := New(10)
	done := make(chan bool, 1)
	go func() {
		_, ok := b.Pop(context.Background(), time.Second)
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	b.Close()
	b.Close() // idempotent

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected Pop to return ok=false after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up after Close")
	}

	if !b.Metrics().Closed {
		t.Fatal("expected Metrics().Closed to be true")
	}
}

func TestPushAfterCloseIsSilentlyDropped(t *testing.T) {
	b := New(10)
	b.Close()
	if err := b.Push([]byte{1}, 1); err != nil {
		t.Fatalf("Push after close should not error: %v", err)
	}
	if b.Metrics().FramesReceived != 0 {
		t.Fatal("expected no frames received after close")
	}
}

func TestPushEmptyPayloadIsInvalidFrame(t *testing.T) {
	b := New(10)
	if err := b.Push(nil, 1); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestPushChunkAccumulatesPartialFrames(t *testing.T) {
	b := NewWithFrameSize(10, 4)

	if err := b.PushChunk([]byte{1, 2}, 1); err != nil {
		t.Fatalf("PushChunk: %v", err)
	}
	if b.Metrics().FramesReceived != 0 {
		t.Fatal("expected no complete frames yet")
	}

	if err := b.PushChunk([]byte{3, 4, 5, 6, 7, 8}, 2); err != nil {
		t.Fatalf("PushChunk: %v", err)
	}
	if got := b.Metrics().FramesReceived; got != 2 {
		t.Fatalf("expected 2 complete frames, got %d", got)
	}

	f, ok := b.Pop(context.Background(), time.Second)
	if !ok || f.PCM[0] != 1 || f.PCM[3] != 4 {
		t.Fatalf("unexpected first frame: %+v ok=%v", f, ok)
	}
}

func TestPushChunkWithoutFrameSizeConfiguredFails(t *testing.T) {
	b := New(10)
	if err := b.PushChunk([]byte{1, 2, 3, 4}, 1); err == nil {
		t.Fatal("expected error: no accumulator configured")
	}
}
