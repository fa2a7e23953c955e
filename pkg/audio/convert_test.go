package audio_test

import (
	"bytes"
	"testing"

	"github.com/saletech/speechcore/pkg/audio"
)

func TestChunkDuration(t *testing.T) {
	cases := []struct {
		sampleRate, durationMs, want int
	}{
		{16000, 20, 640},
		{16000, 10, 320},
		{48000, 20, 1920},
	}
	for _, tc := range cases {
		if got := audio.ChunkDuration(tc.sampleRate, tc.durationMs); got != tc.want {
			t.Errorf("ChunkDuration(%d, %d) = %d, want %d", tc.sampleRate, tc.durationMs, got, tc.want)
		}
	}
}

func TestAccumulator_ExactChunks(t *testing.T) {
	a := audio.NewAccumulator(4)
	frames := a.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{1, 2, 3, 4}) || !bytes.Equal(frames[1], []byte{5, 6, 7, 8}) {
		t.Fatalf("unexpected frame contents: %v", frames)
	}
	if a.Pending() != 0 {
		t.Fatalf("expected 0 pending bytes, got %d", a.Pending())
	}
}

func TestAccumulator_PartialChunksAccumulate(t *testing.T) {
	a := audio.NewAccumulator(4)

	frames := a.Write([]byte{1, 2})
	if len(frames) != 0 {
		t.Fatalf("expected 0 complete frames from a partial write, got %d", len(frames))
	}
	if a.Pending() != 2 {
		t.Fatalf("expected 2 pending bytes, got %d", a.Pending())
	}

	frames = a.Write([]byte{3, 4, 5})
	if len(frames) != 1 {
		t.Fatalf("expected 1 complete frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected frame contents: %v", frames[0])
	}
	if a.Pending() != 1 {
		t.Fatalf("expected 1 leftover byte, got %d", a.Pending())
	}
}

func TestAccumulator_Reset(t *testing.T) {
	a := audio.NewAccumulator(4)
	a.Write([]byte{1, 2, 3})
	a.Reset()
	if a.Pending() != 0 {
		t.Fatalf("expected 0 pending bytes after reset, got %d", a.Pending())
	}
}
