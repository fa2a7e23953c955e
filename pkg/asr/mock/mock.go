// Package mock provides a test double for asr.Transcriber.
package mock

import (
	"context"
	"sync"
)

// TranscribeCall records one invocation of Backend.Transcribe.
type TranscribeCall struct {
	PCM        []byte
	SampleRate int
	Language   string
}

// Backend is a mock implementation of asr.Transcriber.
type Backend struct {
	mu sync.Mutex

	// Text and AvgLogprobs are returned by every Transcribe call.
	Text        string
	AvgLogprobs []float64

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	Calls []TranscribeCall
}

// Transcribe records the call and returns Text, AvgLogprobs, Err.
func (b *Backend) Transcribe(ctx context.Context, pcm []byte, sampleRate int, language string) (string, []float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	b.Calls = append(b.Calls, TranscribeCall{PCM: cp, SampleRate: sampleRate, Language: language})
	if b.Err != nil {
		return "", nil, b.Err
	}
	return b.Text, b.AvgLogprobs, nil
}
