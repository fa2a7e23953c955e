// Package whisper implements asr.Transcriber using the whisper.cpp Go
// bindings (CGO), loading the model once and sharing it across every
// session's utterances. Each call gets its own whisper.cpp context, since
// contexts (unlike the model) are not safe for concurrent use.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Backend wraps a loaded whisper.cpp model.
type Backend struct {
	model    whisperlib.Model
	beamSize int
	bestOf   int
}

// New loads the whisper.cpp model at modelPath. beamSize and bestOf mirror
// asr_beam_size / asr_best_of from the configuration surface; both fall
// back to 1 if non-positive. Only the beam size is passed to the decoder;
// bestOf is stored on the Backend and does not affect decoding.
func New(modelPath string, beamSize, bestOf int) (*Backend, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	if beamSize <= 0 {
		beamSize = 1
	}
	if bestOf <= 0 {
		bestOf = 1
	}
	return &Backend{model: model, beamSize: beamSize, bestOf: bestOf}, nil
}

// Close releases the model. Must be called once the process no longer needs
// transcription.
func (b *Backend) Close() error {
	if b.model != nil {
		return b.model.Close()
	}
	return nil
}

// Transcribe implements asr.Transcriber. sampleRate must be 16000, the
// rate whisper.cpp models are trained at; pcm is converted to normalized
// float32 mono samples before inference.
func (b *Backend) Transcribe(ctx context.Context, pcm []byte, sampleRate int, language string) (string, []float64, error) {
	samples := pcmToFloat32Mono(pcm)

	wctx, err := b.model.NewContext()
	if err != nil {
		return "", nil, fmt.Errorf("whisper: create context: %w", err)
	}

	if language != "" {
		if err := wctx.SetLanguage(language); err != nil {
			return "", nil, fmt.Errorf("whisper: set language %q: %w", language, err)
		}
	}
	wctx.SetBeamSize(b.beamSize)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	var avgLogprobs []float64
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		avgLogprobs = append(avgLogprobs, segmentAvgLogprob(segment))
	}

	return strings.Join(parts, " "), avgLogprobs, nil
}

// segmentAvgLogprob approximates faster-whisper's per-segment avg_logprob
// from the per-token linear probabilities the whisper.cpp bindings expose:
// mean(log(token.P)) over the segment's tokens. whisper.cpp does not surface
// a native avg_logprob, so this is the closest equivalent signal available
// through the binding.
func segmentAvgLogprob(segment whisperlib.Segment) float64 {
	if len(segment.Tokens) == 0 {
		return 0
	}
	var sum float64
	for _, tok := range segment.Tokens {
		p := float64(tok.P)
		if p <= 0 {
			p = 1e-6
		}
		sum += math.Log(p)
	}
	return sum / float64(len(segment.Tokens))
}

// pcmToFloat32Mono converts 16-bit little-endian PCM to float32 samples
// normalized to [-1, 1].
func pcmToFloat32Mono(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := range n {
		u := uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8
		out[i] = float32(int16(u)) / 32768.0
	}
	return out
}
