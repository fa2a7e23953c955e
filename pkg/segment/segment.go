// Package segment implements the speech-segmentation buffer: it accumulates
// frames classified as speech, maintains a pre-roll window so utterances
// never clip the start of a word, and finalizes an Utterance either on
// end-of-turn or via a safety-valve length cap.
package segment

import (
	"github.com/saletech/speechcore/pkg/perr"
	"github.com/saletech/speechcore/pkg/types"
)

const component = "segment"

const preRollCapacity = 100

// Config holds the buffer's tunable sample-count thresholds, derived once
// at startup from the configured sample rate and millisecond parameters.
type Config struct {
	// SampleRate is the PCM sample rate in Hz, used to convert the finalized
	// utterance's sample count into AudioLengthMs.
	SampleRate int

	// MinSpeechSamples is the speech-only sample count below which an
	// end-of-turn is treated as noise and the utterance is discarded
	// instead of finalized.
	MinSpeechSamples int

	// MaxSpeechSamples is the safety-valve cap: an utterance is force-
	// finalized once its speech-only sample count reaches this, regardless
	// of end-of-turn.
	MaxSpeechSamples int

	// SpeechPadSamples is the pre-roll window size in samples: this many
	// samples' worth of pre-speech audio (from the circular frame buffer)
	// are prepended to an utterance at speech onset.
	SpeechPadSamples int
}

// Buffer accumulates one session's in-flight utterance. Not safe for
// concurrent use; the owning pipeline orchestrator is its single caller.
type Buffer struct {
	cfg Config

	frameBuffer [][]byte // circular pre-roll window, capacity preRollCapacity
	current     [][]byte

	speechSamples  int
	silenceSamples int
	inSpeech       bool

	utteranceStartTS float64
	lastSpeechTS     float64
}

// New builds an empty Buffer with the given configuration.
func New(cfg Config) *Buffer {
	return &Buffer{cfg: cfg}
}

// AddFrame feeds one frame's PCM, speech decision, end-of-turn signal, and
// timestamp into the buffer. It returns a finalized Utterance when the
// frame completes one (end-of-turn with enough speech, or the safety-valve
// length cap), and ok=false otherwise.
func (b *Buffer) AddFrame(pcm []byte, isSpeech, isEoT bool, timestampSec float64) (types.Utterance, bool, error) {
	if len(pcm) == 0 {
		return types.Utterance{}, false, perr.New(perr.InvalidFrame, component)
	}

	if isSpeech {
		b.speechSamples += samples(pcm)
		b.silenceSamples = 0

		if !b.inSpeech {
			b.inSpeech = true
			b.utteranceStartTS = timestampSec
			b.current = b.preRollSlice()
		}
		b.current = append(b.current, pcm)
		b.lastSpeechTS = timestampSec
	} else {
		b.silenceSamples += samples(pcm)
		if b.inSpeech {
			b.current = append(b.current, pcm)
		}
	}

	b.pushPreRoll(pcm)

	if isEoT && b.inSpeech {
		if b.speechSamples >= b.cfg.MinSpeechSamples {
			u, err := b.finalize(timestampSec)
			if err != nil {
				return types.Utterance{}, false, err
			}
			return u, true, nil
		}
		b.reset()
		return types.Utterance{}, false, nil
	}

	if b.inSpeech && b.speechSamples >= b.cfg.MaxSpeechSamples {
		u, err := b.finalize(timestampSec)
		if err != nil {
			return types.Utterance{}, false, err
		}
		return u, true, nil
	}

	return types.Utterance{}, false, nil
}

// ForceFinalize finalizes the in-flight utterance regardless of
// end-of-turn, provided it has accumulated enough speech. Used at session
// teardown to avoid discarding a trailing partial utterance.
func (b *Buffer) ForceFinalize(timestampSec float64) (types.Utterance, bool, error) {
	if !b.inSpeech || b.speechSamples < b.cfg.MinSpeechSamples {
		return types.Utterance{}, false, nil
	}
	u, err := b.finalize(timestampSec)
	if err != nil {
		return types.Utterance{}, false, err
	}
	return u, true, nil
}

// Metrics returns a snapshot of the buffer's current state.
func (b *Buffer) Metrics() types.SegmentMetrics {
	return types.SegmentMetrics{
		InSpeech:       b.inSpeech,
		SpeechSamples:  b.speechSamples,
		SilenceSamples: b.silenceSamples,
		FramesBuffered: len(b.frameBuffer),
	}
}

func (b *Buffer) pushPreRoll(pcm []byte) {
	b.frameBuffer = append(b.frameBuffer, pcm)
	if len(b.frameBuffer) > preRollCapacity {
		b.frameBuffer = b.frameBuffer[len(b.frameBuffer)-preRollCapacity:]
	}
}

// preRollSlice returns the tail of the circular frame buffer covering
// SpeechPadSamples worth of audio, copied so later pushPreRoll mutation
// doesn't alias the returned utterance's backing frames.
func (b *Buffer) preRollSlice() [][]byte {
	if len(b.frameBuffer) == 0 || b.cfg.SpeechPadSamples <= 0 {
		return nil
	}
	perFrame := samples(b.frameBuffer[len(b.frameBuffer)-1])
	if perFrame == 0 {
		return nil
	}
	padFrames := (b.cfg.SpeechPadSamples + perFrame - 1) / perFrame
	if padFrames > len(b.frameBuffer) {
		padFrames = len(b.frameBuffer)
	}
	tail := b.frameBuffer[len(b.frameBuffer)-padFrames:]
	out := make([][]byte, len(tail))
	copy(out, tail)
	return out
}

func (b *Buffer) finalize(endTS float64) (types.Utterance, error) {
	if len(b.current) == 0 {
		b.reset()
		return types.Utterance{}, perr.New(perr.SegmentationError, component).WithContext("reason", "empty utterance")
	}

	pcm := concat(b.current)
	durationMs := (endTS - b.utteranceStartTS) * 1000
	audioLengthMs := float64(samples(pcm)) / float64(b.cfg.SampleRate) * 1000

	u := types.Utterance{
		PCM:           pcm,
		StartTS:       b.utteranceStartTS,
		EndTS:         endTS,
		DurationMs:    durationMs,
		AudioLengthMs: audioLengthMs,
		SpeechSamples: b.speechSamples,
	}

	b.reset()
	return u, nil
}

func (b *Buffer) reset() {
	b.current = nil
	b.speechSamples = 0
	b.silenceSamples = 0
	b.inSpeech = false
	b.utteranceStartTS = 0
	b.lastSpeechTS = 0
}

// Reset clears all state, including the pre-roll window. Used on session
// barge-in or teardown.
func (b *Buffer) Reset() {
	b.reset()
	b.frameBuffer = nil
}

func samples(pcm []byte) int {
	return len(pcm) / 2
}

func concat(chunks [][]byte) []byte {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
