package vad

import (
	"testing"

	"github.com/saletech/speechcore/pkg/perr"
)

type stubNeural struct {
	prob    float64
	err     error
	resets  int
	closed  int
}

func (s *stubNeural) Infer(samples []float32) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.prob, nil
}
func (s *stubNeural) Reset()       { s.resets++ }
func (s *stubNeural) Close() error { s.closed++; return nil }

type stubClassical struct {
	speech bool
	err    error
	closed int
}

func (s *stubClassical) IsSpeech(pcm []byte) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.speech, nil
}
func (s *stubClassical) Close() error { s.closed++; return nil }

func frame(n int, amplitude int16) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		pcm[2*i] = byte(amplitude)
		pcm[2*i+1] = byte(amplitude >> 8)
	}
	return pcm
}

func TestCompositeFusionRule(t *testing.T) {
	cfg := DefaultConfig(16000, 20)

	tests := []struct {
		name            string
		neuralProb      float64
		classicalSpeech bool
		backgroundNoise float64
		amplitude       int16
		wantSpeech      bool
	}{
		{"high confidence neural, loud", 0.9, false, 0.01, 20000, true},
		{"low confidence, classical confirms, loud", 0.35, true, 0.01, 20000, true},
		{"low confidence, classical denies", 0.2, false, 0.01, 20000, false},
		{"high confidence but near-silent (SNR gate)", 0.9, true, 0.01, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComposite(cfg, &stubNeural{prob: tt.neuralProb}, &stubClassical{speech: tt.classicalSpeech})
			decision, err := c.ProcessFrame(frame(320, tt.amplitude), tt.backgroundNoise)
			if err != nil {
				t.Fatalf("ProcessFrame: %v", err)
			}
			if decision.IsSpeech != tt.wantSpeech {
				t.Errorf("IsSpeech = %v, want %v (confidence=%.2f snr=%.2f threshold=%.2f)",
					decision.IsSpeech, tt.wantSpeech, decision.Confidence, decision.SNR, decision.AdaptiveThreshold)
			}
		})
	}
}

func TestAdaptiveOnsetThresholdMonotonic(t *testing.T) {
	prev := AdaptiveOnsetThreshold(0.5, 0)
	for _, noise := range []float64{0.01, 0.02, 0.05, 0.1, 1.0} {
		got := AdaptiveOnsetThreshold(0.5, noise)
		if got < prev {
			t.Fatalf("threshold decreased as noise rose: %.3f -> %.3f at noise=%.3f", prev, got, noise)
		}
		if got > 0.8 {
			t.Fatalf("threshold %.3f exceeds cap 0.8", got)
		}
		prev = got
	}
}

func TestCompositeEmptyFrameIsInvalidFrame(t *testing.T) {
	c := NewComposite(DefaultConfig(16000, 20), &stubNeural{}, &stubClassical{})
	_, err := c.ProcessFrame(nil, 0.01)
	var pe *perr.Error
	if err == nil {
		t.Fatal("expected error for empty frame")
	}
	if !asPerr(err, &pe) || pe.Kind != perr.InvalidFrame {
		t.Fatalf("expected InvalidFrame, got %v", err)
	}
}

func TestCompositeNeuralFailureIsVadInferenceError(t *testing.T) {
	c := NewComposite(DefaultConfig(16000, 20), &stubNeural{err: errBoom{}}, &stubClassical{})
	_, err := c.ProcessFrame(frame(320, 5000), 0.01)
	var pe *perr.Error
	if !asPerr(err, &pe) || pe.Kind != perr.VadInferenceError {
		t.Fatalf("expected VadInferenceError, got %v", err)
	}
}

func TestCompositeResetDelegatesToNeural(t *testing.T) {
	n := &stubNeural{}
	c := NewComposite(DefaultConfig(16000, 20), n, &stubClassical{})
	c.Reset()
	if n.resets != 1 {
		t.Fatalf("expected neural.Reset called once, got %d", n.resets)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func asPerr(err error, target **perr.Error) bool {
	pe, ok := err.(*perr.Error)
	if !ok {
		return false
	}
	*target = pe
	return true
}
