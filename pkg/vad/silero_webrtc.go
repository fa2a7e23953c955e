//go:build onnx && webrtcvad

package vad

import (
	"fmt"
	"os"

	"github.com/saletech/speechcore/pkg/vad/classical"
	"github.com/saletech/speechcore/pkg/vad/neural"
)

// sileroWebRTCEngine is the Engine backing the "silero-webrtc" registry
// entry: it pairs the ONNX Runtime Silero neural detector with the
// go-webrtcvad classical detector under Composite. Built only when both the
// "onnx" and "webrtcvad" tags are present; see silero_webrtc_stub.go for the
// fallback in default builds.
type sileroWebRTCEngine struct {
	onnxLibPath    string
	modelData      []byte
	aggressiveness int
}

// NewSileroWebRTCEngine loads the ONNX model once at construction time and
// returns an Engine whose sessions pair a fresh neural.Engine and
// classical.Engine per the spec's dual-detector design. onnxLibPath is the
// path to the ONNX Runtime shared library; modelPath is the Silero ONNX
// model file; aggressiveness is the WebRTC VAD mode (0-3).
func NewSileroWebRTCEngine(onnxLibPath, modelPath string, aggressiveness int) (Engine, error) {
	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("vad: read onnx model %q: %w", modelPath, err)
	}
	return &sileroWebRTCEngine{
		onnxLibPath:    onnxLibPath,
		modelData:      modelData,
		aggressiveness: aggressiveness,
	}, nil
}

// NewSession implements Engine.
func (e *sileroWebRTCEngine) NewSession(cfg Config) (SpeechDetector, error) {
	neuralDet, err := neural.New(e.onnxLibPath, e.modelData, cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("vad: build neural detector: %w", err)
	}

	frameSize := cfg.SampleRate * cfg.FrameDurationMs / 1000
	classicalDet, err := classical.New(e.aggressiveness, cfg.SampleRate, frameSize)
	if err != nil {
		neuralDet.Close()
		return nil, fmt.Errorf("vad: build classical detector: %w", err)
	}

	return NewComposite(cfg, neuralDet, classicalDet), nil
}
