//go:build onnx

// Package neural implements vad.NeuralDetector using a Silero-style VAD
// model served through ONNX Runtime. It is built only with the "onnx" tag;
// default builds select the "mock" vad.Engine instead (see
// pkg/vad/silero_webrtc_stub.go for the composite engine's own fallback).
package neural

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// windowSize is the number of float32 samples per inference call.
	// Matches the Silero VAD v5 window at 16 kHz (32 ms).
	windowSize = 512

	// stateSize is the hidden-state dimension per layer; Silero VAD v5 uses
	// a combined state tensor of shape [2, 1, 128].
	stateSize = 128
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// Engine runs Silero-style VAD inference via ONNX Runtime. The runtime
// environment is initialized once per process (ortInitOnce); each Engine
// builds its own inference session from the model bytes it is given.
type Engine struct {
	session *ort.AdvancedSession

	inputTensor  *ort.Tensor[float32] // [1, windowSize]
	stateTensor  *ort.Tensor[float32] // [2, 1, stateSize]
	srTensor     *ort.Tensor[int64]   // scalar
	outputTensor *ort.Tensor[float32] // [1, 1]
	stateNTensor *ort.Tensor[float32] // [2, 1, stateSize]

	sampleRate int64
}

// New loads the given ONNX model bytes and builds one inference session.
// libPath is the path to the ONNX Runtime shared library; modelData is the
// serialized model. sampleRate must match the rate the model was trained
// for (16000 for Silero VAD v5).
func New(libPath string, modelData []byte, sampleRate int) (*Engine, error) {
	if len(modelData) == 0 {
		return nil, fmt.Errorf("neural: model data is empty")
	}

	ortInitOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("neural: initialize onnxruntime: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, windowSize))
	if err != nil {
		return nil, fmt.Errorf("neural: create input tensor: %w", err)
	}
	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, stateSize))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("neural: create state tensor: %w", err)
	}
	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(sampleRate)})
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		return nil, fmt.Errorf("neural: create sr tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		return nil, fmt.Errorf("neural: create output tensor: %w", err)
	}
	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, stateSize))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("neural: create stateN tensor: %w", err)
	}

	clearFloat32(stateTensor.GetData())
	clearFloat32(stateNTensor.GetData())

	session, err := ort.NewAdvancedSessionWithONNXData(
		modelData,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateNTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		stateNTensor.Destroy()
		return nil, fmt.Errorf("neural: create session: %w", err)
	}

	return &Engine{
		session:      session,
		inputTensor:  inputTensor,
		stateTensor:  stateTensor,
		srTensor:     srTensor,
		outputTensor: outputTensor,
		stateNTensor: stateNTensor,
		sampleRate:   int64(sampleRate),
	}, nil
}

// Infer implements vad.NeuralDetector. samples shorter than windowSize are
// zero-padded; longer slices are truncated to the first windowSize samples
// (the composite detector calls this once per configured pipeline frame, so
// truncation only matters if frame sizes exceed the model window).
func (e *Engine) Infer(samples []float32) (float64, error) {
	window := e.inputTensor.GetData()
	clearFloat32(window)
	n := len(samples)
	if n > windowSize {
		n = windowSize
	}
	copy(window, samples[:n])

	if err := e.session.Run(); err != nil {
		return 0, fmt.Errorf("neural: inference: %w", err)
	}

	prob := e.outputTensor.GetData()[0]
	copy(e.stateTensor.GetData(), e.stateNTensor.GetData())

	return float64(prob), nil
}

// Reset clears the recurrent hidden state.
func (e *Engine) Reset() {
	clearFloat32(e.stateTensor.GetData())
}

// Close releases ONNX Runtime resources. Safe to call more than once.
func (e *Engine) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.stateTensor != nil {
		e.stateTensor.Destroy()
		e.stateTensor = nil
	}
	if e.srTensor != nil {
		e.srTensor.Destroy()
		e.srTensor = nil
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	if e.stateNTensor != nil {
		e.stateNTensor.Destroy()
		e.stateNTensor = nil
	}
	return nil
}

func clearFloat32(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
