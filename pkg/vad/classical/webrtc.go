//go:build webrtcvad

// Package classical implements vad.ClassicalDetector using Google's WebRTC
// VAD algorithm via the go-webrtcvad cgo binding.
package classical

import (
	"fmt"

	webrtcvad "github.com/baabaaox/go-webrtcvad"
)

// Engine wraps one WebRTC VAD instance. Not safe for concurrent use; build
// one per detection session.
type Engine struct {
	inst       webrtcvad.VadInst
	sampleRate int
	frameSize  int
}

// New creates a WebRTC VAD instance at the given aggressiveness mode (0-3,
// higher rejects more non-speech). sampleRate must be 8000, 16000, 32000, or
// 48000; frameSize must be the sample count for a 10, 20, or 30 ms frame at
// that rate.
func New(mode, sampleRate, frameSize int) (*Engine, error) {
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("classical: invalid mode %d: must be 0-3", mode)
	}
	inst := webrtcvad.Create()
	if err := webrtcvad.Init(inst); err != nil {
		return nil, fmt.Errorf("classical: init: %w", err)
	}
	if err := webrtcvad.SetMode(inst, mode); err != nil {
		webrtcvad.Free(inst)
		return nil, fmt.Errorf("classical: set mode: %w", err)
	}
	return &Engine{inst: inst, sampleRate: sampleRate, frameSize: frameSize}, nil
}

// IsSpeech implements vad.ClassicalDetector. pcm is zero-padded or truncated
// to exactly the configured frame size before being handed to the WebRTC
// VAD, which requires an exact match.
func (e *Engine) IsSpeech(pcm []byte) (bool, error) {
	want := e.frameSize * 2
	frame := pcm
	if len(frame) != want {
		padded := make([]byte, want)
		copy(padded, frame)
		frame = padded
	}
	isVoice, err := webrtcvad.Process(e.inst, e.sampleRate, frame, e.frameSize)
	if err != nil {
		return false, fmt.Errorf("classical: process: %w", err)
	}
	return isVoice, nil
}

// Close releases the underlying WebRTC VAD instance. Safe to call more than
// once.
func (e *Engine) Close() error {
	if e.inst != nil {
		webrtcvad.Free(e.inst)
		e.inst = nil
	}
	return nil
}
