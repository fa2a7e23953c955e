//go:build !(onnx && webrtcvad)

package vad

import "fmt"

// NewSileroWebRTCEngine is the default-build stand-in for the real
// ONNX+WebRTC composite engine in silero_webrtc.go. Registering the
// "silero-webrtc" backend is harmless in any build; only selecting it at
// runtime requires the "onnx" and "webrtcvad" tags.
func NewSileroWebRTCEngine(onnxLibPath, modelPath string, aggressiveness int) (Engine, error) {
	return nil, fmt.Errorf("vad: \"silero-webrtc\" backend requires building with -tags onnx,webrtcvad")
}
