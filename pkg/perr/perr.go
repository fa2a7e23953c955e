// Package perr defines the pipeline's error taxonomy: a single error type
// carrying a stable error kind, code, and structured context, replacing the
// exception-driven control flow of the originating implementation with
// explicit Go error values that callers decide how to handle via errors.As.
package perr

import "fmt"

// Kind enumerates the recovery class of a pipeline error. Orchestration code
// reads Kind to decide whether to continue the session, discard an
// utterance, or tear down the process — never the error's text.
type Kind int

const (
	// InvalidFrame marks a malformed audio payload (empty, wrong shape).
	// Local: reject, count, continue.
	InvalidFrame Kind = iota

	// InvalidInput marks a malformed numeric input to the turn-state tracker
	// (non-finite timestamp or energy). Local: reject, count, continue.
	InvalidInput

	// VadInferenceError marks a sub-detector failure for one frame.
	// Local: treat the frame as non-speech, continue.
	VadInferenceError

	// SegmentationError marks a failure finalizing an utterance.
	// Utterance-scoped: discard the utterance, reset the buffer, continue.
	SegmentationError

	// AsrTranscribeFailed marks an ASR failure for one utterance.
	// Utterance-scoped: surface an empty, failure-marked transcription.
	AsrTranscribeFailed

	// NotInitialized marks a call made before Initialize. Fatal to the caller.
	NotInitialized

	// AsrInitFailed marks ASR model load failure. Fatal to the process.
	AsrInitFailed

	// VadInitFailed marks VAD model load failure. Fatal to the process.
	VadInitFailed
)

// String returns the taxonomy name used as the stable error_code.
func (k Kind) String() string {
	switch k {
	case InvalidFrame:
		return "INVALID_FRAME"
	case InvalidInput:
		return "INVALID_INPUT"
	case VadInferenceError:
		return "VAD_INFERENCE_ERROR"
	case SegmentationError:
		return "SEGMENTATION_ERROR"
	case AsrTranscribeFailed:
		return "ASR_TRANSCRIBE_FAILED"
	case NotInitialized:
		return "NOT_INITIALIZED"
	case AsrInitFailed:
		return "ASR_INIT_FAILED"
	case VadInitFailed:
		return "VAD_INIT_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Fatal reports whether errors of this kind are fatal to the caller (a
// programming error) or to the process (an init failure), as opposed to
// being locally or utterance-scoped recoverable.
func (k Kind) Fatal() bool {
	switch k {
	case NotInitialized, AsrInitFailed, VadInitFailed:
		return true
	default:
		return false
	}
}

// Error is the pipeline's sole error type. Every recoverable and fatal
// condition described by the error taxonomy is represented as an *Error so
// that orchestration code can switch on Kind via errors.As instead of
// matching on error strings.
type Error struct {
	// Kind is the taxonomy entry this error belongs to.
	Kind Kind

	// Component names the originating component (e.g. "ingress", "vad",
	// "turnstate", "segment", "asr").
	Component string

	// SessionID identifies the pipeline instance, when applicable.
	SessionID string

	// Context holds additional structured fields for logging.
	Context map[string]any

	// Cause is the wrapped underlying error, if any.
	Cause error
}

// New constructs an *Error of the given kind and component with no message
// beyond the taxonomy name.
func New(kind Kind, component string) *Error {
	return &Error{Kind: kind, Component: component}
}

// Wrap constructs an *Error of the given kind and component, wrapping cause.
func Wrap(kind Kind, component string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Cause: cause}
}

// WithSession returns a copy of e with SessionID set.
func (e *Error) WithSession(sessionID string) *Error {
	cp := *e
	cp.SessionID = sessionID
	return &cp
}

// WithContext returns a copy of e with a context key/value attached.
func (e *Error) WithContext(key string, value any) *Error {
	cp := *e
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	cp.Context = ctx
	return &cp
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Kind)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target has the same Kind, so errors.Is(err, perr.New(perr.InvalidFrame, "")) works regardless of Component/SessionID/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
