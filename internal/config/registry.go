package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/saletech/speechcore/pkg/asr"
	"github.com/saletech/speechcore/pkg/vad"
)

// ErrBackendNotRegistered is returned by Create* methods when no factory has
// been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: backend not registered")

// Registry maps backend names to their constructor functions, replacing the
// dynamic module-level singletons of the originating system with an
// explicit process-lifetime handle built once at bootstrap and passed by
// reference into every pipeline session. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	vad map[string]func(VADConfig) (vad.Engine, error)
	asr map[string]func(ASRConfig) (asr.Transcriber, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		vad: make(map[string]func(VADConfig) (vad.Engine, error)),
		asr: make(map[string]func(ASRConfig) (asr.Transcriber, error)),
	}
}

// RegisterVAD registers a VAD engine factory under name. Subsequent calls
// with the same name overwrite the previous registration.
func (r *Registry) RegisterVAD(name string, factory func(VADConfig) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// RegisterASR registers an ASR transcriber factory under name.
func (r *Registry) RegisterASR(name string, factory func(ASRConfig) (asr.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// CreateVAD instantiates a VAD engine using the factory registered under
// cfg.Backend. Returns [ErrBackendNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateVAD(cfg VADConfig) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.vad[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrBackendNotRegistered, cfg.Backend)
	}
	return factory(cfg)
}

// CreateASR instantiates an ASR transcriber using the factory registered
// under cfg.Backend.
func (r *Registry) CreateASR(cfg ASRConfig) (asr.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.asr[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrBackendNotRegistered, cfg.Backend)
	}
	return factory(cfg)
}
