package editor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// LoadState is the state of capability loading.
type LoadState int

const (
	LoadNotRequested LoadState = iota
	LoadLoading
	LoadReady
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadNotRequested:
		return "not-requested"
	case LoadLoading:
		return "loading"
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// Signal is the shared completion signal of a capability load.
type Signal struct {
	done chan struct{}
	cap  Capability
	err  error
}

func newSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

func (s *Signal) resolve(c Capability, err error) {
	s.cap, s.err = c, err
	close(s.done)
}

// Done is closed when loading completed either way.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until loading completes or ctx is done. Returned error wraps
// ErrLoadFailure when the capability could not be loaded.
func (s *Signal) Wait(ctx context.Context) (Capability, error) {
	select {
	case <-s.done:
		return s.cap, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loader loads the capability at most once. It is shared by every lifecycle
// manager in the process; tests create private loaders.
type Loader struct {
	log  *zap.Logger
	load LoadFunc

	mu       sync.Mutex
	state    LoadState
	sig      *Signal
	attempts int
}

// NewLoader creates loader which will call load on first request.
func NewLoader(load LoadFunc, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log.Named("loader"), load: load}
}

// Request starts loading unless it was already started and returns the
// signal every requester shares. Loading is detached from ctx cancellation:
// other requesters may still be waiting for it.
func (l *Loader) Request(ctx context.Context) *Signal {
	l.mu.Lock()
	if l.sig != nil {
		sig := l.sig
		l.mu.Unlock()
		l.log.Debug("Attaching to existing capability load", zap.Stringer("state", l.State()))
		return sig
	}
	l.sig = newSignal()
	l.state = LoadLoading
	l.attempts++
	sig := l.sig
	l.mu.Unlock()

	l.log.Debug("Loading rich-editing capability")
	go l.run(context.WithoutCancel(ctx), sig)
	return sig
}

func (l *Loader) run(ctx context.Context, sig *Signal) {
	c, err := l.call(ctx)

	l.mu.Lock()
	if err != nil {
		l.state = LoadFailed
	} else {
		l.state = LoadReady
	}
	l.mu.Unlock()

	if err != nil {
		l.log.Warn("Rich-editing capability failed to load", zap.Error(err))
	} else {
		l.log.Debug("Rich-editing capability loaded")
	}
	sig.resolve(c, err)
}

// call invokes load func converting panics and missing results into errors.
func (l *Loader) call(ctx context.Context) (c Capability, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("%w: %v", ErrLoadFailure, r)
		}
	}()
	if l.load == nil {
		return nil, fmt.Errorf("%w: nothing to load", ErrLoadFailure)
	}
	if c, err = l.load(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: loader returned nothing", ErrLoadFailure)
	}
	return c, nil
}

// State returns current load state.
func (l *Loader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Attempts returns how many times loading was started, never more than one.
func (l *Loader) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

var (
	sharedMu     sync.Mutex
	sharedLoader *Loader
)

// Shared returns process-wide loader. The first caller decides what is
// loaded; load and log of later callers are ignored.
func Shared(load LoadFunc, log *zap.Logger) *Loader {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedLoader == nil {
		sharedLoader = NewLoader(load, log)
	}
	return sharedLoader
}
