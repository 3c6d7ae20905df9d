package surface

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"codepanel/common"
	"codepanel/editor"
)

// Rich is a surface backed by rich editor instance. Until the capability is
// bound, writes are buffered.
type Rich struct {
	log       *zap.Logger
	kind      common.Kind
	container *editor.Container
	opts      editor.InstanceOptions
	onWrite   WriteHook

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	pending string
	inst    editor.Instance
	binding bool
}

// NewRich creates unbound surface. Options language is forced to match the
// kind.
func NewRich(kind common.Kind, container *editor.Container, opts editor.InstanceOptions, onWrite WriteHook, log *zap.Logger) *Rich {
	if log == nil {
		log = zap.NewNop()
	}
	opts.Language = kind.Language()
	ctx, cancel := context.WithCancel(context.Background())
	return &Rich{
		log:       log.Named("surface").With(zap.Stringer("kind", kind), zap.String("container", container.ID())),
		kind:      kind,
		container: container,
		opts:      opts,
		onWrite:   onWrite,
		ctx:       ctx,
		cancel:    cancel,
		pending:   opts.Value,
	}
}

func (s *Rich) Kind() common.Kind            { return s.kind }
func (s *Rich) Container() *editor.Container { return s.container }
func (s *Rich) Context() context.Context     { return s.ctx }

func (s *Rich) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Bind creates editor instance seeded with buffered content. Instance left
// from earlier binding is disposed first. On failure surface stays unbound.
// Only one binding runs at a time, concurrent calls get ErrBinding.
func (s *Rich) Bind(c editor.Capability) error {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return editor.ErrDisposed
	}
	if s.binding {
		s.mu.Unlock()
		return ErrBinding
	}
	s.binding = true
	stale := s.inst
	if stale != nil {
		s.pending = stale.Value()
		s.inst, s.state = nil, StateUnbound
	}
	opts := s.opts
	opts.Value = s.pending
	s.mu.Unlock()

	if stale != nil {
		s.log.Debug("Disposing stale editor instance")
		if err := stale.Dispose(); err != nil {
			s.log.Warn("Unable to dispose stale editor instance", zap.Error(err))
		}
	}

	inst, err := newInstance(c, s.container, opts)

	s.mu.Lock()
	s.binding = false
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state == StateDisposed {
		s.mu.Unlock()
		return disposeWith(inst, editor.ErrDisposed)
	}
	// content written while instance was being created wins
	if s.pending != opts.Value {
		inst.SetValue(s.pending)
	}
	s.inst, s.state = inst, StateBound
	text := s.pending
	s.mu.Unlock()

	s.log.Debug("Editor instance bound")
	if text != "" && s.onWrite != nil {
		s.onWrite(s)
	}
	return nil
}

func newInstance(c editor.Capability, container *editor.Container, opts editor.InstanceOptions) (inst editor.Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, fmt.Errorf("%w: %v", editor.ErrCreationFailure, r)
		}
	}()
	if c == nil {
		return nil, fmt.Errorf("%w: no capability", editor.ErrCreationFailure)
	}
	if inst, err = c.NewInstance(container, opts); err != nil {
		return nil, fmt.Errorf("%w: %w", editor.ErrCreationFailure, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: capability returned nothing", editor.ErrCreationFailure)
	}
	return inst, nil
}

func disposeWith(inst editor.Instance, err error) error {
	return multierr.Append(err, inst.Dispose())
}

func (s *Rich) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateBound {
		return s.inst.Value()
	}
	return s.pending
}

func (s *Rich) SetContent(text string) {
	if s.write(text) && s.onWrite != nil {
		s.onWrite(s)
	}
}

func (s *Rich) Replace(text string) {
	s.write(text)
}

// write stores text and reports whether it went to bound instance.
func (s *Rich) write(text string) bool {
	s.mu.Lock()
	switch s.state {
	case StateDisposed:
		s.mu.Unlock()
		return false
	case StateUnbound:
		s.pending = text
		s.mu.Unlock()
		return false
	}
	s.pending = text
	inst := s.inst
	inst.SetValue(text)
	s.mu.Unlock()

	inst.Layout()
	return true
}

func (s *Rich) Selection() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBound {
		return "", false
	}
	r, ok := s.inst.Selection()
	if !ok {
		return "", false
	}
	text := s.inst.Value()
	if r.Start < 0 || r.End > len(text) || r.IsEmpty() {
		return "", false
	}
	return text[r.Start:r.End], true
}

// Select selects range of bound instance.
func (s *Rich) Select(r editor.Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateBound {
		s.inst.SetSelection(r)
	}
}

func (s *Rich) DeleteSelection() {
	s.mu.Lock()
	if s.state != StateBound {
		s.mu.Unlock()
		return
	}
	inst := s.inst
	if r, ok := inst.Selection(); ok {
		inst.ExecuteEdit(r, "")
		s.pending = inst.Value()
	}
	s.mu.Unlock()
	inst.Layout()
}

func (s *Rich) Action(id string) editor.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBound {
		return nil
	}
	return s.inst.Action(id)
}

func (s *Rich) Refresh() {
	s.mu.Lock()
	inst := s.inst
	bound := s.state == StateBound
	s.mu.Unlock()
	if bound {
		inst.Layout()
	}
}

// Dispose releases bound instance. Last content stays readable.
func (s *Rich) Dispose() error {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return nil
	}
	inst := s.inst
	if inst != nil {
		s.pending = inst.Value()
	}
	s.inst, s.state = nil, StateDisposed
	s.mu.Unlock()

	s.cancel()
	if inst == nil {
		return nil
	}
	if err := inst.Dispose(); err != nil {
		return fmt.Errorf("unable to dispose %s editor: %w", s.kind, err)
	}
	return nil
}
