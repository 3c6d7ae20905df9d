// Package lifecycle owns the editing surfaces of the panel: it creates them,
// binds them to the rich-editing capability once it is loaded and degrades
// them to plain text when it is not.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"codepanel/common"
	"codepanel/editor"
	"codepanel/rich"
	"codepanel/surface"
)

// Placeholder is rendered into a container until its surface is bound.
const Placeholder = "Loading editor..."

var placeholderStyle = lipgloss.NewStyle().Italic(true).Faint(true)

// Scheduler runs fn once after d. Timers are never cancelled, scheduled
// functions check liveness themselves.
type Scheduler func(d time.Duration, fn func())

func afterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Options configure Manager. Zero value is usable.
type Options struct {
	// Loader is the capability loader, process-wide one when nil.
	Loader *editor.Loader
	// Rich configures capability when process-wide loader is created by
	// this manager.
	Rich rich.Options
	// Instance is the template for editor instances, language and value are
	// set per surface.
	Instance editor.InstanceOptions
	Plain    surface.PlainOptions

	// SettleDelay is how long after a write to bound surface OnWrite is
	// called.
	SettleDelay time.Duration
	// LayoutDelay is how long RefreshLater waits before surfaces layout.
	LayoutDelay time.Duration
	Schedule    Scheduler

	// OnWrite is called after settle delay for surfaces which are still
	// alive.
	OnWrite surface.WriteHook
}

// Manager tracks one surface per content kind.
type Manager struct {
	log    *zap.Logger
	opts   Options
	loader *editor.Loader

	mu       sync.Mutex
	surfaces map[common.Kind]surface.Surface
	gen      uint64

	// serializes BindAll, state checks and binding of a surface happen
	// together
	bindMu sync.Mutex
}

// New creates manager. Nothing is loaded until RequestCapability or Start is
// called.
func New(opts Options, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("lifecycle")

	if opts.Schedule == nil {
		opts.Schedule = afterFunc
	}
	loader := opts.Loader
	if loader == nil {
		loader = editor.Shared(rich.NewLoadFunc(opts.Rich, log), log)
	}
	return &Manager{
		log:      log,
		opts:     opts,
		loader:   loader,
		surfaces: make(map[common.Kind]surface.Surface),
	}
}

// Loader returns capability loader manager uses.
func (m *Manager) Loader() *editor.Loader {
	return m.loader
}

// RequestCapability starts capability loading unless anybody in the process
// already did and returns shared completion signal.
func (m *Manager) RequestCapability(ctx context.Context) *editor.Signal {
	return m.loader.Request(ctx)
}

// CreateSurface allocates surface for kind with a new attached container and
// renders loading placeholder into it. Surface previously registered for the
// kind is disposed.
func (m *Manager) CreateSurface(kind common.Kind) surface.Surface {
	container := editor.NewContainer(kind)
	container.Attach()
	container.Render(placeholderStyle.Render(Placeholder))

	s := surface.NewRich(kind, container, m.opts.Instance, m.settle, m.log)

	m.mu.Lock()
	old := m.surfaces[kind]
	m.surfaces[kind] = s
	m.mu.Unlock()

	if old != nil {
		m.release(old)
	}
	m.log.Debug("Surface created", zap.Stringer("kind", kind), zap.String("container", container.ID()))
	return s
}

// Surface returns surface registered for kind or nil.
func (m *Manager) Surface(kind common.Kind) surface.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surfaces[kind]
}

// Surfaces returns registered surfaces in kind order.
func (m *Manager) Surfaces() []surface.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]surface.Surface, 0, len(m.surfaces))
	for _, kind := range common.Kinds() {
		if s, ok := m.surfaces[kind]; ok {
			res = append(res, s)
		}
	}
	return res
}

// BindAll binds every registered unbound surface with attached container to
// the capability. Surface which could not be bound is degraded to plain text
// alone. Returns number of surfaces bound.
func (m *Manager) BindAll(c editor.Capability) int {
	m.bindMu.Lock()
	defer m.bindMu.Unlock()

	var bound int
	for _, s := range m.Surfaces() {
		rs, ok := s.(*surface.Rich)
		if !ok || rs.State() != surface.StateUnbound || !rs.Container().Attached() {
			continue
		}
		if err := rs.Bind(c); err != nil {
			if errors.Is(err, editor.ErrDisposed) || errors.Is(err, surface.ErrBinding) {
				continue
			}
			m.log.Warn("Unable to create editor, falling back to plain text",
				zap.Stringer("kind", rs.Kind()), zap.Error(err))
			m.degrade(rs)
			continue
		}
		bound++
	}
	return bound
}

// FallbackToPlainText degrades every registered rich surface.
func (m *Manager) FallbackToPlainText() {
	for _, s := range m.Surfaces() {
		if rs, ok := s.(*surface.Rich); ok && rs.State() != surface.StateDisposed {
			m.degrade(rs)
		}
	}
}

// degrade replaces rich surface with plain one holding the same content.
func (m *Manager) degrade(rs *surface.Rich) {
	text := rs.Content()
	if err := rs.Dispose(); err != nil {
		m.log.Warn("Unable to dispose surface", zap.Stringer("kind", rs.Kind()), zap.Error(err))
	}

	m.mu.Lock()
	if m.surfaces[rs.Kind()] != surface.Surface(rs) {
		// surface was replaced or manager disposed meanwhile
		m.mu.Unlock()
		return
	}
	plain := surface.NewPlain(rs.Kind(), rs.Container(), text, m.opts.Plain, m.log)
	m.surfaces[rs.Kind()] = plain
	m.mu.Unlock()

	m.log.Debug("Surface degraded to plain text", zap.Stringer("kind", rs.Kind()))
}

// Start requests capability and binds surfaces when it is ready or degrades
// them when it failed. Returned channel is closed once that is done or
// abandoned because ctx ended or manager was disposed.
func (m *Manager) Start(ctx context.Context) <-chan struct{} {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	done := make(chan struct{})
	sig := m.RequestCapability(ctx)
	go func() {
		defer close(done)

		c, err := sig.Wait(ctx)
		if ctx.Err() != nil {
			return
		}
		if !m.current(gen) {
			m.log.Debug("Manager disposed while capability was loading")
			return
		}
		if err != nil {
			m.log.Warn("Rich editing is not available, using plain text", zap.Error(err))
			m.FallbackToPlainText()
			return
		}
		m.log.Debug("Surfaces bound", zap.Int("count", m.BindAll(c)))
	}()
	return done
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// settle is write hook of rich surfaces.
func (m *Manager) settle(s surface.Surface) {
	if m.opts.OnWrite == nil {
		return
	}
	ctx := s.Context()
	m.opts.Schedule(m.opts.SettleDelay, func() {
		if surface.Alive(ctx) {
			m.opts.OnWrite(s)
		}
	})
}

// RefreshLater lays out registered surfaces after layout delay.
func (m *Manager) RefreshLater() {
	for _, s := range m.Surfaces() {
		ctx := s.Context()
		m.opts.Schedule(m.opts.LayoutDelay, func() {
			if surface.Alive(ctx) {
				s.Refresh()
			}
		})
	}
}

// Dispose releases every surface and forgets them. Pending continuations
// issued before the call are abandoned. Manager may be reused afterwards.
func (m *Manager) Dispose() error {
	m.mu.Lock()
	m.gen++
	surfaces := m.surfaces
	m.surfaces = make(map[common.Kind]surface.Surface)
	m.mu.Unlock()

	var err error
	for _, kind := range common.Kinds() {
		if s, ok := surfaces[kind]; ok {
			err = multierr.Append(err, m.release(s))
		}
	}
	if len(surfaces) > 0 {
		m.log.Debug("Surfaces disposed", zap.Int("count", len(surfaces)))
	}
	return err
}

func (m *Manager) release(s surface.Surface) error {
	err := s.Dispose()
	s.Container().Clear()
	s.Container().Detach()
	if err != nil {
		m.log.Warn("Unable to dispose surface", zap.Stringer("kind", s.Kind()), zap.Error(err))
	}
	return err
}
