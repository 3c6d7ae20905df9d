package surface

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"codepanel/common"
	"codepanel/editor"
)

// PlainOptions control fallback text field geometry.
type PlainOptions struct {
	Width  int
	Height int
}

// Plain is a minimal text field used when rich editing is not available.
// It has no selection support and no actions.
type Plain struct {
	log       *zap.Logger
	kind      common.Kind
	container *editor.Container

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	area     textarea.Model
	last     string // text as it was written
	shown    string // the same text as text field keeps it
	disposed bool
}

// NewPlain creates text field surface holding text and renders it.
func NewPlain(kind common.Kind, container *editor.Container, text string, opts PlainOptions, log *zap.Logger) *Plain {
	if log == nil {
		log = zap.NewNop()
	}

	area := textarea.New()
	area.ShowLineNumbers = false
	area.Prompt = ""
	area.CharLimit = 0
	area.MaxHeight = 0
	area.MaxWidth = 0
	if opts.Width > 0 {
		area.SetWidth(opts.Width)
	}
	if opts.Height > 0 {
		area.SetHeight(opts.Height)
	}
	area.Focus()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Plain{
		log:       log.Named("surface").With(zap.Stringer("kind", kind), zap.String("container", container.ID()), zap.Bool("plain", true)),
		kind:      kind,
		container: container,
		ctx:       ctx,
		cancel:    cancel,
		area:      area,
	}
	s.Replace(text)
	return s
}

func (s *Plain) Kind() common.Kind            { return s.kind }
func (s *Plain) Container() *editor.Container { return s.container }
func (s *Plain) Context() context.Context     { return s.ctx }

// State of plain surface is bound until it is disposed.
func (s *Plain) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return StateDisposed
	}
	return StateBound
}

// Content returns text as it was last written unless it was edited since.
func (s *Plain) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return s.last
	}
	if v := s.area.Value(); v != s.shown {
		return v
	}
	return s.last
}

// SetContent writes text. Plain surfaces have nothing to normalize, so it is
// the same as Replace.
func (s *Plain) SetContent(text string) {
	s.Replace(text)
}

func (s *Plain) Replace(text string) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.area.SetValue(text)
	s.last, s.shown = text, s.area.Value()
	s.mu.Unlock()

	s.Refresh()
}

// Update passes input to the text field.
func (s *Plain) Update(msg tea.Msg) tea.Cmd {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	var cmd tea.Cmd
	s.area, cmd = s.area.Update(msg)
	s.mu.Unlock()

	s.Refresh()
	return cmd
}

func (s *Plain) Selection() (string, bool)   { return "", false }
func (s *Plain) DeleteSelection()            {}
func (s *Plain) Action(string) editor.Action { return nil }

// Refresh renders text field into container.
func (s *Plain) Refresh() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	view := s.area.View()
	s.mu.Unlock()

	s.container.Render(view)
}

func (s *Plain) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	if v := s.area.Value(); v != s.shown {
		s.last = v
	}
	s.disposed = true
	s.mu.Unlock()

	s.cancel()
	s.container.Clear()
	s.log.Debug("Plain surface disposed")
	return nil
}
