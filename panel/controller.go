// Package panel keeps the markup and style surfaces of the code panel in sync
// with the design model. Model changes are pulled into surfaces while the
// panel is showing, surface text is pushed back on explicit apply actions.
package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"codepanel/common"
	"codepanel/css"
	"codepanel/editor"
	"codepanel/format"
	"codepanel/host"
	"codepanel/lifecycle"
	"codepanel/surface"
)

// ErrNoSelection is returned by push actions when there is no component to
// push to.
var ErrNoSelection = errors.New("no component selected")

// Design is the part of the design model the panel works with.
type Design interface {
	Selected() *host.Component
	Replace(c *host.Component, markup string) (*host.Component, error)
	SetRootContent(markup string) error
	StyleText(c *host.Component) string
	OnComponentUpdate(fn func(*host.Component)) func()
	OnPreviewStop(fn func()) func()
}

// StyleModel is the style model the panel pushes to.
type StyleModel interface {
	StyleRegistry
	AddRules(text string) []*host.Rule
}

// Options configure Controller.
type Options struct {
	Lifecycle lifecycle.Options
	// ClearData pulls model serialization of components instead of live
	// markup.
	ClearData bool
	// EditScript appends component script to pulled markup.
	EditScript bool
}

// Controller is the code panel.
type Controller struct {
	log      *zap.Logger
	design   Design
	styles   StyleModel
	opts     Options
	fallback *format.Fallback
	mgr      *lifecycle.Manager

	mu             sync.Mutex
	built          bool
	showing        bool
	started        bool
	component      *host.Component
	previousMarkup string
	previousStyle  string
	unsubscribe    []func()
}

// New creates panel. Nothing is built until Open or Build is called.
func New(design Design, styles StyleModel, opts Options, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Controller{
		log:      log.Named("panel"),
		design:   design,
		styles:   styles,
		fallback: format.NewFallback(log),
	}
	opts.Lifecycle.OnWrite = p.normalize
	p.opts = opts
	p.mgr = lifecycle.New(opts.Lifecycle, log)
	return p
}

// Manager returns lifecycle manager of the panel surfaces.
func (p *Controller) Manager() *lifecycle.Manager {
	return p.mgr
}

// Surface returns surface for kind, nil before panel is built.
func (p *Controller) Surface(kind common.Kind) surface.Surface {
	return p.mgr.Surface(kind)
}

// Open builds panel on first use and shows it. Returned channel is closed
// when surfaces initialization started by this call is over.
func (p *Controller) Open(ctx context.Context) <-chan struct{} {
	p.mu.Lock()
	built := p.built
	p.mu.Unlock()

	if !built {
		p.Build()
	}
	return p.Show(ctx)
}

// Close hides panel.
func (p *Controller) Close() {
	p.Hide()
}

// Build creates surfaces and subscribes to model notifications. Building
// again replaces surfaces.
func (p *Controller) Build() {
	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()
	for _, fn := range unsubscribe {
		fn()
	}

	for _, kind := range common.Kinds() {
		p.mgr.CreateSurface(kind)
	}
	subs := []func(){
		p.design.OnComponentUpdate(func(*host.Component) { p.Pull() }),
		p.design.OnPreviewStop(func() {
			if p.Showing() {
				p.Refresh()
			}
		}),
	}

	p.mu.Lock()
	p.built, p.started = true, false
	p.unsubscribe = subs
	p.mu.Unlock()
	p.log.Debug("Panel built")
}

// Show makes panel visible, starts surfaces initialization if it was not
// started yet and pulls content of selected component.
func (p *Controller) Show(ctx context.Context) <-chan struct{} {
	p.mu.Lock()
	p.showing = true
	start := p.built && !p.started
	if start {
		p.started = true
	}
	p.mu.Unlock()

	var done <-chan struct{}
	if start {
		done = p.mgr.Start(ctx)
	} else {
		closed := make(chan struct{})
		close(closed)
		done = closed
	}

	p.Pull()
	p.mgr.RefreshLater()
	return done
}

// Hide stops synchronization until panel is shown again.
func (p *Controller) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.showing = false
}

// Showing reports whether panel is visible and pulls model changes.
func (p *Controller) Showing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showing
}

// Pull writes markup and style of selected component into surfaces. Does
// nothing while panel is hidden.
func (p *Controller) Pull() {
	if !p.Showing() {
		return
	}
	c := p.design.Selected()
	if c == nil {
		return
	}

	markup := c.SerializeMarkup(host.MarkupOptions{ClearData: p.opts.ClearData})
	if p.opts.EditScript {
		if js := c.SerializeScript(); js != "" {
			markup += "<script>" + js + "</script>"
		}
	}
	style := p.design.StyleText(c)

	p.mu.Lock()
	p.component = c
	p.mu.Unlock()

	if s := p.mgr.Surface(common.KindMarkup); s != nil {
		s.SetContent(markup)
	}
	if s := p.mgr.Surface(common.KindStyle); s != nil {
		s.SetContent(style)
	}
	p.log.Debug("Pulled component", zap.String("tag", c.Tag()), zap.String("id", c.ID()))
}

// PushMarkup replaces component with markup surface text. Identifier scoped
// rules of style surface travel with markup as style element. Empty or
// unchanged text is ignored.
func (p *Controller) PushMarkup() error {
	ms := p.mgr.Surface(common.KindMarkup)
	if ms == nil {
		return nil
	}
	text := strings.TrimSpace(ms.Content())

	p.mu.Lock()
	if text == "" || text == p.previousMarkup {
		p.mu.Unlock()
		return nil
	}
	c := p.component
	p.mu.Unlock()

	if c == nil {
		if c = p.design.Selected(); c == nil {
			return ErrNoSelection
		}
	}

	payload := text
	if ss := p.mgr.Surface(common.KindStyle); ss != nil {
		if scoped := css.ScopedBlock(ss.Content()); scoped != "" {
			payload += "<style>" + scoped + "</style>"
		}
	}

	var err error
	if c.IsWrapper() {
		err = p.design.SetRootContent(payload)
	} else {
		c, err = p.design.Replace(c, payload)
	}
	if err != nil {
		p.log.Warn("Unable to apply markup", zap.Error(err))
		return fmt.Errorf("unable to apply markup: %w", err)
	}

	p.mu.Lock()
	p.component = c
	p.previousMarkup = text
	p.mu.Unlock()
	p.log.Debug("Markup applied", zap.Int("length", len(payload)))
	return nil
}

// PushStyle adds style surface text to the style model. Empty or unchanged
// text is ignored. Returns number of rules added or updated.
func (p *Controller) PushStyle() int {
	ss := p.mgr.Surface(common.KindStyle)
	if ss == nil {
		return 0
	}
	text := strings.TrimSpace(ss.Content())

	p.mu.Lock()
	if text == "" || text == p.previousStyle {
		p.mu.Unlock()
		return 0
	}
	p.previousStyle = text
	p.mu.Unlock()

	n := len(p.styles.AddRules(text))
	p.log.Debug("Style applied", zap.Int("rules", n))
	return n
}

// DeleteSelectedStyle removes rules selected in style surface from the model
// and deletes selected text. Returns number of rules removed.
func (p *Controller) DeleteSelectedStyle() int {
	ss := p.mgr.Surface(common.KindStyle)
	if ss == nil {
		return 0
	}
	sel, ok := ss.Selection()
	if !ok {
		return 0
	}
	n := RemoveRules(p.styles, sel)
	ss.DeleteSelection()
	p.log.Debug("Selected style deleted", zap.Int("rules", n))
	return n
}

// Format reformats surface content with bound editor formatter, falling back
// to heuristic one when there is none or it failed. Formatting result is
// dropped when surface was disposed meanwhile.
func (p *Controller) Format(ctx context.Context, kind common.Kind) {
	s := p.mgr.Surface(kind)
	if s == nil {
		return
	}
	p.format(ctx, s)
}

// normalize is surface write hook.
func (p *Controller) normalize(s surface.Surface) {
	p.format(s.Context(), s)
}

func (p *Controller) format(ctx context.Context, s surface.Surface) {
	alive := s.Context()
	if strings.TrimSpace(s.Content()) == "" {
		return
	}

	if action := s.Action(editor.ActionFormatDocument); action != nil {
		err := action.Run(ctx)
		if err == nil {
			return
		}
		if errors.Is(err, editor.ErrDisposed) || !surface.Alive(alive) {
			return
		}
		p.log.Warn("Formatting failed, using fallback", zap.Stringer("kind", s.Kind()), zap.Error(err))
	}

	if !surface.Alive(alive) {
		return
	}
	text := s.Content()
	if out := p.fallback.Format(s.Kind(), text); out != text && surface.Alive(alive) {
		s.Replace(out)
	}
}

// Refresh lays out surfaces.
func (p *Controller) Refresh() {
	for _, s := range p.mgr.Surfaces() {
		s.Refresh()
	}
}

// Dispose releases surfaces and forgets applied content. Panel may be opened
// again afterwards.
func (p *Controller) Dispose() error {
	p.mu.Lock()
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.built, p.showing, p.started = false, false, false
	p.component = nil
	p.previousMarkup, p.previousStyle = "", ""
	p.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	if err := p.mgr.Dispose(); err != nil {
		return fmt.Errorf("unable to dispose panel: %w", err)
	}
	return nil
}
