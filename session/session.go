// Package session drives code panel without interactive host: markup is
// loaded into a host editor, panel is opened against it and content is
// pushed and pulled the same way user edits would do it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"codepanel/common"
	"codepanel/host"
	"codepanel/panel"
	"codepanel/state"
)

// ErrCleanStyleDisabled is returned when rule removal was requested but
// configuration does not allow it.
var ErrCleanStyleDisabled = errors.New("removing style rules is disabled by configuration")

// Request describes single apply run. Empty fields are skipped.
type Request struct {
	Page   string // initial host content
	Select string // CSS selector of component to edit, wrapper when empty
	Markup string // new markup of selected component
	Style  string // style rules to add
	Remove string // style rules to remove
}

// Session is a host editor with code panel attached to it.
type Session struct {
	log        *zap.Logger
	design     *host.Editor
	panel      *panel.Controller
	cleanStyle bool
}

// New creates session from program environment.
func New(env *state.LocalEnv) *Session {
	log := env.Log
	if log == nil {
		log = zap.NewNop()
	}
	styles := host.NewStyles(log)
	design := host.NewEditor(styles, log)
	s := &Session{
		log:    log.Named("session"),
		design: design,
		panel:  panel.New(design, styles, env.PanelOptions(), log),
	}
	if env.Cfg != nil {
		s.cleanStyle = env.Cfg.Editor.CleanStyle
	}
	return s
}

func (s *Session) Design() *host.Editor     { return s.design }
func (s *Session) Panel() *panel.Controller { return s.panel }

// Open opens panel and waits until its surfaces are initialized.
func (s *Session) Open(ctx context.Context) error {
	select {
	case <-s.panel.Open(ctx):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FormatText formats text of a kind the way panel format command does.
func (s *Session) FormatText(ctx context.Context, kind common.Kind, text string) (string, error) {
	if err := s.Open(ctx); err != nil {
		return "", err
	}
	surf := s.panel.Surface(kind)
	if surf == nil {
		return "", fmt.Errorf("no %s surface", kind)
	}
	surf.SetContent(text)
	s.panel.Format(ctx, kind)
	return surf.Content(), nil
}

// Apply runs request against host editor.
func (s *Session) Apply(ctx context.Context, req Request) error {
	if len(req.Page) > 0 {
		if err := s.design.SetRootContent(req.Page); err != nil {
			return fmt.Errorf("unable to load page: %w", err)
		}
	}
	if len(req.Select) > 0 {
		if _, err := s.design.SelectCSS(req.Select); err != nil {
			return fmt.Errorf("unable to select component: %w", err)
		}
	}
	if err := s.Open(ctx); err != nil {
		return err
	}

	if strings.TrimSpace(req.Markup) != "" {
		s.panel.Surface(common.KindMarkup).SetContent(req.Markup)
		if err := s.panel.PushMarkup(); err != nil {
			return fmt.Errorf("unable to push markup: %w", err)
		}
		s.log.Info("Markup applied", zap.Int("revision", s.design.Revision()))
	}
	if strings.TrimSpace(req.Style) != "" {
		s.panel.Surface(common.KindStyle).SetContent(req.Style)
		n := s.panel.PushStyle()
		s.log.Info("Style applied", zap.Int("rules", n))
	}
	if strings.TrimSpace(req.Remove) != "" {
		if !s.cleanStyle {
			return ErrCleanStyleDisabled
		}
		n := panel.RemoveRules(s.design.Styles(), req.Remove)
		s.log.Info("Style rules removed", zap.Int("rules", n))
	}
	return nil
}

// Render returns host content followed by its style sheet, or the host
// tree dump.
func (s *Session) Render(dump bool) string {
	if dump {
		return s.design.Dump()
	}
	var sb strings.Builder
	sb.WriteString(s.design.HTML())
	if css := s.design.Styles().CSS(); len(css) > 0 {
		sb.WriteString("\n<style>\n")
		sb.WriteString(css)
		sb.WriteString("</style>")
	}
	sb.WriteString("\n")
	return sb.String()
}

// Close hides panel and releases its surfaces.
func (s *Session) Close() error {
	s.panel.Close()
	return s.panel.Dispose()
}
