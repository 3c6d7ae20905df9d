// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"codepanel/config"
	"codepanel/editor"
	"codepanel/lifecycle"
	"codepanel/panel"
	"codepanel/rich"
	"codepanel/surface"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Log *zap.Logger

	// used by format subcommand
	Highlight bool
	// used by apply subcommand
	Dump bool

	loader        *editor.Loader
	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// RichOptions returns capability options from configuration.
func (e *LocalEnv) RichOptions() rich.Options {
	if e.Cfg == nil {
		return rich.Options{}
	}
	return rich.Options{
		Theme:     e.Cfg.Editor.Theme,
		Formatter: e.Cfg.Editor.Formatter,
		TabSize:   e.Cfg.Editor.TabSize,
	}
}

// Loader returns capability loader shared by every panel this environment
// opens. It is created on first use.
func (e *LocalEnv) Loader() *editor.Loader {
	if e.loader == nil {
		e.loader = editor.NewLoader(rich.NewLoadFunc(e.RichOptions(), e.Log), e.Log)
	}
	return e.loader
}

// PanelOptions returns code panel options from configuration.
func (e *LocalEnv) PanelOptions() panel.Options {
	opts := panel.Options{
		Lifecycle: lifecycle.Options{
			Loader: e.Loader(),
			Rich:   e.RichOptions(),
		},
	}
	if e.Cfg == nil {
		return opts
	}
	ed := e.Cfg.Editor
	opts.ClearData = ed.ClearData
	opts.EditScript = ed.EditScript
	opts.Lifecycle.Instance = editor.InstanceOptions{TabSize: ed.TabSize, WordWrap: ed.WordWrap}
	opts.Lifecycle.Plain = surface.PlainOptions{Width: ed.Plain.Width, Height: ed.Plain.Height}
	opts.Lifecycle.SettleDelay = ed.SettleDelay
	opts.Lifecycle.LayoutDelay = ed.LayoutDelay
	return opts
}
