package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"codepanel/common"
	"codepanel/config"
	"codepanel/state"
)

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	return ctx, env
}

func newSession(t *testing.T, env *state.LocalEnv) *Session {
	t.Helper()
	sess := New(env)
	t.Cleanup(func() {
		if err := sess.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return sess
}

func withTimeout(t *testing.T, ctx context.Context) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFormatText(t *testing.T) {
	tests := []struct {
		name string
		kind common.Kind
		in   string
		want string
	}{
		{"markup", common.KindMarkup, "<div><p>hi</p></div>", "<div>\n  <p>hi</p>\n</div>"},
		{"style", common.KindStyle, ".a{color:red}", ".a {\n  color: red;\n}"},
		// not well formed markup is handled by fallback formatter
		{"markup fallback", common.KindMarkup, "<div class=a><p>hi</p></div>", "<div class=a>\n  <p>hi</p>\n</div>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, env := setupTestEnv(t)
			sess := newSession(t, env)

			got, err := sess.FormatText(withTimeout(t, ctx), tt.kind, tt.in)
			if err != nil {
				t.Fatalf("FormatText failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestApply(t *testing.T) {
	ctx, env := setupTestEnv(t)
	sess := newSession(t, env)

	err := sess.Apply(withTimeout(t, ctx), Request{
		Page:   `<div id="x" class="a"><p>old</p></div><p class="b">tail</p>`,
		Select: "#x",
		Markup: `<div id="x"><span>new</span></div>`,
		Style:  ".b{color:blue}",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	out := sess.Render(false)
	if !strings.Contains(out, `<div id="x"><span>new</span></div>`) {
		t.Errorf("expected replaced component, got:\n%s", out)
	}
	if strings.Contains(out, "old") {
		t.Errorf("old markup must be gone, got:\n%s", out)
	}
	if !strings.Contains(out, `<p class="b">tail</p>`) {
		t.Errorf("siblings must survive, got:\n%s", out)
	}
	if !strings.Contains(out, ".b {") {
		t.Errorf("expected applied style, got:\n%s", out)
	}
	if sess.Design().Revision() != 2 {
		t.Errorf("expected revision 2, got %d", sess.Design().Revision())
	}
}

func TestApply_StyleTravelsWithMarkup(t *testing.T) {
	ctx, env := setupTestEnv(t)
	sess := newSession(t, env)

	err := sess.Apply(withTimeout(t, ctx), Request{
		Page:   `<div id="x"></div>`,
		Select: "#x",
		Markup: `<div id="x">a</div><style>#x{color:red}</style>`,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if css := sess.Design().Styles().CSS(); !strings.Contains(css, "#x {") {
		t.Errorf("expected #x rule in style model, got:\n%s", css)
	}
}

func TestApply_Remove(t *testing.T) {
	ctx, env := setupTestEnv(t)
	sess := newSession(t, env)

	err := sess.Apply(withTimeout(t, ctx), Request{
		Page:   `<p class="a">x</p><style>.a{color:red}.a:hover{color:blue}</style>`,
		Remove: ".a:hover{color:blue}",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	css := sess.Design().Styles().CSS()
	if strings.Contains(css, ":hover") {
		t.Errorf("expected hover rule removed, got:\n%s", css)
	}
	if !strings.Contains(css, ".a {") {
		t.Errorf("expected base rule kept, got:\n%s", css)
	}
}

func TestApply_RemoveDisabled(t *testing.T) {
	ctx, env := setupTestEnv(t)
	env.Cfg.Editor.CleanStyle = false
	sess := newSession(t, env)

	err := sess.Apply(withTimeout(t, ctx), Request{Remove: ".a{color:red}"})
	if !errors.Is(err, ErrCleanStyleDisabled) {
		t.Errorf("expected ErrCleanStyleDisabled, got %v", err)
	}
}

func TestApply_BadSelector(t *testing.T) {
	ctx, env := setupTestEnv(t)
	sess := newSession(t, env)

	err := sess.Apply(withTimeout(t, ctx), Request{Page: "<p>x</p>", Select: "#missing"})
	if err == nil {
		t.Error("expected error for selector matching nothing")
	}
}

func TestRender_Dump(t *testing.T) {
	ctx, env := setupTestEnv(t)
	sess := newSession(t, env)

	if err := sess.Apply(withTimeout(t, ctx), Request{Page: `<p id="a">x</p>`, Select: "#a"}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out := sess.Render(true); !strings.Contains(out, "*") {
		t.Errorf("expected selected component marker in dump, got:\n%s", out)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name, kind, path string
		want             common.Kind
		wantErr          bool
	}{
		{"explicit", "css", "x.html", common.KindStyle, false},
		{"by extension", "", "x.css", common.KindStyle, false},
		{"html extension", "", "x.xhtml", common.KindMarkup, false},
		{"default", "", "x.txt", common.KindMarkup, false},
		{"unknown", "yaml", "x.css", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := kindOf(tt.kind, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("kindOf() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("kindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadOptionalAndWriteResult(t *testing.T) {
	if text, err := readOptional(""); err != nil || text != "" {
		t.Errorf("expected empty result for empty path, got %q, %v", text, err)
	}
	if _, err := readOptional(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}

	dst := filepath.Join(t.TempDir(), "out.css")
	if err := writeResult(dst, "#a{}\n"); err != nil {
		t.Fatalf("writeResult failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	text, err := readOptional(dst)
	if err != nil || text != string(data) || text != "#a{}\n" {
		t.Errorf("unexpected round trip %q, %v", text, err)
	}
}

func TestHighlight(t *testing.T) {
	ctx, env := setupTestEnv(t)

	out := highlight(ctx, env, common.KindStyle, ".a { color: red; }")
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected escape sequences in highlighted output, got %q", out)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if out := highlight(canceled, env, common.KindStyle, "x"); out != "x" {
		t.Errorf("expected text unchanged on failure, got %q", out)
	}
}
