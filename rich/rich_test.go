package rich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"codepanel/common"
	"codepanel/editor"
)

func loadCapability(t *testing.T) *Capability {
	t.Helper()
	c, err := Load(context.Background(), Options{Theme: "github", Formatter: "noop"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func attachedContainer(kind common.Kind) *editor.Container {
	c := editor.NewContainer(kind)
	c.Attach()
	return c
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, Options{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestNewInstance_RequiresAttachedContainer(t *testing.T) {
	c := loadCapability(t)

	_, err := c.NewInstance(editor.NewContainer(common.KindMarkup), editor.InstanceOptions{Language: "html"})
	if !errors.Is(err, editor.ErrCreationFailure) {
		t.Errorf("expected creation failure for detached container, got %v", err)
	}

	_, err = c.NewInstance(attachedContainer(common.KindMarkup), editor.InstanceOptions{Language: "go"})
	if !errors.Is(err, editor.ErrCreationFailure) {
		t.Errorf("expected creation failure for unsupported language, got %v", err)
	}
}

func TestInstance_RendersIntoContainer(t *testing.T) {
	c := loadCapability(t)
	cont := attachedContainer(common.KindStyle)

	inst, err := c.NewInstance(cont, editor.InstanceOptions{Language: "css", Value: ".a{color:red}"})
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}
	if cont.View() != ".a{color:red}" {
		t.Errorf("expected noop formatter to render text as is, got %q", cont.View())
	}

	inst.SetValue(".b{}")
	inst.Layout()
	if cont.View() != ".b{}" {
		t.Errorf("expected view to follow value, got %q", cont.View())
	}

	if err := inst.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if cont.View() != "" {
		t.Errorf("expected container cleared on dispose, got %q", cont.View())
	}
	if err := inst.Dispose(); err != nil {
		t.Errorf("second Dispose failed: %v", err)
	}
}

func TestInstance_SelectionAndEdit(t *testing.T) {
	c := loadCapability(t)
	inst, err := c.NewInstance(attachedContainer(common.KindStyle), editor.InstanceOptions{Language: "css", Value: "#a{x:1}\n.b{x:2}\n"})
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}

	if _, ok := inst.Selection(); ok {
		t.Error("expected no initial selection")
	}

	inst.SetSelection(editor.Range{Start: 100, End: 8})
	r, ok := inst.Selection()
	if !ok || r.Start != 8 || r.End != len(inst.Value()) {
		t.Fatalf("expected clamped selection, got %+v ok=%v", r, ok)
	}

	inst.ExecuteEdit(r, "")
	if inst.Value() != "#a{x:1}\n" {
		t.Errorf("unexpected value after edit %q", inst.Value())
	}
	if _, ok := inst.Selection(); ok {
		t.Error("expected selection cleared after edit")
	}
}

func TestFormatAction(t *testing.T) {
	c := loadCapability(t)
	inst, err := c.NewInstance(attachedContainer(common.KindMarkup), editor.InstanceOptions{Language: "html", Value: "<div><p>hi</p></div>"})
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}

	action := inst.Action(editor.ActionFormatDocument)
	if action == nil {
		t.Fatal("expected format action")
	}
	if inst.Action("editor.action.unknown") != nil {
		t.Error("expected no action for unknown id")
	}

	if err := action.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := "<div>\n  <p>hi</p>\n</div>"; inst.Value() != want {
		t.Errorf("expected %q, got %q", want, inst.Value())
	}

	inst.SetValue("<div><br></div>")
	if err := action.Run(context.Background()); err == nil {
		t.Error("expected error for malformed markup")
	}
	if inst.Value() != "<div><br></div>" {
		t.Errorf("failed format must keep text, got %q", inst.Value())
	}

	_ = inst.Dispose()
	if err := action.Run(context.Background()); !errors.Is(err, editor.ErrDisposed) {
		t.Errorf("expected disposed error, got %v", err)
	}
}

func TestFormatDocument(t *testing.T) {
	tests := []struct {
		name     string
		language string
		in       string
		want     []string
	}{
		{
			name:     "nested markup",
			language: "html",
			in:       `<section id="x"><h1>Title</h1><ul><li>a</li><li>b</li></ul></section>`,
			want: []string{
				`<section id="x">`,
				"  <h1>Title</h1>",
				"  <ul>",
				"    <li>a</li>",
				"    <li>b</li>",
				"  </ul>",
				"</section>",
			},
		},
		{
			name:     "siblings with void and empty elements",
			language: "html",
			in:       `<div></div><img src="a.png"/>`,
			want: []string{
				"<div></div>",
				`<img src="a.png"/>`,
			},
		},
		{
			name:     "html entity",
			language: "html",
			in:       `<p>a&amp;b</p>`,
			want:     []string{"<p>a&amp;b</p>"},
		},
		{
			name:     "style",
			language: "css",
			in:       `#a{color:red}`,
			want: []string{
				"#a {",
				"  color: red;",
				"}",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatDocument(tt.language, tt.in, 2)
			if err != nil {
				t.Fatalf("FormatDocument failed: %v", err)
			}
			if want := strings.Join(tt.want, "\n"); got != want {
				t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
			}
		})
	}

	if _, err := FormatDocument("go", "package x", 2); err == nil {
		t.Error("expected error for unknown language")
	}
}

func TestNewLoadFunc(t *testing.T) {
	l := editor.NewLoader(NewLoadFunc(Options{}, zap.NewNop()), zap.NewNop())
	c, err := l.Request(context.Background()).Wait(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, ok := c.(*Capability); !ok {
		t.Errorf("unexpected capability type %T", c)
	}
}
