package host

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newEditor(t *testing.T, markup string) *Editor {
	t.Helper()
	e := NewEditor(NewStyles(zap.NewNop()), zap.NewNop())
	if err := e.SetRootContent(markup); err != nil {
		t.Fatalf("SetRootContent failed: %v", err)
	}
	return e
}

func TestEditor_SerializeMarkup(t *testing.T) {
	e := newEditor(t, `<div id="x" data-cp-type="box"><p>hi</p></div>`)

	if !e.Selected().IsWrapper() {
		t.Fatal("wrapper must be selected after setting root content")
	}
	c, err := e.SelectCSS("#x")
	if err != nil {
		t.Fatalf("SelectCSS failed: %v", err)
	}

	tests := []struct {
		name string
		c    *Component
		opts MarkupOptions
		want string
	}{
		{"live component", c, MarkupOptions{}, `<div id="x" data-cp-type="box"><p>hi</p></div>`},
		{"model component", c, MarkupOptions{ClearData: true}, `<div id="x"><p>hi</p></div>`},
		{"live wrapper", e.Wrapper(), MarkupOptions{}, `<div id="x" data-cp-type="box"><p>hi</p></div>`},
		{"model wrapper", e.Wrapper(), MarkupOptions{ClearData: true}, `<body><div id="x"><p>hi</p></div></body>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.SerializeMarkup(tt.opts); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if !strings.Contains(e.Dump(), `<div id="x"> *`) {
		t.Errorf("expected selection marked in dump:\n%s", e.Dump())
	}
}

func TestEditor_ReplaceExtractsStyleAndScript(t *testing.T) {
	e := newEditor(t, `<div id="x">old</div><p>keep</p>`)
	c, err := e.SelectCSS("#x")
	if err != nil {
		t.Fatalf("SelectCSS failed: %v", err)
	}

	var updated []string
	unsubscribe := e.OnComponentUpdate(func(c *Component) { updated = append(updated, c.ID()) })
	rev := e.Revision()

	nc, err := e.Replace(c, `<section id="y">new</section><style>#y{color:red}</style><script>init()</script>`)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	if nc.ID() != "y" || e.Selected().ID() != "y" {
		t.Errorf("expected new component selected, got %q", e.Selected().ID())
	}
	if got := e.HTML(); got != `<section id="y">new</section><p>keep</p>` {
		t.Errorf("unexpected tree %q", got)
	}
	if e.Revision() != rev+1 {
		t.Errorf("expected one mutation, revision %d -> %d", rev, e.Revision())
	}
	if nc.SerializeScript() != "init()" {
		t.Errorf("expected script attached, got %q", nc.SerializeScript())
	}
	if sel, ok := e.Styles().ResolveSelector([]string{"#y"}); !ok || len(sel) != 1 {
		t.Error("expected style block added to style model")
	}
	if !slices.Equal(updated, []string{"y"}) {
		t.Errorf("expected one update notification, got %v", updated)
	}

	unsubscribe()
	if _, err := e.Replace(e.Wrapper(), `<b>x</b>`); err != nil {
		t.Fatalf("Replace of wrapper failed: %v", err)
	}
	if len(updated) != 1 {
		t.Errorf("unsubscribed listener must not be called, got %v", updated)
	}
	if !e.Selected().IsWrapper() || e.HTML() != "<b>x</b>" {
		t.Errorf("wrapper replace must set root content, got %q", e.HTML())
	}
}

func TestEditor_ReplaceWithoutElement(t *testing.T) {
	e := newEditor(t, `<div id="x">old</div>`)
	c, _ := e.SelectCSS("#x")
	rev := e.Revision()

	if _, err := e.Replace(c, "just text"); !errors.Is(err, ErrNoElement) {
		t.Fatalf("expected ErrNoElement, got %v", err)
	}
	if e.Revision() != rev || e.HTML() != `<div id="x">old</div>` {
		t.Error("failed replace must not mutate the tree")
	}

	if _, err := e.Replace(c, `<i>a</i>`); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if _, err := e.Replace(c, `<i>b</i>`); err == nil {
		t.Error("expected error replacing component which left the tree")
	}
}

func TestEditor_StyleText(t *testing.T) {
	e := newEditor(t, `<div id="y" class="a"><span class="b"></span></div><p class="zzz"></p>`)
	e.Styles().AddRules(`.a{color:red} #y{top:0} .zzz{x:1} .b:hover{x:2} @media print{.a{color:blue}} @font-face{font-family:X}`)

	c, err := e.SelectCSS("#y")
	if err != nil {
		t.Fatalf("SelectCSS failed: %v", err)
	}
	text := e.StyleText(c)
	for _, want := range []string{".a {", "#y {", ".b:hover {", "@media print {", "color: blue;"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in style text:\n%s", want, text)
		}
	}
	for _, unwanted := range []string{".zzz", "@font-face"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("unexpected %q in style text:\n%s", unwanted, text)
		}
	}

	if all := e.StyleText(e.Wrapper()); !strings.Contains(all, ".zzz {") || !strings.Contains(all, "@font-face {") {
		t.Errorf("wrapper style text must hold every rule:\n%s", all)
	}
}

func TestEditor_PreviewStop(t *testing.T) {
	e := NewEditor(nil, nil)
	var calls int
	unsubscribe := e.OnPreviewStop(func() { calls++ })
	e.StopPreview()
	unsubscribe()
	e.StopPreview()
	if calls != 1 {
		t.Errorf("expected one call, got %d", calls)
	}
}

func TestStyles_AddResolveRemove(t *testing.T) {
	s := NewStyles(zap.NewNop())

	rules := s.AddRules(`.a{color:red} #b:hover{x:1} @media (max-width: 480px){.a{color:blue}} div p{margin:0}`)
	if len(rules) != 4 {
		t.Fatalf("expected 4 rules, got %d", len(rules))
	}

	// same identity replaces declarations
	v := s.Version()
	s.AddRules(`.a{color:green}`)
	if len(s.Rules()) != 4 || s.Version() == v {
		t.Fatalf("expected upsert, got %d rules", len(s.Rules()))
	}
	if d, _ := rules[0].Property("color"); d.Value != "green" {
		t.Errorf("expected updated declaration, got %+v", d)
	}

	sel, ok := s.ResolveSelector([]string{"a"})
	if !ok {
		t.Fatal("expected .a to resolve")
	}
	if r := s.Rule(sel, "", "(max-width: 480px)", RuleMeta{AtRuleType: "media"}); r != rules[2] {
		t.Errorf("expected media rule, got %+v", r)
	}
	if r := s.Rule(sel, "hover", "", RuleMeta{}); r != nil {
		t.Errorf("expected no rule for wrong state, got %+v", r)
	}

	if _, ok := s.ResolveSelector([]string{"a", "missing"}); ok {
		t.Error("unregistered selector must not resolve")
	}
	none, ok := s.ResolveSelector(nil)
	if !ok || len(none) != 0 {
		t.Error("empty token list must resolve to no selectors")
	}
	if r := s.Rule(none, "", "", RuleMeta{SelectorsAdd: "div p"}); r != rules[3] {
		t.Errorf("expected complex selector rule, got %+v", r)
	}

	if n := s.RemoveRules(rules[0], rules[0], nil); n != 1 {
		t.Errorf("expected one rule removed, got %d", n)
	}
	v = s.Version()
	if n := s.RemoveRules(rules[0]); n != 0 || s.Version() != v {
		t.Error("removing absent rule must not mutate model")
	}
	if strings.Contains(s.CSS(), "green") {
		t.Errorf("removed rule still serialized:\n%s", s.CSS())
	}
}

func TestStyles_SelectorsNaturalOrder(t *testing.T) {
	s := NewStyles(nil)
	s.AddRules(`.item10{x:1} .item2{x:1} #a{x:1}`)

	var got []string
	for _, sel := range s.Selectors() {
		got = append(got, sel.String())
	}
	want := []string{"#a", ".item2", ".item10"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
