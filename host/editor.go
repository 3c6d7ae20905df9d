// Package host is an in-memory design tool: a component tree with a single
// selection, a style model and change notifications. The panel synchronizes
// its text surfaces with it.
package host

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// selectedClass marks selected element in the live tree.
	selectedClass = "cp-selected"
	// internalAttrPrefix marks attributes owned by the editor, they are
	// dropped from model serialization.
	internalAttrPrefix = "data-cp-"
)

// ErrNoElement is returned when replacement markup has no element to become
// the new component.
var ErrNoElement = errors.New("markup has no element")

// MarkupOptions control component markup serialization.
type MarkupOptions struct {
	// ClearData selects model serialization: outer markup without editor
	// owned attributes, wrapper included. Otherwise live markup is used:
	// inner markup for the wrapper, outer for everything else.
	ClearData bool
}

// Component is an element of the design tree.
type Component struct {
	node   *html.Node
	editor *Editor
}

// IsWrapper reports whether component is the root of the tree.
func (c *Component) IsWrapper() bool {
	return c.node == c.editor.root
}

// ID returns element identifier attribute.
func (c *Component) ID() string {
	return attr(c.node, "id")
}

// Tag returns element name.
func (c *Component) Tag() string {
	return c.node.Data
}

// SerializeMarkup renders component markup.
func (c *Component) SerializeMarkup(opts MarkupOptions) string {
	c.editor.mu.Lock()
	defer c.editor.mu.Unlock()

	clone := cloneTree(c.node, opts.ClearData)
	if opts.ClearData || !c.IsWrapper() {
		return render(clone)
	}
	var sb strings.Builder
	for n := clone.FirstChild; n != nil; n = n.NextSibling {
		sb.WriteString(render(n))
	}
	return sb.String()
}

// SerializeScript returns script attached to component.
func (c *Component) SerializeScript() string {
	c.editor.mu.Lock()
	defer c.editor.mu.Unlock()
	return c.editor.scripts[c.node]
}

// Editor is the design model.
type Editor struct {
	log    *zap.Logger
	styles *Styles

	mu       sync.Mutex
	root     *html.Node
	selected *html.Node
	scripts  map[*html.Node]string
	revision int

	lmu           sync.Mutex
	nextListener  int
	onUpdate      map[int]func(*Component)
	onPreviewStop map[int]func()
}

// NewEditor creates editor with empty wrapper selected.
func NewEditor(styles *Styles, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	if styles == nil {
		styles = NewStyles(log)
	}
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	e := &Editor{
		log:           log.Named("host"),
		styles:        styles,
		root:          root,
		scripts:       make(map[*html.Node]string),
		onUpdate:      make(map[int]func(*Component)),
		onPreviewStop: make(map[int]func()),
	}
	e.selectNode(root)
	return e
}

// Styles returns style model of the editor.
func (e *Editor) Styles() *Styles {
	return e.styles
}

// Wrapper returns root component.
func (e *Editor) Wrapper() *Component {
	return &Component{node: e.root, editor: e}
}

// Selected returns selected component, nil when nothing is selected.
func (e *Editor) Selected() *Component {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == nil {
		return nil
	}
	return &Component{node: e.selected, editor: e}
}

// Select selects component, nil clears selection.
func (e *Editor) Select(c *Component) {
	e.mu.Lock()
	if c == nil {
		e.selectNode(nil)
	} else {
		e.selectNode(c.node)
	}
	e.mu.Unlock()
}

// SelectCSS selects the first element matching CSS selector.
func (e *Editor) SelectCSS(selector string) (*Component, error) {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("unable to parse selector %q: %w", selector, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n := findFirst(e.root, func(n *html.Node) bool { return matchGroup(group, n) })
	if n == nil {
		return nil, fmt.Errorf("nothing matches %q", selector)
	}
	e.selectNode(n)
	return &Component{node: n, editor: e}, nil
}

func (e *Editor) selectNode(n *html.Node) {
	if e.selected != nil {
		removeClass(e.selected, selectedClass)
	}
	e.selected = n
	if n != nil && n != e.root {
		addClass(n, selectedClass)
	}
}

// SetRootContent replaces everything under wrapper with markup and selects
// wrapper.
func (e *Editor) SetRootContent(markup string) error {
	f, err := e.parse(markup)
	if err != nil {
		return err
	}

	e.mu.Lock()
	for n := e.root.FirstChild; n != nil; {
		next := n.NextSibling
		e.root.RemoveChild(n)
		n = next
	}
	for _, n := range f.nodes {
		e.root.AppendChild(n)
	}
	clear(e.scripts)
	if script := f.script(); script != "" {
		e.scripts[e.root] = script
	}
	e.selectNode(e.root)
	e.revision++
	e.mu.Unlock()

	e.addStyles(f.styles)
	e.log.Debug("Root content set", zap.Int("nodes", len(f.nodes)))
	e.emitUpdate(e.Wrapper())
	return nil
}

// Replace replaces component with markup and returns the new component made
// of its first element, which becomes selected. Wrapper content is set
// instead of replaced.
func (e *Editor) Replace(c *Component, markup string) (*Component, error) {
	if c.IsWrapper() {
		if err := e.SetRootContent(markup); err != nil {
			return nil, err
		}
		return e.Wrapper(), nil
	}

	f, err := e.parse(markup)
	if err != nil {
		return nil, err
	}
	nodes := f.nodes
	first := slices.IndexFunc(nodes, func(n *html.Node) bool { return n.Type == html.ElementNode })
	if first < 0 {
		return nil, ErrNoElement
	}

	e.mu.Lock()
	parent := c.node.Parent
	if parent == nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("component <%s> is not in the tree", c.node.Data)
	}
	for _, n := range nodes {
		parent.InsertBefore(n, c.node)
	}
	if e.selected == c.node {
		e.selectNode(nil)
	}
	parent.RemoveChild(c.node)
	delete(e.scripts, c.node)
	if script := f.script(); script != "" {
		e.scripts[nodes[first]] = script
	}
	e.selectNode(nodes[first])
	e.revision++
	e.mu.Unlock()

	e.addStyles(f.styles)
	nc := &Component{node: nodes[first], editor: e}
	e.log.Debug("Component replaced", zap.String("tag", nc.Tag()), zap.String("id", nc.ID()))
	e.emitUpdate(nc)
	return nc, nil
}

// parse parses markup fragment in wrapper context.
func (e *Editor) parse(markup string) (*fragment, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.root)
	if err != nil {
		return nil, fmt.Errorf("unable to parse markup: %w", err)
	}

	f := &fragment{}
	for _, n := range nodes {
		switch {
		case isStyle(n):
			f.styles = append(f.styles, textOf(n))
			continue
		case isScript(n):
			f.scripts = append(f.scripts, textOf(n))
			continue
		}
		for _, s := range collect(n, isStyle) {
			f.styles = append(f.styles, textOf(s))
			s.Parent.RemoveChild(s)
		}
		f.nodes = append(f.nodes, n)
	}
	return f, nil
}

// fragment is parsed markup with style and top level script elements taken
// out.
type fragment struct {
	nodes   []*html.Node
	styles  []string
	scripts []string
}

func (f *fragment) script() string {
	return strings.Join(f.scripts, "\n")
}

func (e *Editor) addStyles(styles []string) {
	for _, text := range styles {
		if strings.TrimSpace(text) == "" {
			continue
		}
		e.styles.AddRules(text)
	}
}

// SetScript attaches script to component.
func (e *Editor) SetScript(c *Component, script string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if script == "" {
		delete(e.scripts, c.node)
		return
	}
	e.scripts[c.node] = script
}

// Revision changes every time component tree is mutated.
func (e *Editor) Revision() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// HTML renders wrapper content in model form.
func (e *Editor) HTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder
	for n := e.root.FirstChild; n != nil; n = n.NextSibling {
		sb.WriteString(render(cloneTree(n, true)))
	}
	return sb.String()
}

// StyleText serializes style rules applying to component subtree, all rules
// for the wrapper.
func (e *Editor) StyleText(c *Component) string {
	rules := e.styles.Rules()
	if c.IsWrapper() {
		return stylesheetOf(rules).String()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	matched := rules[:0]
	for _, r := range rules {
		text := matchText(r)
		if text == "" {
			continue
		}
		group, err := cascadia.ParseGroup(text)
		if err != nil {
			e.log.Debug("Unable to match rule", zap.String("selector", text), zap.Error(err))
			continue
		}
		if findFirst(c.node, func(n *html.Node) bool { return matchGroup(group, n) }) != nil {
			matched = append(matched, r)
		}
	}
	return stylesheetOf(matched).String()
}

// matchText is rule selector without state: dynamic states never match a
// static tree.
func matchText(r *Rule) string {
	var parts []string
	if len(r.Selectors) > 0 {
		var sb strings.Builder
		for _, tok := range r.Selectors {
			if !strings.HasPrefix(tok, "#") {
				sb.WriteByte('.')
			}
			sb.WriteString(tok)
		}
		parts = append(parts, sb.String())
	}
	if r.SelectorsAdd != "" {
		parts = append(parts, r.SelectorsAdd)
	}
	return strings.Join(parts, ", ")
}

// OnComponentUpdate registers listener called after component was changed.
// Returned function unregisters it.
func (e *Editor) OnComponentUpdate(fn func(*Component)) func() {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.onUpdate[id] = fn
	return func() {
		e.lmu.Lock()
		defer e.lmu.Unlock()
		delete(e.onUpdate, id)
	}
}

// OnPreviewStop registers listener called when preview mode ends.
func (e *Editor) OnPreviewStop(fn func()) func() {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.onPreviewStop[id] = fn
	return func() {
		e.lmu.Lock()
		defer e.lmu.Unlock()
		delete(e.onPreviewStop, id)
	}
}

// Update notifies listeners that component was changed outside of editor.
func (e *Editor) Update(c *Component) {
	e.emitUpdate(c)
}

// StopPreview notifies listeners that preview mode ended.
func (e *Editor) StopPreview() {
	for _, fn := range listeners(&e.lmu, e.onPreviewStop) {
		fn()
	}
}

func (e *Editor) emitUpdate(c *Component) {
	for _, fn := range listeners(&e.lmu, e.onUpdate) {
		fn(c)
	}
}

// listeners returns snapshot in registration order so that listeners may
// unregister themselves while being called.
func listeners[T any](mu *sync.Mutex, m map[int]T) []T {
	mu.Lock()
	defer mu.Unlock()

	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	res := make([]T, 0, len(ids))
	for _, id := range ids {
		res = append(res, m[id])
	}
	return res
}
