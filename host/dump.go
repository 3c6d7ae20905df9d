package host

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type treeWriter struct {
	w *strings.Builder
}

func newTreeWriter() *treeWriter {
	return &treeWriter{w: &strings.Builder{}}
}

func (tw treeWriter) String() string {
	return tw.w.String()
}

func (tw treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw treeWriter) text(depth int, label, value string) {
	if value != "" {
		value = strconv.Quote(value)
	}
	tw.line(depth, "%s: %s", label, value)
}

// Dump returns human readable state of the model: component tree with
// selection and scripts, then registered selectors and rules.
func (e *Editor) Dump() string {
	tw := newTreeWriter()

	e.mu.Lock()
	tw.line(0, "Components (revision %d)", e.revision)
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		switch n.Type {
		case html.ElementNode:
			mark := ""
			if n == e.selected {
				mark = " *"
			}
			if id := attr(n, "id"); id != "" {
				tw.line(depth, "<%s id=%q>%s", n.Data, id, mark)
			} else {
				tw.line(depth, "<%s>%s", n.Data, mark)
			}
			if script, ok := e.scripts[n]; ok {
				tw.text(depth+1, "script", script)
			}
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				tw.text(depth, "text", s)
			}
			return
		default:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth+1)
		}
	}
	walk(e.root, 1)
	e.mu.Unlock()

	selectors := e.styles.Selectors()
	tw.line(0, "Selectors (%d)", len(selectors))
	for _, sel := range selectors {
		tw.line(1, "%s", sel)
	}

	rules := e.styles.Rules()
	tw.line(0, "Rules (%d)", len(rules))
	for _, r := range rules {
		name := r.SelectorText()
		if name == "" {
			name = r.AtRule.String()
		} else if !r.AtRule.IsZero() {
			name = r.AtRule.String() + " " + name
		}
		tw.line(1, "%s", name)
		for _, d := range r.Declarations {
			tw.line(2, "%s", d)
		}
	}
	return tw.String()
}
