package host

import (
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

func addClass(n *html.Node, class string) {
	classes := strings.Fields(attr(n, "class"))
	if slices.Contains(classes, class) {
		return
	}
	setAttr(n, "class", strings.Join(append(classes, class), " "))
}

func removeClass(n *html.Node, class string) {
	classes := strings.Fields(attr(n, "class"))
	if !slices.Contains(classes, class) {
		return
	}
	classes = slices.DeleteFunc(classes, func(c string) bool { return c == class })
	if len(classes) == 0 {
		removeAttr(n, "class")
		return
	}
	setAttr(n, "class", strings.Join(classes, " "))
}

// cloneTree deep copies detached subtree. Selection marker is never copied,
// editor owned attributes are dropped when clearData is set.
func cloneTree(n *html.Node, clearData bool) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
	if c.Type == html.ElementNode {
		removeClass(c, selectedClass)
		if clearData {
			c.Attr = slices.DeleteFunc(c.Attr, func(a html.Attribute) bool {
				return strings.HasPrefix(a.Key, internalAttrPrefix)
			})
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneTree(child, clearData))
	}
	return c
}

func render(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		// rendering into memory fails only for malformed trees
		return ""
	}
	return sb.String()
}

// findFirst walks subtree depth first, n included.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// collect returns every node of subtree satisfying pred, n included.
func collect(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var res []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			res = append(res, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return res
}

func matchGroup(group cascadia.SelectorGroup, n *html.Node) bool {
	return n.Type == html.ElementNode && group.Match(n)
}

func isStyle(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Style
}

func isScript(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Script
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
