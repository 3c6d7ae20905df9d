package rich

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"codepanel/css"
)

// fragmentRoot wraps markup fragments so they parse as a single document.
const fragmentRoot = "codepanel-fragment"

// voidElements never have content or end tags.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// FormatDocument is the primary formatter. Markup must be well formed, for
// anything else an error is returned and caller is expected to fall back.
func FormatDocument(language, text string, tabSize int) (string, error) {
	if tabSize <= 0 {
		tabSize = 2
	}
	switch language {
	case "html":
		return formatMarkup(text, tabSize)
	case "css":
		return css.Format([]byte(text), strings.Repeat(" ", tabSize))
	default:
		return "", fmt.Errorf("no formatter for %q", language)
	}
}

func formatMarkup(text string, tabSize int) (string, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		Entity: xml.HTMLEntity,
	}
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	if err := doc.ReadFromString("<" + fragmentRoot + ">" + text + "</" + fragmentRoot + ">"); err != nil {
		return "", fmt.Errorf("unable to parse markup: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return "", fmt.Errorf("unable to parse markup: no root")
	}
	doc.Indent(tabSize)
	expandEmpty(root)

	var sb strings.Builder
	for _, tok := range root.Child {
		switch t := tok.(type) {
		case *etree.Element:
			sub := etree.NewDocument()
			sub.WriteSettings = doc.WriteSettings
			sub.SetRoot(t.Copy())
			s, err := sub.WriteToString()
			if err != nil {
				return "", fmt.Errorf("unable to write markup: %w", err)
			}
			sb.WriteString(dedent(strings.TrimRight(s, "\n"), tabSize))
			sb.WriteByte('\n')
		case *etree.CharData:
			if s := strings.TrimSpace(t.Data); s != "" {
				sb.WriteString(s)
				sb.WriteByte('\n')
			}
		case *etree.Comment:
			sb.WriteString("<!--" + t.Data + "-->\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// expandEmpty makes sure non-void elements keep explicit end tags.
func expandEmpty(e *etree.Element) {
	for _, child := range e.ChildElements() {
		if len(child.Child) == 0 && !voidElements[strings.ToLower(child.Tag)] {
			child.CreateText("")
			continue
		}
		expandEmpty(child)
	}
}

// dedent removes one level of indentation from every line but the first.
// Elements are indented relative to the fragment root.
func dedent(s string, tabSize int) string {
	prefix := strings.Repeat(" ", tabSize)
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.TrimPrefix(lines[i], prefix)
	}
	return strings.Join(lines, "\n")
}
