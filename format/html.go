package format

import (
	"regexp"
	"strings"
)

var (
	interTagSpace  = regexp.MustCompile(`>\s*<`)
	openTag        = regexp.MustCompile(`<[^/!][^>]*>`)
	closeTag       = regexp.MustCompile(`</[^>]*>`)
	selfClosingTag = regexp.MustCompile(`<[^>]*/\s*>`)
)

const indentUnit = "  "

// formatHTML puts every tag on its own line and indents lines by the tally
// of tags opened and closed on preceding lines. A line starting with closing
// tag is dedented one more level.
func formatHTML(text string) string {
	text = interTagSpace.ReplaceAllString(text, "><")
	text = strings.ReplaceAll(text, "><", ">\n<")

	var (
		lines []string
		depth int
	)
	for line := range strings.SplitSeq(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		indent := depth
		if strings.HasPrefix(trimmed, "</") {
			indent--
		}
		lines = append(lines, strings.Repeat(indentUnit, max(0, indent))+trimmed)

		// self-closing tags are matched by openTag too and must not count
		opened := len(openTag.FindAllString(trimmed, -1)) - len(selfClosingTag.FindAllString(trimmed, -1))
		depth += opened - len(closeTag.FindAllString(trimmed, -1))
	}
	return strings.Join(lines, "\n")
}
