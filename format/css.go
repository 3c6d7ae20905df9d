package format

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRun        = regexp.MustCompile(`\s+`)
	missingSemicolon     = regexp.MustCompile(`([^;{}\s])\s*\}`)
	openBrace            = regexp.MustCompile(`\s*\{\s*`)
	semicolon            = regexp.MustCompile(`;\s*`)
	closeBrace           = regexp.MustCompile(`\s*\}\s*`)
	tripleNewline        = regexp.MustCompile(`\n\s*\n\s*\n`)
	spaceBeforeSemicolon = regexp.MustCompile(`\s+;`)
	trailingBlock        = regexp.MustCompile(`\}\n\n$`)
)

// formatCSS applies fixed sequence of substitutions and re-indents the
// result by brace depth, so content of @-rule blocks ends up nested.
// Unlike a plain substitution list it also terminates the last declaration
// of a block with ";" and indents every line, not only @-rule bodies.
func formatCSS(text string) string {
	s := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	// last declaration in a block gets its terminator
	s = missingSemicolon.ReplaceAllString(s, "$1;}")
	s = openBrace.ReplaceAllString(s, " {\n"+indentUnit)
	s = semicolon.ReplaceAllString(s, ";\n"+indentUnit)
	s = closeBrace.ReplaceAllString(s, "\n}\n\n")
	s = splitSelectorLists(s)
	s = tripleNewline.ReplaceAllString(s, "\n\n")
	s = spaceBeforeSemicolon.ReplaceAllString(s, ";")
	s = strings.TrimSpace(trailingBlock.ReplaceAllString(s, "}"))
	return reindent(s)
}

// splitSelectorLists breaks line after every comma which is not inside
// parentheses, e.g. "a, b" but not "rgba(0, 0, 0)".
func splitSelectorLists(s string) string {
	var (
		sb    strings.Builder
		depth int
	)
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
		sb.WriteByte(c)
		if c == ',' && depth == 0 {
			sb.WriteByte('\n')
			for i+1 < len(s) && unicode.IsSpace(rune(s[i+1])) {
				i++
			}
		}
	}
	return sb.String()
}

// reindent indents every line by brace depth and drops blank lines directly
// before closing brace.
func reindent(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	depth := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if next := nextNonBlank(lines, i+1); next == "" || strings.HasPrefix(next, "}") {
				continue
			}
			out = append(out, "")
			continue
		}
		indent := depth
		if strings.HasPrefix(trimmed, "}") {
			indent--
		}
		out = append(out, strings.Repeat(indentUnit, max(0, indent))+trimmed)
		depth = max(0, depth+strings.Count(trimmed, "{")-strings.Count(trimmed, "}"))
	}
	return strings.Join(out, "\n")
}

func nextNonBlank(lines []string, from int) string {
	for _, line := range lines[from:] {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
