package css

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// AtRule identifies the at-rule a CSS rule is nested in.
type AtRule struct {
	Type   string // at-rule name without "@" (e.g., "media", "keyframes", "font-face")
	Params string // at-rule prelude (e.g., "(max-width: 480px)")
}

// IsZero returns true for rules which are not nested in any at-rule.
func (a AtRule) IsZero() bool {
	return a.Type == "" && a.Params == ""
}

// String returns the CSS representation of the at-rule opener without brace.
func (a AtRule) String() string {
	if a.IsZero() {
		return ""
	}
	if a.Params == "" {
		return "@" + a.Type
	}
	return "@" + a.Type + " " + a.Params
}

// Declaration is a single property declaration.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// String returns the declaration as it would appear in a rule body, without
// trailing semicolon.
func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Rule is a parsed CSS rule descriptor.
//
// Selectors made only of classes (".a.b") or of a single identifier ("#x"),
// optionally followed by one pseudo state, are split into Selectors tokens
// and State. Everything else (element, descendant, attribute selectors...)
// is kept verbatim in SelectorsAdd.
type Rule struct {
	Selectors    []string // class names without dot, identifier tokens keep "#"
	SelectorsAdd string   // complex selectors kept as text
	State        string   // pseudo state after the first colon (e.g., "hover", ":before")
	AtRule       AtRule
	Declarations []Declaration
}

// SelectorText returns the complete selector list of the rule.
func (r Rule) SelectorText() string {
	var parts []string
	if len(r.Selectors) > 0 {
		var sb strings.Builder
		for _, tok := range r.Selectors {
			if !strings.HasPrefix(tok, "#") {
				sb.WriteByte('.')
			}
			sb.WriteString(tok)
		}
		if r.State != "" {
			sb.WriteByte(':')
			sb.WriteString(r.State)
		}
		parts = append(parts, sb.String())
	}
	if r.SelectorsAdd != "" {
		parts = append(parts, r.SelectorsAdd)
	}
	return strings.Join(parts, ", ")
}

// IsScoped returns true when the rule targets a single element identifier.
func (r Rule) IsScoped() bool {
	return len(r.Selectors) == 1 && strings.HasPrefix(r.Selectors[0], "#")
}

// Property returns the last declaration for a property, or false if not found.
func (r Rule) Property(name string) (Declaration, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == name {
			return r.Declarations[i], true
		}
	}
	return Declaration{}, false
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	r.Selectors = slices.Clone(r.Selectors)
	r.Declarations = slices.Clone(r.Declarations)
	return r
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules    []Rule   // All rules in source order, at-rule blocks flattened
	Warnings []string // Warnings for constructs which were skipped
}

// RulesBySelector returns all rules with the given selector text.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, rule := range s.Rules {
		if rule.SelectorText() == selector {
			matches = append(matches, rule)
		}
	}
	return matches
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Consecutive rules sharing the same at-rule are written inside one block.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	rules := s.Rules
	for i := 0; i < len(rules); {
		if i > 0 {
			cw.printf("\n")
		}
		rule := rules[i]
		switch {
		case rule.AtRule.IsZero():
			writeRule(cw, rule, "")
			i++
		case rule.SelectorText() == "":
			// declarations directly inside at-rule, e.g. @font-face
			cw.printf("%s {\n", rule.AtRule)
			writeDeclarations(cw, rule.Declarations, "  ")
			cw.printf("}\n")
			i++
		default:
			j := i
			for j < len(rules) && rules[j].AtRule == rule.AtRule && rules[j].SelectorText() != "" {
				j++
			}
			cw.printf("%s {\n", rule.AtRule)
			for k := i; k < j; k++ {
				// Blank line between rules in a block (except after last)
				if k > i {
					cw.printf("\n")
				}
				writeRule(cw, rules[k], "  ")
			}
			cw.printf("}\n")
			i = j
		}
		if cw.err != nil {
			break
		}
	}
	return cw.n, cw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(cw *countingWriter, rule Rule, indent string) {
	cw.printf("%s%s {\n", indent, rule.SelectorText())
	writeDeclarations(cw, rule.Declarations, indent+"  ")
	cw.printf("%s}\n", indent)
}

func writeDeclarations(cw *countingWriter, decls []Declaration, indent string) {
	for _, d := range decls {
		cw.printf("%s%s;\n", indent, d)
	}
}

// countingWriter remembers first error and total number of bytes written.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}
