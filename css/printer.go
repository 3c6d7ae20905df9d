package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ErrUnbalanced is returned by Format when blocks are not properly closed.
var ErrUnbalanced = errors.New("unbalanced blocks")

// Format pretty prints stylesheet text: one declaration per line, one
// selector per line, blank line between sibling blocks, nested blocks
// indented with indent. Unlike the Parser it keeps every construct of the
// input (comments, @import, @keyframes...), and it fails on input the
// tokenizer does not accept so callers can decide what to do.
func Format(src []byte, indent string) (string, error) {
	parser := css.NewParser(parse.NewInput(bytes.NewReader(src)), false)

	var (
		out     strings.Builder
		depth   int
		gap     bool
		pending []string
	)
	line := func(s string) {
		for range depth {
			out.WriteString(indent)
		}
		out.WriteString(s)
		out.WriteByte('\n')
	}
	// item starts next sibling, separating it from preceding block
	item := func() {
		if gap {
			out.WriteByte('\n')
			gap = false
		}
	}

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("unable to format stylesheet: %w", err)
			}
			if depth != 0 {
				return "", fmt.Errorf("unable to format stylesheet: %w", ErrUnbalanced)
			}
			return strings.TrimRight(out.String(), "\n"), nil

		case css.CommentGrammar:
			item()
			line(strings.TrimSpace(string(data)))

		case css.AtRuleGrammar:
			item()
			if prelude := joinTokens(parser.Values()); prelude != "" {
				line(string(data) + " " + prelude + ";")
			} else {
				line(string(data) + ";")
			}
			gap = true

		case css.BeginAtRuleGrammar:
			item()
			if prelude := joinTokens(parser.Values()); prelude != "" {
				line(string(data) + " " + prelude + " {")
			} else {
				line(string(data) + " {")
			}
			depth++

		case css.QualifiedRuleGrammar:
			pending = append(pending, splitSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			item()
			selectors := append(pending, splitSelectors(data, parser.Values())...)
			pending = nil
			for i, sel := range selectors {
				if i < len(selectors)-1 {
					line(sel + ",")
				} else {
					line(sel + " {")
				}
			}
			depth++

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if depth == 0 {
				return "", fmt.Errorf("unable to format stylesheet: %w", ErrUnbalanced)
			}
			depth--
			gap = false
			line("}")
			gap = true

		case css.DeclarationGrammar:
			line(declarationFromTokens(string(data), parser.Values()).String() + ";")

		case css.CustomPropertyGrammar:
			line(string(data) + ": " + joinTokens(parser.Values()) + ";")

		case css.TokenGrammar:
			return "", fmt.Errorf("unable to format stylesheet: unexpected token %q", string(data))
		}
	}
}
