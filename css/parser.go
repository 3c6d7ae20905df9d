package css

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"slices"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// simpleSelector accepts concatenated classes or a single identifier, the
// last one optionally followed by a state (e.g., ":hover", "::before").
// Composed forms like "#id.class" are not simple.
var simpleSelector = regexp.MustCompile(`^((?:\.[\w-]+)+|#[\w-]+)(:{1,2}[\w\-()]+)?$`)

// Parser parses CSS text into rule descriptors.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. Parsing never fails: whatever
// could not be understood is reported in Warnings and skipped.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]Rule, 0),
		Warnings: make([]string, 0),
	}

	// Log parsing start with source identifier if provided
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	var pending []string
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				sheet.Warnings = append(sheet.Warnings, "parse error: "+err.Error())
				p.log.Debug("CSS parse error", zap.Error(err))
			}
			return sheet

		case css.BeginAtRuleGrammar:
			at := AtRule{
				Type:   strings.ToLower(strings.TrimPrefix(string(data), "@")),
				Params: joinTokens(parser.Values()),
			}
			p.parseAtRuleBlock(parser, sheet, at)

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import, @charset) does not
			// produce style rules
			p.log.Debug("Skipping @-rule", zap.String("rule", string(data)))

		case css.QualifiedRuleGrammar:
			// Part of a selector list delivered ahead of the ruleset itself
			pending = append(pending, splitSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors := append(pending, splitSelectors(data, parser.Values())...)
			pending = nil
			decls := p.parseDeclarations(parser)
			sheet.Rules = append(sheet.Rules, p.buildRules(selectors, decls, AtRule{})...)
		}
	}
}

// parseAtRuleBlock parses everything until the end of the at-rule block.
// Declarations placed directly in the block (e.g., @font-face) produce a
// single rule without selectors.
func (p *Parser) parseAtRuleBlock(parser *css.Parser, sheet *Stylesheet, at AtRule) {
	var (
		pending []string
		direct  []Declaration
	)
	defer func() {
		if len(direct) > 0 {
			sheet.Rules = append(sheet.Rules, Rule{AtRule: at, Declarations: direct})
		}
	}()

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			return

		case css.DeclarationGrammar:
			direct = append(direct, declarationFromTokens(string(data), parser.Values()))

		case css.CustomPropertyGrammar:
			direct = append(direct, Declaration{Property: string(data), Value: joinTokens(parser.Values())})

		case css.QualifiedRuleGrammar:
			pending = append(pending, splitSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors := append(pending, splitSelectors(data, parser.Values())...)
			pending = nil
			decls := p.parseDeclarations(parser)
			sheet.Rules = append(sheet.Rules, p.buildRules(selectors, decls, at)...)

		case css.BeginAtRuleGrammar:
			sheet.Warnings = append(sheet.Warnings, "unsupported nested @-rule: "+string(data)+" inside "+at.String())
			p.log.Debug("Skipping nested @-rule", zap.String("rule", string(data)), zap.Stringer("parent", at))
			p.skipAtRuleBlock(parser)
		}
	}
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(parser *css.Parser) []Declaration {
	var decls []Declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return decls

		case css.DeclarationGrammar:
			if values := parser.Values(); len(values) > 0 {
				decls = append(decls, declarationFromTokens(string(data), values))
			}

		case css.CustomPropertyGrammar:
			decls = append(decls, Declaration{Property: string(data), Value: joinTokens(parser.Values())})
		}
	}
}

// buildRules creates one rule per simple selector. Complex selectors of the
// same list are attached to the last simple rule as SelectorsAdd, or become
// a rule of their own when the list has no simple selector at all.
func (p *Parser) buildRules(selectors []string, decls []Declaration, at AtRule) []Rule {
	var (
		rules   []Rule
		complex []string
	)
	for _, sel := range selectors {
		tokens, state, ok := splitSimpleSelector(sel)
		if !ok {
			p.log.Debug("Keeping complex selector verbatim", zap.String("selector", sel))
			complex = append(complex, sel)
			continue
		}
		rules = append(rules, Rule{
			Selectors:    tokens,
			State:        state,
			AtRule:       at,
			Declarations: slices.Clone(decls),
		})
	}
	if len(complex) > 0 {
		add := strings.Join(complex, ", ")
		if len(rules) > 0 {
			rules[len(rules)-1].SelectorsAdd = add
		} else {
			rules = append(rules, Rule{SelectorsAdd: add, AtRule: at, Declarations: decls})
		}
	}
	return rules
}

// splitSimpleSelector splits a simple selector into its tokens and state.
func splitSimpleSelector(sel string) ([]string, string, bool) {
	m := simpleSelector.FindStringSubmatch(sel)
	if m == nil {
		return nil, "", false
	}
	state := strings.TrimPrefix(m[2], ":")
	if strings.HasPrefix(m[1], "#") {
		return []string{m[1]}, state, true
	}
	return strings.Split(strings.TrimPrefix(m[1], "."), "."), state, true
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// splitSelectors extracts selector strings from token data, splitting
// grouped selectors on commas outside of parentheses and brackets.
func splitSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	return SplitList(sb.String())
}

// SplitList splits comma separated list ignoring commas nested in
// parentheses or brackets. Empty items are dropped.
func SplitList(s string) []string {
	var (
		items []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if item := strings.TrimSpace(s[start:i]); item != "" {
					items = append(items, item)
				}
				start = i + 1
			}
		}
	}
	if item := strings.TrimSpace(s[start:]); item != "" {
		items = append(items, item)
	}
	return items
}

// declarationFromTokens converts property value tokens into Declaration.
func declarationFromTokens(property string, tokens []css.Token) Declaration {
	d := Declaration{Property: property, Value: joinTokens(tokens)}
	if v, ok := cutImportant(d.Value); ok {
		d.Value, d.Important = v, true
	}
	return d
}

func cutImportant(value string) (string, bool) {
	const marker = "!important"
	if len(value) < len(marker) || !strings.EqualFold(value[len(value)-len(marker):], marker) {
		return value, false
	}
	return strings.TrimSpace(value[:len(value)-len(marker)]), true
}

// joinTokens builds raw text from tokens collapsing whitespace.
func joinTokens(tokens []css.Token) string {
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			// Add space between non-whitespace tokens
			rawParts = append(rawParts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(rawParts, ""))
}
