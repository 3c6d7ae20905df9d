package host

import (
	"slices"
	"strings"
	"sync"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"codepanel/css"
)

// Selector is registered simple selector: a class or an identifier.
type Selector struct {
	Name string
	ID   bool
}

func (s *Selector) String() string {
	if s.ID {
		return "#" + s.Name
	}
	return "." + s.Name
}

// token is how selector is spelled in rule descriptors.
func (s *Selector) token() string {
	if s.ID {
		return "#" + s.Name
	}
	return s.Name
}

func selectorFromToken(tok string) *Selector {
	if name, ok := strings.CutPrefix(tok, "#"); ok {
		return &Selector{Name: name, ID: true}
	}
	return &Selector{Name: tok}
}

// RuleMeta is additional rule identity beside selectors, state and at-rule
// parameters.
type RuleMeta struct {
	SelectorsAdd string
	AtRuleType   string
}

// Rule is a style rule of the model.
type Rule struct {
	css.Rule
}

func (r *Rule) matches(tokens []string, state, atRuleParams string, meta RuleMeta) bool {
	return r.State == state &&
		r.AtRule.Params == atRuleParams &&
		r.AtRule.Type == meta.AtRuleType &&
		r.SelectorsAdd == meta.SelectorsAdd &&
		sameTokens(r.Selectors, tokens)
}

func sameTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Styles is the style model: selector registry and ordered rule list.
type Styles struct {
	log    *zap.Logger
	parser *css.Parser

	mu        sync.Mutex
	selectors map[string]*Selector
	rules     []*Rule
	version   int
}

// NewStyles creates empty style model.
func NewStyles(log *zap.Logger) *Styles {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("styles")
	return &Styles{
		log:       log,
		parser:    css.NewParser(log),
		selectors: make(map[string]*Selector),
	}
}

// ParseCSS parses style text into rule descriptors without touching the
// model.
func (s *Styles) ParseCSS(text string) []css.Rule {
	return s.parser.Parse([]byte(text), "style model").Rules
}

// AddRules parses style text and adds its rules registering their selectors.
// Rule with the same identity as existing one replaces its declarations.
func (s *Styles) AddRules(text string) []*Rule {
	parsed := s.ParseCSS(text)
	if len(parsed) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*Rule, 0, len(parsed))
	for _, pr := range parsed {
		for _, tok := range pr.Selectors {
			if _, ok := s.selectors[tok]; !ok {
				s.selectors[tok] = selectorFromToken(tok)
			}
		}
		meta := RuleMeta{SelectorsAdd: pr.SelectorsAdd, AtRuleType: pr.AtRule.Type}
		if r := s.find(pr.Selectors, pr.State, pr.AtRule.Params, meta); r != nil {
			r.Declarations = slices.Clone(pr.Declarations)
			res = append(res, r)
			continue
		}
		r := &Rule{Rule: pr.Clone()}
		s.rules = append(s.rules, r)
		res = append(res, r)
	}
	s.version++
	s.log.Debug("Rules added", zap.Int("count", len(res)), zap.Int("total", len(s.rules)))
	return res
}

// ResolveSelector finds registered selectors for all tokens. Tokens are
// class names or "#" prefixed identifiers. Empty token list resolves to no
// selectors.
func (s *Styles) ResolveSelector(tokens []string) ([]*Selector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*Selector, 0, len(tokens))
	for _, tok := range tokens {
		sel, ok := s.selectors[tok]
		if !ok {
			return nil, false
		}
		res = append(res, sel)
	}
	return res, true
}

// Rule looks up rule by its identity.
func (s *Styles) Rule(selectors []*Selector, state, atRuleParams string, meta RuleMeta) *Rule {
	tokens := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		tokens = append(tokens, sel.token())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(tokens, state, atRuleParams, meta)
}

func (s *Styles) find(tokens []string, state, atRuleParams string, meta RuleMeta) *Rule {
	for _, r := range s.rules {
		if r.matches(tokens, state, atRuleParams, meta) {
			return r
		}
	}
	return nil
}

// RemoveRules removes rules from the model returning how many were there.
func (s *Styles) RemoveRules(rules ...*Rule) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.rules)
	s.rules = slices.DeleteFunc(s.rules, func(r *Rule) bool {
		return slices.Contains(rules, r)
	})
	removed := before - len(s.rules)
	if removed > 0 {
		s.version++
		s.log.Debug("Rules removed", zap.Int("count", removed), zap.Int("total", len(s.rules)))
	}
	return removed
}

// Rules returns model rules in order.
func (s *Styles) Rules() []*Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rules)
}

// Selectors returns registered selectors in natural order.
func (s *Styles) Selectors() []*Selector {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*Selector, 0, len(s.selectors))
	for _, sel := range s.selectors {
		res = append(res, sel)
	}
	slices.SortFunc(res, func(a, b *Selector) int {
		switch as, bs := a.String(), b.String(); {
		case natural.Less(as, bs):
			return -1
		case natural.Less(bs, as):
			return 1
		default:
			return 0
		}
	})
	return res
}

// Version changes every time model is mutated.
func (s *Styles) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// CSS serializes all rules.
func (s *Styles) CSS() string {
	return stylesheetOf(s.Rules()).String()
}

func stylesheetOf(rules []*Rule) *css.Stylesheet {
	sheet := &css.Stylesheet{Rules: make([]css.Rule, 0, len(rules))}
	for _, r := range rules {
		sheet.Rules = append(sheet.Rules, r.Rule)
	}
	return sheet
}
