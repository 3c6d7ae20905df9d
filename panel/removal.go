package panel

import (
	"codepanel/css"
	"codepanel/host"
)

// StyleRegistry is the part of the style model rule removal needs.
type StyleRegistry interface {
	ParseCSS(text string) []css.Rule
	ResolveSelector(tokens []string) ([]*host.Selector, bool)
	Rule(selectors []*host.Selector, state, atRuleParams string, meta host.RuleMeta) *host.Rule
	RemoveRules(rules ...*host.Rule) int
}

// RemoveRules removes rules described by style text from the model. Rules
// with selectors which are not registered, and rules which are not in the
// model, are skipped. Returns number of rules removed.
func RemoveRules(styles StyleRegistry, text string) int {
	var found []*host.Rule
	for _, d := range styles.ParseCSS(text) {
		selectors, ok := styles.ResolveSelector(d.Selectors)
		if !ok {
			continue
		}
		meta := host.RuleMeta{SelectorsAdd: d.SelectorsAdd, AtRuleType: d.AtRule.Type}
		if r := styles.Rule(selectors, d.State, d.AtRule.Params, meta); r != nil {
			found = append(found, r)
		}
	}
	if len(found) == 0 {
		return 0
	}
	return styles.RemoveRules(found...)
}
