// Package format implements last resort formatting of markup and style
// text. The transforms are heuristic and line based: they do not parse,
// and they never fail - any internal fault returns input unchanged.
package format

import (
	"fmt"

	"go.uber.org/zap"

	"codepanel/common"
)

// Fallback formats text of a given kind and logs faults it swallows.
type Fallback struct {
	log *zap.Logger
}

// NewFallback creates fallback formatter.
func NewFallback(log *zap.Logger) *Fallback {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fallback{log: log.Named("fallback-format")}
}

// Format returns formatted text, or text itself when formatting failed.
func (f *Fallback) Format(kind common.Kind, text string) string {
	var fn func(string) string
	switch kind {
	case common.KindMarkup:
		fn = formatHTML
	case common.KindStyle:
		fn = formatCSS
	default:
		return text
	}
	out, err := guard(text, fn)
	if err != nil {
		f.log.Warn("Fallback formatting failed, keeping original text", zap.Stringer("kind", kind), zap.Error(err))
		return text
	}
	return out
}

// HTML formats markup text, see Fallback for failure semantics.
func HTML(text string) string {
	out, err := guard(text, formatHTML)
	if err != nil {
		return text
	}
	return out
}

// CSS formats style text, see Fallback for failure semantics.
func CSS(text string) string {
	out, err := guard(text, formatCSS)
	if err != nil {
		return text
	}
	return out
}

// guard runs fn converting panic into error.
func guard(text string, fn func(string) string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = text, fmt.Errorf("formatter fault: %v", r)
		}
	}()
	return fn(text), nil
}
