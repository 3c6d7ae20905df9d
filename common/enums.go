// Package common holds enums shared by configuration, surfaces and the
// command line. Keeping them here lets every layer name a content kind
// without importing the editing machinery.
package common

import (
	"fmt"
	"strings"
)

// Kind of content an editing surface holds.
// ENUM(markup, style)
type Kind int

const (
	KindMarkup Kind = iota
	KindStyle
)

var kindNames = []string{"markup", "style"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Language returns the syntax name the rich-editing capability expects.
func (k Kind) Language() string {
	switch k {
	case KindMarkup:
		return "html"
	case KindStyle:
		return "css"
	default:
		// this should never happen
		panic("unsupported content kind")
	}
}

// IsValid reports whether k is one of the declared kinds.
func (k Kind) IsValid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// Kinds returns all kinds in declaration order, markup first.
func Kinds() []Kind {
	return []Kind{KindMarkup, KindStyle}
}

func KindNames() []string {
	names := make([]string, len(kindNames))
	copy(names, kindNames)
	return names
}

// ParseKind accepts kind names and the language aliases "html" and "css".
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markup", "html":
		return KindMarkup, nil
	case "style", "css":
		return KindStyle, nil
	}
	return Kind(-1), fmt.Errorf("%s is not a valid Kind, try [%s]", name, strings.Join(kindNames, ", "))
}

// KindFromPath guesses content kind by file extension.
func KindFromPath(path string) (Kind, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".css"):
		return KindStyle, true
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"), strings.HasSuffix(lower, ".xhtml"):
		return KindMarkup, true
	}
	return Kind(-1), false
}
