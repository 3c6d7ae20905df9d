package css

import "strings"

// fragmentSeparator is what SplitRules cuts style text on. It is consumed
// by splitting, so all fragments but the last lose their closing brace.
const fragmentSeparator = "}\n"

// SplitRules cuts style text into rule fragments on "}\n", drops blank
// fragments and restores the closing brace splitting removed. Every
// returned fragment is trimmed and ends with exactly one "}".
//
// This is a text heuristic, not a parser: nested blocks (@media) and string
// literals containing "}\n" are cut in the wrong places.
func SplitRules(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var fragments []string
	for part := range strings.SplitSeq(text, fragmentSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasSuffix(part, "}") {
			part += "}"
		}
		fragments = append(fragments, part)
	}
	return fragments
}

// IsScoped reports whether fragment selector targets an element identifier.
func IsScoped(fragment string) bool {
	return strings.HasPrefix(strings.TrimSpace(fragment), "#")
}

// ScopedBlock returns identifier scoped rules of style text concatenated in
// original order. Those are the rules which have to travel together with
// element markup when the element is replaced.
func ScopedBlock(text string) string {
	var sb strings.Builder
	for _, fragment := range SplitRules(text) {
		if IsScoped(fragment) {
			sb.WriteString(fragment)
		}
	}
	return sb.String()
}
