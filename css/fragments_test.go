package css_test

import (
	"slices"
	"strings"
	"testing"

	"codepanel/css"
)

func TestSplitRules_RepairsClosingBrace(t *testing.T) {
	fragments := css.SplitRules("#a{color:red}\n.b{color:blue}\n")

	want := []string{"#a{color:red}", ".b{color:blue}"}
	if !slices.Equal(fragments, want) {
		t.Fatalf("expected %q, got %q", want, fragments)
	}
	for _, f := range fragments {
		if !strings.HasSuffix(f, "}") || strings.HasSuffix(f, "}}") {
			t.Errorf("fragment %q must end with exactly one closing brace", f)
		}
	}
}

func TestSplitRules_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blank", " \n\n ", nil},
		{"no trailing newline", "#a{x:1}\n#b{x:2}", []string{"#a{x:1}", "#b{x:2}"}},
		{"blank lines between rules", "#a{x:1}\n\n\n.b{x:2}\n", []string{"#a{x:1}", ".b{x:2}"}},
		{"trailing spaces", "#a{x:1}  ", []string{"#a{x:1}"}},
		{"crlf", "#a{x:1}\r\n.b{x:2}\r\n", []string{"#a{x:1}", ".b{x:2}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := css.SplitRules(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestScopedBlock(t *testing.T) {
	if got := css.ScopedBlock("#a{color:red}\n.b{color:blue}\n"); got != "#a{color:red}" {
		t.Errorf("expected only #a rule, got %q", got)
	}

	got := css.ScopedBlock("#a{x:1}\n.b{x:2}\n\n#c:hover{x:3}\nh1{x:4}\n")
	if got != "#a{x:1}#c:hover{x:3}" {
		t.Errorf("expected identifier rules in order, got %q", got)
	}

	if got := css.ScopedBlock(".only{x:1}\n"); got != "" {
		t.Errorf("expected empty block, got %q", got)
	}
}
