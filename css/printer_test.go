package css_test

import (
	"strings"
	"testing"

	"codepanel/css"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "single rule",
			in:   `.a{color:red;margin:0}`,
			want: []string{
				".a {",
				"  color: red;",
				"  margin: 0;",
				"}",
			},
		},
		{
			name: "selector list and siblings",
			in:   `h1,h2{font-weight:bold}#x{top:0}`,
			want: []string{
				"h1,",
				"h2 {",
				"  font-weight: bold;",
				"}",
				"",
				"#x {",
				"  top: 0;",
				"}",
			},
		},
		{
			name: "media block",
			in:   `@media (max-width: 480px){.a{color:red}.b{color:blue}}`,
			want: []string{
				"@media (max-width: 480px) {",
				"  .a {",
				"    color: red;",
				"  }",
				"",
				"  .b {",
				"    color: blue;",
				"  }",
				"}",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := css.Format([]byte(tt.in), "  ")
			if err != nil {
				t.Fatalf("Format failed: %v", err)
			}
			want := strings.Join(tt.want, "\n")
			if got != want {
				t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestFormat_Idempotent(t *testing.T) {
	in := `.a{color:red} @media print{#b{display:none}}`
	once, err := css.Format([]byte(in), "  ")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	twice, err := css.Format([]byte(once), "  ")
	if err != nil {
		t.Fatalf("second Format failed: %v", err)
	}
	if once != twice {
		t.Errorf("formatting is not stable:\n%s\n---\n%s", once, twice)
	}
}
