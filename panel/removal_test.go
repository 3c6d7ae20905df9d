package panel

import (
	"testing"

	"codepanel/host"
)

func TestRemoveRules(t *testing.T) {
	tests := []struct {
		name    string
		remove  string
		removed int
		left    int
	}{
		{"class rule", ".a{color:red}", 1, 4},
		{"state must match", ".a:focus{color:red}", 0, 5},
		{"media params must match", "@media print{.a{color:blue}}", 0, 5},
		{"media rule", "@media (max-width: 480px){.a{color:blue}}", 1, 4},
		{"complex selector", "div p{margin:0}", 1, 4},
		{"unregistered selector", ".missing{x:1}", 0, 5},
		{"several rules", ".a{}\n#b:hover{}\n.missing{}", 2, 3},
		{"not css", "hello", 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			styles := host.NewStyles(nil)
			styles.AddRules(`.a{color:red} #b:hover{x:1} @media (max-width: 480px){.a{color:blue}} div p{margin:0} .c{x:1}`)

			if n := RemoveRules(styles, tt.remove); n != tt.removed {
				t.Errorf("expected %d removed, got %d", tt.removed, n)
			}
			if n := len(styles.Rules()); n != tt.left {
				t.Errorf("expected %d rules left, got %d", tt.left, n)
			}
		})
	}
}
