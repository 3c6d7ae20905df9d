package editor

import (
	"testing"

	"codepanel/common"
)

func TestContainer(t *testing.T) {
	a := NewContainer(common.KindMarkup)
	b := NewContainer(common.KindMarkup)

	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("expected unique non-empty handles, got %q and %q", a.ID(), b.ID())
	}
	if a.Class() != "editor-container-markup" {
		t.Errorf("unexpected class %q", a.Class())
	}
	if a.Attached() {
		t.Error("new container must not be attached")
	}

	a.Attach()
	a.Render("loading")
	if !a.Attached() || a.View() != "loading" {
		t.Errorf("unexpected container state attached=%v view=%q", a.Attached(), a.View())
	}
	a.Clear()
	a.Detach()
	if a.Attached() || a.View() != "" {
		t.Errorf("unexpected container state attached=%v view=%q", a.Attached(), a.View())
	}
}

func TestRange_IsEmpty(t *testing.T) {
	if !(Range{Start: 3, End: 3}).IsEmpty() {
		t.Error("zero length range must be empty")
	}
	if (Range{Start: 0, End: 1}).IsEmpty() {
		t.Error("one byte range must not be empty")
	}
}
