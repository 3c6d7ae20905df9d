// Package surface implements editable text regions of the panel. Both
// implementations keep the same contract: Content always returns the most
// recent text and SetContent never fails, whatever state the surface is in.
package surface

import (
	"context"
	"errors"
	"fmt"

	"codepanel/common"
	"codepanel/editor"
)

// ErrBinding is returned by Bind while another binding of the same surface
// is in progress.
var ErrBinding = errors.New("surface is being bound")

// State is surface lifecycle state. Disposed is final.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Surface is an editable text region for a single content kind.
type Surface interface {
	Kind() common.Kind
	Container() *editor.Container
	State() State

	Content() string
	// SetContent writes text, for bound surfaces the write hook is called.
	SetContent(text string)
	// Replace writes text without calling the write hook.
	Replace(text string)

	// Selection returns currently selected text, if any.
	Selection() (string, bool)
	DeleteSelection()

	// Action returns bound instance action, nil when there is none.
	Action(id string) editor.Action
	Refresh()

	// Context is done once the surface is disposed. Asynchronous work
	// issued for the surface captures it to check liveness.
	Context() context.Context
	Dispose() error
}

// WriteHook is called after content was written to a bound surface.
type WriteHook func(s Surface)

// Alive reports whether asynchronous result issued under ctx may still be
// applied.
func Alive(ctx context.Context) bool {
	return ctx.Err() == nil
}
