// Package editor defines the contract of the rich-editing capability and
// owns its process-wide loading state.
//
// The capability is heavyweight and loaded asynchronously exactly once per
// process. Everything needing it attaches to the same Signal returned by
// Loader.Request instead of triggering another load.
package editor

import (
	"context"
	"errors"
)

// ActionFormatDocument is the identifier of the instance action
// reformatting the whole content.
const ActionFormatDocument = "editor.action.formatDocument"

var (
	// ErrLoadFailure is returned when the capability could not be obtained.
	ErrLoadFailure = errors.New("rich-editing capability is not available")
	// ErrCreationFailure is returned when an instance could not be created
	// for a particular container.
	ErrCreationFailure = errors.New("unable to create editor instance")
	// ErrDisposed is returned by operations on a disposed instance.
	ErrDisposed = errors.New("editor instance is disposed")
)

// Capability creates editor instances.
type Capability interface {
	NewInstance(c *Container, opts InstanceOptions) (Instance, error)
}

// InstanceOptions is the configuration a single instance is created with.
type InstanceOptions struct {
	Language string // "html" or "css"
	Value    string // initial content
	TabSize  int
	WordWrap bool
}

// Range is a selection in byte offsets, End is exclusive.
type Range struct {
	Start int
	End   int
}

// IsEmpty reports whether the range selects nothing.
func (r Range) IsEmpty() bool {
	return r.End <= r.Start
}

// Instance is a single editor bound to a container.
type Instance interface {
	Value() string
	SetValue(text string)
	// Selection returns current non-empty selection.
	Selection() (Range, bool)
	SetSelection(r Range)
	// ExecuteEdit replaces text in range and clears selection.
	ExecuteEdit(r Range, text string)
	Layout()
	// Action returns action by identifier or nil when instance does not
	// support it.
	Action(id string) Action
	Dispose() error
}

// Action is a named operation of an instance.
type Action interface {
	ID() string
	Run(ctx context.Context) error
}

// LoadFunc obtains the capability. It is called at most once per Loader.
type LoadFunc func(ctx context.Context) (Capability, error)
