package rich

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"go.uber.org/zap"

	"codepanel/editor"
)

// Instance is a rich editor bound to a container.
type Instance struct {
	log       *zap.Logger
	owner     *Capability
	container *editor.Container
	lexer     chroma.Lexer
	language  string
	tabSize   int
	wordWrap  bool

	mu       sync.Mutex
	text     string
	sel      editor.Range
	disposed bool
}

func (i *Instance) Value() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.text
}

// SetValue replaces whole text and drops selection.
func (i *Instance) SetValue(text string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disposed {
		return
	}
	i.text = text
	i.sel = editor.Range{}
}

func (i *Instance) Selection() (editor.Range, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disposed || i.sel.IsEmpty() {
		return editor.Range{}, false
	}
	return i.sel, true
}

// SetSelection selects range clamped to the text.
func (i *Instance) SetSelection(r editor.Range) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disposed {
		return
	}
	i.sel = clamp(r, len(i.text))
}

func (i *Instance) ExecuteEdit(r editor.Range, text string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disposed {
		return
	}
	r = clamp(r, len(i.text))
	i.text = i.text[:r.Start] + text + i.text[r.End:]
	i.sel = editor.Range{}
}

// Layout renders highlighted text into the container. Detached containers
// are left alone.
func (i *Instance) Layout() {
	i.mu.Lock()
	text, disposed := i.text, i.disposed
	i.mu.Unlock()

	if disposed || !i.container.Attached() {
		return
	}
	view, err := i.owner.Highlight(i.language, text)
	if err != nil {
		i.log.Debug("Highlighting failed, rendering plain text", zap.Error(err))
		view = text
	}
	i.container.Render(view)
}

func (i *Instance) Action(id string) editor.Action {
	if id == editor.ActionFormatDocument {
		return &formatAction{inst: i}
	}
	return nil
}

// Dispose releases the container. Calling it again is a no-op.
func (i *Instance) Dispose() error {
	i.mu.Lock()
	if i.disposed {
		i.mu.Unlock()
		return nil
	}
	i.disposed = true
	i.mu.Unlock()

	i.container.Clear()
	return nil
}

func clamp(r editor.Range, n int) editor.Range {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	r.Start = min(max(r.Start, 0), n)
	r.End = min(max(r.End, 0), n)
	return r
}

type formatAction struct {
	inst *Instance
}

func (a *formatAction) ID() string {
	return editor.ActionFormatDocument
}

// Run reformats document. Result is dropped when text was changed while
// formatting was in progress.
func (a *formatAction) Run(ctx context.Context) error {
	i := a.inst

	i.mu.Lock()
	text, disposed := i.text, i.disposed
	i.mu.Unlock()
	if disposed {
		return editor.ErrDisposed
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	out, err := i.format(text)
	if err != nil {
		return fmt.Errorf("unable to format document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	switch {
	case i.disposed:
		i.mu.Unlock()
		return editor.ErrDisposed
	case i.text != text:
		i.mu.Unlock()
		i.log.Debug("Document changed while formatting, result dropped")
		return nil
	}
	i.text = out
	i.sel = editor.Range{}
	i.mu.Unlock()

	i.Layout()
	return nil
}

func (i *Instance) format(text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formatter fault: %v", r)
		}
	}()
	return FormatDocument(i.language, text, i.tabSize)
}
