package editor

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"codepanel/common"
)

// Container is the host side region an editing surface renders into. It
// carries a unique handle and whatever view was rendered last.
type Container struct {
	id    string
	class string

	mu       sync.Mutex
	attached bool
	view     string
}

// NewContainer allocates container with unique handle for content kind.
func NewContainer(kind common.Kind) *Container {
	return &Container{
		id:    uuid.NewString(),
		class: slug.Make("editor container " + kind.String()),
	}
}

// ID returns unique container handle.
func (c *Container) ID() string { return c.id }

// Class returns container class name, same for all containers of a kind.
func (c *Container) Class() string { return c.class }

// Attach marks container as placed into live panel.
func (c *Container) Attach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = true
}

// Detach marks container as removed from panel.
func (c *Container) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = false
}

func (c *Container) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Render replaces container view.
func (c *Container) Render(view string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = view
}

func (c *Container) View() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Clear removes whatever was rendered.
func (c *Container) Clear() {
	c.Render("")
}
