//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

// EnableColorOutput reports whether stream is a terminal, console log
// levels and highlighted format output are colorized only then.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
