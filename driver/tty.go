package driver

import (
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether f looks like a real terminal, the
// check the CLI applies to stdin before any flag says otherwise.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
