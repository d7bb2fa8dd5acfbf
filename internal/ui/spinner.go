// Package ui draws progress on stderr when a person is watching.
package ui

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Spinner shows a loading state on w. On anything but a terminal it does
// nothing, so piped output stays clean.
type Spinner struct {
	w  io.Writer
	s  *spinner.Spinner
	on bool
}

func NewSpinner(w io.Writer, msg string) *Spinner {
	sp := &Spinner{w: w, on: IsTerminal(w)}
	if !sp.on {
		return sp
	}
	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = "  " + msg
	s.Color("cyan")
	sp.s = s
	return sp
}

func (sp *Spinner) Start() {
	if sp.on {
		sp.s.Start()
	}
}

// Update replaces the message while the spinner runs. Safe for concurrent use.
func (sp *Spinner) Update(msg string) {
	if sp.on {
		sp.s.Lock()
		sp.s.Suffix = "  " + msg
		sp.s.Unlock()
	}
}

// Success stops the spinner and prints a green check.
func (sp *Spinner) Success(msg string) {
	if !sp.on {
		return
	}
	sp.s.Stop()
	color.New(color.FgGreen).Fprintf(sp.w, "  ✓ %s\n", msg)
}

// Fail stops the spinner and prints a red cross.
func (sp *Spinner) Fail(msg string) {
	if !sp.on {
		return
	}
	sp.s.Stop()
	color.New(color.FgRed).Fprintf(sp.w, "  ✗ %s\n", msg)
}
