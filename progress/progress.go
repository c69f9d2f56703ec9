package progress

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Reporter receives record level progress from an ingestion run.
// Implementations must be safe for concurrent use.
type Reporter interface {
	// Start begins a run over total records.
	Start(total int)
	// Add reports records that reached a terminal outcome.
	Add(succeeded, failed int)
	// Finish ends the run.
	Finish()
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(int)    {}
func (Nop) Add(int, int) {}
func (Nop) Finish()      {}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// New returns a progress bar when w is a terminal, and a line based tracker
// reporting every interval records otherwise.
func New(w io.Writer, interval int) Reporter {
	if IsTerminal(w) {
		return NewBar(w, "ingesting")
	}
	return NewTracker(w, interval)
}
