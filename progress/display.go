package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Display receives status lines from a running transfer.
type Display interface {
	// Show replaces the previously shown progress line with line.
	Show(line string)
	// Final prints the closing status line of a transfer.
	Final(line string)
	// Keep leaves the current progress line in place, so that output
	// written by others ends up below it and is never overwritten.
	Keep()
}

// LineDisplay writes status lines to a stream. When the stream is a terminal
// each new line overwrites the last one; otherwise lines are appended.
type LineDisplay struct {
	w       io.Writer
	inPlace bool
	width   int // of the line currently on screen, 0 if none
}

// NewLineDisplay returns a display on f, rewriting in place if f is a
// terminal that understands cursor movement.
func NewLineDisplay(f *os.File) *LineDisplay {
	inPlace := term.IsTerminal(int(f.Fd())) && enableVirtualTerminal(f)
	return NewWriterDisplay(f, inPlace)
}

// NewWriterDisplay returns a display on an arbitrary writer.
func NewWriterDisplay(w io.Writer, inPlace bool) *LineDisplay {
	return &LineDisplay{w: w, inPlace: inPlace}
}

func (d *LineDisplay) Show(line string) {
	d.clear()
	_, _ = fmt.Fprintln(d.w, line)
	d.width = len(line)
}

func (d *LineDisplay) Final(line string) {
	d.Show(line)
}

func (d *LineDisplay) Keep() {
	d.width = 0
}

// clear blanks the last drawn line and leaves the cursor at its start.
func (d *LineDisplay) clear() {
	if !d.inPlace || d.width == 0 {
		return
	}
	_, _ = fmt.Fprintf(d.w, "\x1b[1A\r%s\r", strings.Repeat(" ", d.width))
	d.width = 0
}
