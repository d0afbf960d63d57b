// Package screen is a full-screen terminal view of a running copy. It
// renders the same status lines as the plain line display, keeps a short
// history of them and lets the user stop the copy from the keyboard.
package screen

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
)

const maxHistory = 256

// View implements progress.Display on a tcell screen.
type View struct {
	s        tcell.Screen
	stopChan chan struct{}
	once     sync.Once
	closed   bool

	title   string
	summary []string
	history []string
	status  string
	final   string

	// out receives the final line once the screen is torn down, so it
	// survives on the normal terminal.
	out io.Writer
}

// New initializes the terminal screen and starts the key-event loop.
func New(title string, summary []string, out io.Writer) (*View, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewWithScreen(s, title, summary, out)
}

// NewWithScreen is New on a caller-provided screen.
func NewWithScreen(s tcell.Screen, title string, summary []string, out io.Writer) (*View, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	v := &View{
		s:        s,
		stopChan: make(chan struct{}),
		title:    title,
		summary:  append([]string(nil), summary...),
		out:      out,
	}
	go v.eventLoop()
	v.draw()
	return v, nil
}

// Done is closed when the user asks to stop the copy.
func (v *View) Done() <-chan struct{} {
	return v.stopChan
}

// RequestStop can be called any number of times.
func (v *View) RequestStop() {
	v.once.Do(func() {
		close(v.stopChan)
		v.s.PostEvent(tcell.NewEventInterrupt(nil))
	})
}

func (v *View) Show(line string) {
	if v.status != "" {
		v.history = append(v.history, v.status)
		if len(v.history) > maxHistory {
			v.history = v.history[len(v.history)-maxHistory:]
		}
	}
	v.status = line
	v.draw()
}

func (v *View) Final(line string) {
	v.final = line
	v.status = line
	v.draw()
}

// Keep is a no-op: the view owns the whole screen and diagnostics are
// printed after Close.
func (v *View) Keep() {}

// Close restores the terminal and prints the final line, if any.
func (v *View) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.once.Do(func() { close(v.stopChan) })
	v.s.Fini()
	if v.final != "" && v.out != nil {
		_, _ = fmt.Fprintln(v.out, v.final)
	}
}

func putStr(s tcell.Screen, x, y int, str string) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		if x+i >= w {
			break
		}
		s.SetContent(x+i, y, r, nil, tcell.StyleDefault)
	}
}

func (v *View) draw() {
	if v.closed {
		return
	}
	v.s.Clear()
	w, h := v.s.Size()
	y := 0

	if v.title != "" {
		putStr(v.s, 0, y, strings.Repeat("═", w))
		putStr(v.s, max(0, (w-len(v.title))/2), y, v.title)
		y++
	}
	for _, line := range v.summary {
		if y >= h {
			break
		}
		putStr(v.s, 0, y, line)
		y++
	}

	// history fills what the status block leaves, newest at the bottom
	avail := h - y - 3
	if avail > 0 && len(v.history) > 0 {
		if len(v.history) > avail {
			v.history = v.history[len(v.history)-avail:]
		}
		putStr(v.s, 0, y, strings.Repeat("─", w))
		putStr(v.s, 2, y, " History ")
		y++
		for _, line := range v.history {
			if y >= h-2 {
				break
			}
			putStr(v.s, 0, y, line)
			y++
		}
	}

	if y < h {
		putStr(v.s, 0, y, strings.Repeat("─", w))
		putStr(v.s, 2, y, " Status ")
		y++
	}
	if y < h {
		putStr(v.s, 0, y, v.status)
		y++
	}
	if y < h && v.final == "" {
		putStr(v.s, 0, h-1, "q / Esc / Ctrl-C: stop")
	}

	v.s.Show()
}

func (v *View) eventLoop() {
	for {
		select {
		case <-v.stopChan:
			return
		default:
		}
		switch ev := v.s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC:
				v.RequestStop()
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				v.RequestStop()
			case ev.Key() == tcell.KeyEscape:
				v.RequestStop()
			}
		case *tcell.EventResize:
			v.s.Sync()
		case *tcell.EventInterrupt:
			return
		case nil:
			return
		}
	}
}
