//go:build windows

package progress

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableVirtualTerminal switches the console behind f to VT processing so
// the cursor movement sequences used by LineDisplay are honoured.
func enableVirtualTerminal(f *os.File) bool {
	h := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		return true
	}
	return windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
