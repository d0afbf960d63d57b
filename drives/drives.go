// Package drives lists the storage devices of the machine, either through
// the platform's own listing tool or, when that is missing, by scanning
// device nodes.
package drives

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/trim21/errgo"
)

// Command returns the drive listing command line for goos.
func Command(goos string) []string {
	switch goos {
	case "windows":
		return []string{"powershell", "-Command",
			"Get-PhysicalDisk | Format-Table -Property DeviceID, MediaType, OperationalStatus, Size"}
	case "darwin":
		return []string{"diskutil", "list"}
	default:
		return []string{"lsblk", "-d", "-o", "NAME,SIZE,TYPE,MODEL"}
	}
}

// Lister prints the drive list.
type Lister struct {
	Stdout io.Writer
	Stderr io.Writer
	Log    zerolog.Logger

	// Exec runs argv with the lister's streams and returns its exit status.
	// Nil means run it as a child process.
	Exec func(ctx context.Context, argv []string) (int, error)
	// Scan is the fallback device scan. Nil means Scan for this OS.
	Scan func() ([]Drive, error)
}

// List runs the platform listing command and returns its exit status. If the
// command is not installed the built-in scan is printed instead.
func (l Lister) List(ctx context.Context) (int, error) {
	argv := Command(runtime.GOOS)
	run := l.Exec
	if run == nil {
		run = l.execChild
	}

	code, err := run(ctx, argv)
	if err == nil {
		l.Log.Debug().Strs("argv", argv).Int("status", code).Msg("drive listing finished")
		return code, nil
	}
	if !errors.Is(err, exec.ErrNotFound) {
		return 1, errgo.Wrap(err, "failed to run "+argv[0])
	}

	l.Log.Debug().Str("command", argv[0]).Msg("listing command not found, scanning device nodes")
	scan := l.Scan
	if scan == nil {
		scan = Scan
	}
	found, err := scan()
	if err != nil {
		return 1, errgo.Wrap(err, "failed to scan devices")
	}
	_, _ = io.WriteString(l.Stdout, Render(found))
	_, _ = fmt.Fprintln(l.Stdout)
	return 0, nil
}

func (l Lister) execChild(ctx context.Context, argv []string) (int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}

// Render formats drives as a table, whole disks first.
func Render(found []Drive) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"device", "kind", "size", "model", "note"})
	t.SortBy([]table.SortBy{{Name: "kind"}, {Name: "device"}})

	for _, d := range found {
		size := "-"
		if d.Size >= 0 {
			size = humanize.IBytes(uint64(d.Size))
		}
		kind := "disk"
		if !d.Whole {
			kind = "part"
		}
		t.AppendRow(table.Row{d.Path, kind, size, d.Model, d.Note})
	}

	return t.Render()
}
