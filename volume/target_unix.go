//go:build !windows

package volume

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/trim21/errgo"
)

type locker = *flock.Flock

// errBusy is reported when another process holds the device lock. It
// matches syscall.EBUSY.
var errBusy error = busyError{}

type busyError struct{}

func (busyError) Error() string { return "locked by another process" }

func (busyError) Is(target error) bool { return target == syscall.EBUSY }

// IsDevicePath reports whether p lives under /dev.
func IsDevicePath(p string) bool {
	return strings.HasPrefix(filepath.Clean(p), "/dev/")
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	adviseSequential(f)
	return f, nil
}

// openOutput never truncates an existing destination; a new file is only
// created when the path does not name a device.
func openOutput(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err == nil || IsDevicePath(path) {
		return f, err
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// SectorSize reports the logical sector size of a block device. Regular
// files and devices without a sector size, like /dev/null, are not devices.
func (t *Target) SectorSize() (int, bool) {
	fi, err := t.Stat()
	if err != nil || fi.Mode()&os.ModeDevice == 0 {
		return 0, false
	}
	size, err := sectorSize(int(t.Fd()))
	if err != nil {
		t.log.Debug().Err(err).Str("path", t.path).Msg("no sector size")
		return 0, false
	}
	return size, true
}

// Dismount unmounts every filesystem mounted from the device or one of its
// partitions, innermost mount points first.
func (t *Target) Dismount() error {
	disk := canonicalDevice(t.path)
	table, err := mountTable()
	if err != nil {
		return errgo.Wrap(err, "failed to read mount table")
	}

	mounts := mountsOf(table, disk)
	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].Mountpoint) > len(mounts[j].Mountpoint)
	})

	for _, m := range mounts {
		if err := unmount(m.Mountpoint); err != nil {
			return errgo.Wrap(err, "unmount "+m.Mountpoint)
		}
		t.log.Debug().Str("device", m.Device).Str("mountpoint", m.Mountpoint).Msg("unmounted")
	}
	return nil
}

// Lock takes an exclusive advisory lock on the device node.
func (t *Target) Lock() error {
	l := flock.New(t.path, flock.SetFlag(os.O_RDONLY))
	ok, err := l.TryLock()
	if err != nil {
		return errgo.Wrap(err, "lock "+t.path)
	}
	if !ok {
		return &os.PathError{Op: "lock", Path: t.path, Err: errBusy}
	}
	t.lock = l
	t.log.Debug().Str("path", t.path).Msg("device locked")
	return nil
}

func (t *Target) Unlock() error {
	if t.lock == nil {
		return nil
	}
	l := t.lock
	t.lock = nil
	if err := l.Unlock(); err != nil {
		return errgo.Wrap(err, "unlock "+t.path)
	}
	return nil
}

// IsBadSector reports whether a read failed because it went past the
// readable end of the media. Block drivers report this as ENXIO.
func IsBadSector(err error) bool {
	return errors.Is(err, syscall.ENXIO)
}

func canonicalDevice(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return rawToBlock(filepath.Clean(path))
}
