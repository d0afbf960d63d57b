//go:build windows

package volume

import (
	"errors"
	"os"
	"strings"
	"unsafe"

	"github.com/trim21/errgo"
	"golang.org/x/sys/windows"
)

const (
	IOCTL_DISK_GET_DRIVE_GEOMETRY = 0x70000
	FSCTL_LOCK_VOLUME             = 0x90018
	FSCTL_DISMOUNT_VOLUME         = 0x90020
	FSCTL_UNLOCK_VOLUME           = 0x9001c
)

type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

// locker is unused on Windows: the volume lock lives on the output handle.
type locker struct{}

// IsDevicePath reports whether p names a device in the \\.\ namespace.
func IsDevicePath(p string) bool {
	return strings.HasPrefix(p, `\\.\`)
}

func createFile(path string, access, disposition, flags uint32) (*os.File, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(
		name,
		access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		disposition,
		flags,
		0,
	)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(h), path), nil
}

func openInput(path string) (*os.File, error) {
	return createFile(path, windows.GENERIC_READ, windows.OPEN_EXISTING, windows.FILE_FLAG_SEQUENTIAL_SCAN)
}

// openOutput never truncates an existing destination; a new file is only
// created when the path does not name a device.
func openOutput(path string) (*os.File, error) {
	f, err := createFile(path, windows.GENERIC_WRITE, windows.OPEN_EXISTING, 0)
	if err == nil || IsDevicePath(path) {
		return f, err
	}
	return createFile(path, windows.GENERIC_WRITE, windows.CREATE_ALWAYS, 0)
}

func (t *Target) ioctl(code uint32, out *byte, size uint32) error {
	var returned uint32
	return windows.DeviceIoControl(windows.Handle(t.Fd()), code, nil, 0, out, size, &returned, nil)
}

// SectorSize asks the driver for the disk geometry. Regular files fail the
// query and are reported as not being devices.
func (t *Target) SectorSize() (int, bool) {
	var g diskGeometry
	err := t.ioctl(IOCTL_DISK_GET_DRIVE_GEOMETRY, (*byte)(unsafe.Pointer(&g)), uint32(unsafe.Sizeof(g)))
	if err != nil {
		t.log.Debug().Err(err).Str("path", t.path).Msg("no drive geometry")
		return 0, false
	}
	return int(g.BytesPerSector), true
}

func (t *Target) Dismount() error {
	if err := t.ioctl(FSCTL_DISMOUNT_VOLUME, nil, 0); err != nil {
		return errgo.Wrap(err, "FSCTL_DISMOUNT_VOLUME")
	}
	t.log.Debug().Str("path", t.path).Msg("volume dismounted")
	return nil
}

func (t *Target) Lock() error {
	if err := t.ioctl(FSCTL_LOCK_VOLUME, nil, 0); err != nil {
		return errgo.Wrap(err, "FSCTL_LOCK_VOLUME")
	}
	t.log.Debug().Str("path", t.path).Msg("volume locked")
	return nil
}

func (t *Target) Unlock() error {
	if err := t.ioctl(FSCTL_UNLOCK_VOLUME, nil, 0); err != nil {
		return errgo.Wrap(err, "FSCTL_UNLOCK_VOLUME")
	}
	return nil
}

// IsBadSector reports whether a read failed because the device has no
// sector at the current position.
func IsBadSector(err error) bool {
	return errors.Is(err, windows.ERROR_SECTOR_NOT_FOUND)
}
