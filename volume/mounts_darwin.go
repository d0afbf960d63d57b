package volume

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const DKIOCGETBLOCKSIZE = 0x40046418 // _IOR('d', 24, uint32)

func mountTable() ([]Mount, error) {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil {
		return nil, err
	}
	buf := make([]unix.Statfs_t, n)
	n, err = unix.Getfsstat(buf, unix.MNT_NOWAIT)
	if err != nil {
		return nil, err
	}

	res := make([]Mount, 0, n)
	for _, st := range buf[:n] {
		res = append(res, Mount{
			Device:     unix.ByteSliceToString(st.Mntfromname[:]),
			Mountpoint: unix.ByteSliceToString(st.Mntonname[:]),
		})
	}
	return res, nil
}

func unmount(mountpoint string) error {
	return unix.Unmount(mountpoint, 0)
}

func sectorSize(fd int) (int, error) {
	var size uint32
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), DKIOCGETBLOCKSIZE, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return int(size), nil
}

func adviseSequential(*os.File) {}
