package volume

import (
	"os"

	"golang.org/x/sys/unix"
)

func mountTable() ([]Mount, error) {
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return nil, err
	}
	return parseMounts(string(data))
}

func unmount(mountpoint string) error {
	return unix.Unmount(mountpoint, 0)
}

func sectorSize(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.BLKSSZGET)
}

func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
