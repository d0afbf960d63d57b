package drives

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jaypipes/ghw"
)

// scanHardware asks the platform's hardware inventory for disks and their
// partitions.
func scanHardware() ([]Drive, error) {
	block, err := ghw.Block(ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}

	var res []Drive
	for _, disk := range block.Disks {
		d := Drive{
			Path:  devicePath(disk.Name),
			Whole: true,
			Size:  int64(disk.SizeBytes),
			Model: strings.TrimSpace(disk.Model),
		}
		if disk.IsRemovable {
			d.Note = "removable"
		}
		res = append(res, d)

		for _, p := range disk.Partitions {
			part := Drive{Path: devicePath(p.Name), Size: int64(p.SizeBytes)}
			if p.MountPoint != "" {
				part.Note = "mounted on " + p.MountPoint
			}
			res = append(res, part)
		}
	}
	return res, nil
}

func devicePath(name string) string {
	if runtime.GOOS == "windows" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join("/dev", name)
}
