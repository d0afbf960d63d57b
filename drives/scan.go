package drives

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Drive is a device node found by Scan.
type Drive struct {
	Path  string
	Whole bool
	Size  int64 // -1 when unknown
	Model string
	Note  string
}

// Scan lists drives from the hardware inventory, or from the device nodes
// when the inventory is unavailable.
func Scan() ([]Drive, error) {
	if found, err := scanHardware(); err == nil && len(found) > 0 {
		return found, nil
	}
	return scanNodes()
}

func scanNodes() ([]Drive, error) {
	switch runtime.GOOS {
	case "darwin":
		return scanDarwin("/dev")
	case "linux":
		return scanLinux("/dev", "/sys/class/block")
	case "windows":
		return scanWindows(32), nil
	default:
		return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

func scanDarwin(dev string) ([]Drive, error) {
	entries, err := os.ReadDir(dev)
	if err != nil {
		return nil, err
	}
	var res []Drive
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "disk") && !strings.HasPrefix(name, "rdisk") {
			continue
		}
		d := Drive{Path: filepath.Join(dev, name), Whole: !isPartitionDarwin(name), Size: -1}
		if strings.HasPrefix(name, "rdisk") {
			d.Note = "raw"
		}
		res = append(res, d)
	}
	return res, nil
}

// isPartitionDarwin matches diskNsM and rdiskNsM.
func isPartitionDarwin(name string) bool {
	for i := 0; i+1 < len(name); i++ {
		if name[i] == 's' && name[i+1] >= '0' && name[i+1] <= '9' {
			return true
		}
	}
	return false
}

func scanLinux(dev, sys string) ([]Drive, error) {
	entries, err := os.ReadDir(dev)
	if err != nil {
		return nil, err
	}
	var res []Drive
	for _, e := range entries {
		name := e.Name()
		var d Drive
		switch {
		case isWholeLinuxDevice(name):
			d = Drive{Whole: true}
		case isPartitionLinux(name):
			d = Drive{}
		case strings.HasPrefix(name, "loop") && name != "loop-control":
			d = Drive{Whole: true, Note: "loop device"}
		default:
			continue
		}
		d.Path = filepath.Join(dev, name)
		d.Size = sysfsSize(filepath.Join(sys, name))
		if d.Whole && d.Note == "" && sysfsFlag(filepath.Join(sys, name, "removable")) {
			d.Note = "removable"
		}
		res = append(res, d)
	}
	return res, nil
}

func isWholeLinuxDevice(name string) bool {
	// sdX, vdX
	if len(name) == 3 && (strings.HasPrefix(name, "sd") || strings.HasPrefix(name, "vd")) && name[2] >= 'a' && name[2] <= 'z' {
		return true
	}
	// nvmeXnY
	if rest, ok := strings.CutPrefix(name, "nvme"); ok {
		ctrl, ns, found := strings.Cut(rest, "n")
		return found && isDigits(ctrl) && isDigits(ns)
	}
	// mmcblkX
	if rest, ok := strings.CutPrefix(name, "mmcblk"); ok {
		return isDigits(rest)
	}
	return false
}

func isPartitionLinux(name string) bool {
	// sdXN, vdXN
	if (strings.HasPrefix(name, "sd") || strings.HasPrefix(name, "vd")) && len(name) >= 4 {
		return name[2] >= 'a' && name[2] <= 'z' && isDigits(name[3:])
	}
	// nvmeXnYpZ, mmcblkXpZ
	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		whole, part, found := strings.Cut(name, "p")
		return found && isWholeLinuxDevice(whole) && isDigits(part)
	}
	return false
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// sysfsSize reads the size attribute, which counts 512-byte sectors
// regardless of the device's logical sector size.
func sysfsSize(dir string) int64 {
	b, err := os.ReadFile(filepath.Join(dir, "size"))
	if err != nil {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return -1
	}
	return n * 512
}

func sysfsFlag(path string) bool {
	b, err := os.ReadFile(path)
	return err == nil && strings.TrimSpace(string(b)) == "1"
}

func scanWindows(limit int) []Drive {
	var res []Drive
	for i := 0; i < limit; i++ {
		path := fmt.Sprintf(`\\.\PhysicalDrive%d`, i)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		_ = f.Close()
		res = append(res, Drive{Path: path, Whole: true, Size: -1})
	}
	return res
}
