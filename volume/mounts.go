package volume

import (
	"bufio"
	"strconv"
	"strings"
)

// Mount is one entry of the system mount table.
type Mount struct {
	Device     string
	Mountpoint string
}

// parseMounts reads the fstab-like format of /proc/self/mounts.
func parseMounts(content string) ([]Mount, error) {
	var res []Mount
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		res = append(res, Mount{
			Device:     unescapeOctal(fields[0]),
			Mountpoint: unescapeOctal(fields[1]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// unescapeOctal decodes the \ooo escapes the kernel uses for blanks in
// mount table fields.
func unescapeOctal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func mountsOf(table []Mount, disk string) []Mount {
	var res []Mount
	for _, m := range table {
		if partitionOf(m.Device, disk) {
			res = append(res, m)
		}
	}
	return res
}

// partitionOf reports whether dev is disk itself or one of its partitions:
// sda1 of sda, mmcblk0p2 of mmcblk0, disk2s1 of disk2.
func partitionOf(dev, disk string) bool {
	if dev == disk {
		return true
	}
	rest, ok := strings.CutPrefix(dev, disk)
	if !ok || rest == "" {
		return false
	}
	// disks whose name ends in a digit separate the partition number
	if last := disk[len(disk)-1]; last >= '0' && last <= '9' {
		if rest[0] != 'p' && rest[0] != 's' {
			return false
		}
		rest = rest[1:]
	}
	return rest != "" && strings.Trim(rest, "0123456789") == ""
}

// rawToBlock maps a macOS raw disk node to the block node that appears in
// the mount table.
func rawToBlock(dev string) string {
	if rest, ok := strings.CutPrefix(dev, "/dev/rdisk"); ok {
		return "/dev/disk" + rest
	}
	return dev
}
