// Package sizefmt renders byte counts and transfer rates the way dd prints
// them, and parses dd-style size operands such as "512", "4k" or "1M".
package sizefmt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docker/go-units"
)

const (
	KB = units.KiB
	MB = units.MiB
	GB = units.GiB
)

// Size returns n as "<n> bytes" below 1 KB, otherwise as a one-decimal
// KB/MB/GB magnitude.
func Size(n int64) string {
	switch {
	case n >= GB:
		return fmt.Sprintf("%0.1f GB", float64(n)/float64(GB))
	case n >= MB:
		return fmt.Sprintf("%0.1f MB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%0.1f KB", float64(n)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// Speed formats a rate in bytes per second. Unlike Size it never falls back
// to an integer rendering.
func Speed(bps float64) string {
	switch {
	case bps >= GB:
		return fmt.Sprintf("%0.1f GB/s", bps/GB)
	case bps >= MB:
		return fmt.Sprintf("%0.1f MB/s", bps/MB)
	case bps >= KB:
		return fmt.Sprintf("%0.1f KB/s", bps/KB)
	default:
		return fmt.Sprintf("%0.1f bytes/s", bps)
	}
}

// operand is a whole number with an optional K, M or G multiplier. Larger
// units, fractions and a bare "b" are not sizes wdd understands.
var operand = regexp.MustCompile(`^[0-9]+([kKmMgG]([iI]?[bB])?)?$`)

// Parse converts a size operand to bytes. K, M and G suffixes (any case,
// optionally followed by "B" or "iB") multiply by 2^10, 2^20 and 2^30.
func Parse(s string) (int64, error) {
	ss := strings.TrimSpace(s)
	if ss == "" {
		return 0, fmt.Errorf("empty size")
	}
	if !operand.MatchString(ss) {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	n, err := units.RAMInBytes(ss)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n, nil
}
