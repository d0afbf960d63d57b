//go:build !windows && !linux && !darwin

package volume

import (
	"errors"
	"os"
)

func mountTable() ([]Mount, error) { return nil, nil }

func unmount(string) error { return errors.ErrUnsupported }

func sectorSize(int) (int, error) { return 0, errors.ErrUnsupported }

func adviseSequential(*os.File) {}
