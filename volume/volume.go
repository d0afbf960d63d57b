// Package volume opens the endpoints of a copy and exposes the raw-device
// operations the transfer engine needs: geometry, dismount and exclusive
// locking of the output volume.
package volume

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/sryze/wdd/transfer"
)

// System is the platform implementation of transfer.Opener.
type System struct {
	Log zerolog.Logger
}

func New(log zerolog.Logger) System {
	return System{Log: log}
}

// Target is an opened output file or device.
type Target struct {
	*os.File
	path string
	log  zerolog.Logger
	lock locker
}

func (s System) OpenSource(path string) (io.ReadCloser, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	s.Log.Debug().Str("path", path).Msg("input opened")
	return f, nil
}

func (s System) OpenDestination(path string) (transfer.Destination, error) {
	f, err := openOutput(path)
	if err != nil {
		return nil, err
	}
	s.Log.Debug().Str("path", path).Msg("output opened")
	return &Target{File: f, path: path, log: s.Log}, nil
}

func (System) EndOfMedia(err error) bool {
	return IsBadSector(err)
}

// Path returns the path the target was opened with.
func (t *Target) Path() string { return t.path }
