package transfer

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/dustin/go-humanize"
)

// MaxBufferSize caps the block buffer. The runtime never issues a single
// read or write larger than this, so a bigger buffer would only be filled
// partially on every pass.
const MaxBufferSize = units.GiB

// Open sets up a transfer: it opens both endpoints, prepares a device
// destination for exclusive raw writes and allocates the block buffer.
//
// The returned session is never nil, even on error, so the caller can hand
// it to Fail and release whatever was acquired before the failure.
func Open(req Request, opts Options) (*Session, error) {
	s := newSession(opts)
	s.start = s.clock.Micros()

	src, err := opts.Opener.OpenSource(req.Source)
	if err != nil {
		return s, newError(KindOpen,
			fmt.Sprintf("Could not open input file or device %s for reading", req.Source), err)
	}
	s.src = src

	dst, err := opts.Opener.OpenDestination(req.Destination)
	if err != nil {
		return s, newError(KindOpen,
			fmt.Sprintf("Could not open output file or device %s for writing", req.Destination), err)
	}
	s.dst = dst

	sector, isDevice := dst.SectorSize()
	if isDevice && sector <= 0 {
		s.log.Warn().Int("sector", sector).Msg("device reported no sector size, treating output as a file")
		isDevice = false
	}
	if isDevice {
		s.log.Debug().Str("path", req.Destination).Int("sector", sector).Msg("output is a device")
		if err := dst.Dismount(); err != nil {
			return s, newError(KindDismount, "Failed to dismount output volume", err)
		}
		if err := dst.Lock(); err != nil {
			return s, newError(KindLock, "Failed to lock output volume", err)
		}
		s.locked = true
		s.sectorSize = sector
	}

	s.bufSize = BufferSize(req.BlockSize, s.sectorSize)
	buf, err := allocate(s.bufSize)
	if err != nil {
		return s, newError(KindAllocation, "Failed to allocate buffer", err)
	}
	s.buf = buf

	s.log.Debug().
		Int64("bytes", s.bufSize).
		Str("size", humanize.IBytes(uint64(s.bufSize))).
		Msg("block buffer allocated")
	return s, nil
}

// BufferSize returns the effective block size for a requested size. A
// sectorSize of zero means the destination is a regular file; otherwise
// the result is a non-zero multiple of the sector size.
func BufferSize(requested int64, sectorSize int) int64 {
	base := requested
	if base <= 0 {
		base = DefaultBlockSize
	}
	if sectorSize <= 0 {
		return base
	}
	sector := int64(sectorSize)
	if base < sector {
		return sector
	}
	return base / sector * sector
}

func allocate(n int64) (buf []byte, err error) {
	if n <= 0 || n > MaxBufferSize {
		return nil, fmt.Errorf("buffer size %s exceeds the %s limit",
			humanize.IBytes(uint64(n)), humanize.IBytes(MaxBufferSize))
	}
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("%v", r)
		}
	}()
	return make([]byte, n), nil
}
