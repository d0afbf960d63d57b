// Package transfer is the block-copy engine: it negotiates the endpoints of
// a copy, runs the read/write loop and owns the single teardown path.
package transfer

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/sryze/wdd/progress"
)

// DefaultBlockSize is used when no block size was requested.
const DefaultBlockSize = 4096

// Unbounded is the Count of a request without a block limit.
const Unbounded = -1

// Request describes one copy.
type Request struct {
	Source      string
	Destination string
	BlockSize   int64 // 0 picks a default
	Count       int64 // Unbounded or a maximum number of blocks
	Progress    bool
}

// Opener provides the platform primitives used to set up a transfer.
type Opener interface {
	OpenSource(path string) (io.ReadCloser, error)
	OpenDestination(path string) (Destination, error)
	// EndOfMedia reports whether a read error means the source has no more
	// readable sectors rather than a real I/O failure.
	EndOfMedia(err error) bool
}

// Destination is an opened output file or device.
type Destination interface {
	io.WriteCloser
	Sync() error
	// SectorSize queries the device geometry; ok is false for regular files.
	SectorSize() (size int, ok bool)
	Dismount() error
	Lock() error
	Unlock() error
}

// Options wires a transfer to its environment. Zero fields get defaults:
// the system clock, a line display on stdout, stderr and a no-op logger.
type Options struct {
	Opener  Opener
	Clock   progress.Clock
	Display progress.Display
	Stderr  io.Writer
	Log     *zerolog.Logger
}

// Session is the state of one transfer. It is owned by a single goroutine.
type Session struct {
	src        io.ReadCloser
	dst        Destination
	endOfMedia func(error) bool

	bufSize    int64
	buf        []byte
	sectorSize int
	locked     bool
	started    bool
	start      uint64
	closed     bool

	bytesIn  int64
	bytesOut int64
	blocks   int64

	clock    progress.Clock
	renderer progress.Renderer
	display  progress.Display
	stderr   io.Writer
	log      zerolog.Logger
}

func newSession(opts Options) *Session {
	s := &Session{
		clock:   opts.Clock,
		display: opts.Display,
		stderr:  opts.Stderr,
		log:     zerolog.Nop(),
	}
	if s.clock == nil {
		s.clock = progress.NewSystemClock()
	}
	if s.display == nil {
		s.display = progress.NewLineDisplay(os.Stdout)
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	if opts.Log != nil {
		s.log = *opts.Log
	}
	if opts.Opener != nil {
		s.endOfMedia = opts.Opener.EndOfMedia
	}
	s.renderer = progress.Renderer{Clock: s.clock}
	return s
}

func (s *Session) BufferSize() int64 { return s.bufSize }
func (s *Session) SectorSize() int   { return s.sectorSize }
func (s *Session) Locked() bool      { return s.locked }
func (s *Session) Started() bool     { return s.started }
func (s *Session) BytesIn() int64    { return s.bytesIn }
func (s *Session) BytesOut() int64   { return s.bytesOut }
func (s *Session) Blocks() int64     { return s.blocks }

// Close releases everything the session holds: the buffer, the volume lock
// and both handles. It is safe to call more than once; only the first call
// has an effect. Unlock and close failures are logged, never returned, so
// they cannot hide the error that ended the transfer.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	s.buf = nil

	if s.locked {
		s.locked = false
		if err := s.dst.Unlock(); err != nil {
			s.log.Warn().Err(err).Msg("failed to unlock output volume")
		} else {
			s.log.Debug().Msg("output volume unlocked")
		}
	}

	if s.src != nil {
		if err := s.src.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close input")
		}
		s.src = nil
	}
	if s.dst != nil {
		if err := s.dst.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close output")
		}
		s.dst = nil
	}
}
