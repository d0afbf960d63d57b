package transfer

import (
	"context"
	"fmt"

	"github.com/sryze/wdd/progress"
)

// Fail reports err on the diagnostic stream, prints the final status when
// copying had started, tears the session down and returns an *ExitError
// with status 1.
func Fail(s *Session, err error) error {
	s.display.Keep()
	_, _ = fmt.Fprintln(s.stderr, err.Error())
	if s.started {
		s.display.Final(s.renderer.Status(s.bytesOut, s.start))
	}
	s.Close()
	return &ExitError{Code: 1, Err: err}
}

// Complete tears a finished session down and prints the final status.
func Complete(s *Session) {
	s.Close()
	s.display.Final(s.renderer.Status(s.bytesOut, s.start))
}

// Run performs a whole transfer. Every fatal error passes through Fail
// exactly once; a nil result means the copy completed.
func Run(ctx context.Context, req Request, opts Options) error {
	s, err := Open(req, opts)
	if err != nil {
		return Fail(s, err)
	}

	var mon *progress.Monitor
	if req.Progress {
		mon = progress.NewMonitor(s.clock, s.display, s.start)
	}

	if err := s.Copy(ctx, req.Count, mon); err != nil {
		return Fail(s, err)
	}
	if err := s.Flush(); err != nil {
		return Fail(s, err)
	}

	s.log.Info().
		Int64("in", s.bytesIn).
		Int64("out", s.bytesOut).
		Int64("blocks", s.blocks).
		Msg("transfer complete")
	Complete(s)
	return nil
}
