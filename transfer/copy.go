package transfer

import (
	"context"
	"errors"
	"io"

	"github.com/sryze/wdd/progress"
)

// Copy moves blocks from the source to the destination until the source is
// exhausted, limit blocks have been copied (limit < 0 means no limit) or an
// error occurs. A nil monitor disables progress sampling.
//
// Reading stops without error at end of file and when the source reports a
// missing sector; the bytes of such a read are discarded.
func (s *Session) Copy(ctx context.Context, limit int64, mon *progress.Monitor) error {
	s.started = true

	for {
		if limit >= 0 && s.blocks >= limit {
			return nil
		}
		if ctx.Err() != nil {
			return newError(KindInterrupted, "Interrupted", context.Cause(ctx))
		}
		if mon != nil {
			mon.Sample(s.bytesOut)
		}

		n, err := s.src.Read(s.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			if s.endOfMedia != nil && s.endOfMedia(err) {
				s.log.Debug().Err(err).Int64("bytes", s.bytesIn).Msg("end of readable media")
				return nil
			}
			return newError(KindRead, "Error reading from file", err)
		}
		if n == 0 {
			return nil
		}
		s.bytesIn += int64(n)

		w, err := s.dst.Write(s.buf[:n])
		s.bytesOut += int64(w)
		if err == nil && w != n {
			err = io.ErrShortWrite
		}
		if err != nil {
			return newError(KindWrite, "Error writing to file", err)
		}
		s.blocks++
	}
}

// Flush commits written data to the destination.
func (s *Session) Flush() error {
	if err := s.dst.Sync(); err != nil {
		return newError(KindWrite, "Error flushing output", err)
	}
	return nil
}
