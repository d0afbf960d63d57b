package transfer_test

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/sryze/wdd/transfer"
)

var errBadSector = errors.New("sector not found")

type tickClock struct {
	now  uint64
	step uint64
}

func (c *tickClock) Micros() uint64 {
	c.now += c.step
	return c.now
}

type recorder struct {
	shown []string
	final []string
	keeps int
}

func (r *recorder) Show(line string)  { r.shown = append(r.shown, line) }
func (r *recorder) Final(line string) { r.final = append(r.final, line) }
func (r *recorder) Keep()             { r.keeps++ }

type fakeSource struct {
	data    []byte
	pos     int
	reads   int
	failAt  int // 1-based read that returns failErr, 0 for never
	failErr error
	closes  int
}

func (s *fakeSource) Read(p []byte) (int, error) {
	s.reads++
	if s.failAt > 0 && s.reads == s.failAt {
		return 0, s.failErr
	}
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func (s *fakeSource) Close() error {
	s.closes++
	return nil
}

type fakeDest struct {
	src *fakeSource
	buf bytes.Buffer

	sector int
	device bool

	dismountErr error
	lockErr     error
	unlockErr   error
	writeErr    error
	syncErr     error
	short       int // bytes accepted by a failing write

	writes    int
	overdrawn bool
	dismounts int
	locks     int
	unlocks   int
	closes    int
	syncs     int
}

func (d *fakeDest) Write(p []byte) (int, error) {
	d.writes++
	if d.src != nil && d.buf.Len()+len(p) > d.src.pos {
		d.overdrawn = true
	}
	if d.writeErr != nil {
		d.buf.Write(p[:d.short])
		return d.short, d.writeErr
	}
	return d.buf.Write(p)
}

func (d *fakeDest) Sync() error {
	d.syncs++
	return d.syncErr
}

func (d *fakeDest) SectorSize() (int, bool) { return d.sector, d.device }

func (d *fakeDest) Dismount() error {
	d.dismounts++
	return d.dismountErr
}

func (d *fakeDest) Lock() error {
	d.locks++
	return d.lockErr
}

func (d *fakeDest) Unlock() error {
	d.unlocks++
	return d.unlockErr
}

func (d *fakeDest) Close() error {
	d.closes++
	return nil
}

type fakeOpener struct {
	src    *fakeSource
	dst    *fakeDest
	srcErr error
	dstErr error
}

func (o *fakeOpener) OpenSource(string) (io.ReadCloser, error) {
	if o.srcErr != nil {
		return nil, o.srcErr
	}
	return o.src, nil
}

func (o *fakeOpener) OpenDestination(string) (transfer.Destination, error) {
	if o.dstErr != nil {
		return nil, o.dstErr
	}
	return o.dst, nil
}

func (o *fakeOpener) EndOfMedia(err error) bool { return errors.Is(err, errBadSector) }

// fileOpener works on regular files only, like the real opener does for
// paths that are not devices.
type fileOpener struct{}

type fileDest struct{ *os.File }

func (fileDest) SectorSize() (int, bool) { return 0, false }
func (fileDest) Dismount() error         { return nil }
func (fileDest) Lock() error             { return nil }
func (fileDest) Unlock() error           { return nil }

func (fileOpener) OpenSource(path string) (io.ReadCloser, error) { return os.Open(path) }

func (fileOpener) OpenDestination(path string) (transfer.Destination, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return fileDest{f}, nil
}

func (fileOpener) EndOfMedia(error) bool { return false }
