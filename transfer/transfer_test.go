package transfer_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/sryze/wdd/progress"
	"github.com/sryze/wdd/transfer"
)

func options(o transfer.Opener) (transfer.Options, *recorder, *bytes.Buffer) {
	rec := &recorder{}
	stderr := &bytes.Buffer{}
	return transfer.Options{
		Opener:  o,
		Clock:   &tickClock{now: 1000000, step: 100000},
		Display: rec,
		Stderr:  stderr,
	}, rec, stderr
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestBufferSize(t *testing.T) {
	cases := []struct {
		requested int64
		sector    int
		want      int64
	}{
		{0, 0, transfer.DefaultBlockSize},
		{1000, 0, 1000},
		{0, 512, 4096},
		{100, 512, 512},
		{1000, 512, 512},
		{1536, 512, 1536},
		{5000, 4096, 4096},
		{0, 4096, 4096},
		{1, 4096, 4096},
	}
	for _, c := range cases {
		require.Equal(t, c.want, transfer.BufferSize(c.requested, c.sector), "bs=%d sector=%d", c.requested, c.sector)
	}
}

func TestBufferSizeIsSectorMultiple(t *testing.T) {
	for _, sector := range []int{512, 2048, 4096} {
		for requested := int64(0); requested < 20000; requested += 123 {
			got := transfer.BufferSize(requested, sector)
			require.Positive(t, got)
			require.Zero(t, got%int64(sector))
			require.GreaterOrEqual(t, got, int64(sector))
		}
	}
}

func TestOpenDevicePreparesVolume(t *testing.T) {
	dst := &fakeDest{sector: 512, device: true}
	opts, _, _ := options(&fakeOpener{src: &fakeSource{}, dst: dst})

	s, err := transfer.Open(transfer.Request{BlockSize: 1000}, opts)
	require.NoError(t, err)
	require.Equal(t, 1, dst.dismounts)
	require.Equal(t, 1, dst.locks)
	require.True(t, s.Locked())
	require.Equal(t, 512, s.SectorSize())
	require.EqualValues(t, 512, s.BufferSize())

	s.Close()
	s.Close()
	require.Equal(t, 1, dst.unlocks)
	require.Equal(t, 1, dst.closes)
	require.False(t, s.Locked())
}

func TestOpenFileSkipsVolumeSteps(t *testing.T) {
	dst := &fakeDest{}
	opts, _, _ := options(&fakeOpener{src: &fakeSource{}, dst: dst})

	s, err := transfer.Open(transfer.Request{}, opts)
	require.NoError(t, err)
	require.Zero(t, dst.dismounts)
	require.Zero(t, dst.locks)
	require.EqualValues(t, transfer.DefaultBlockSize, s.BufferSize())

	s.Close()
	require.Zero(t, dst.unlocks)
}

func TestOpenErrors(t *testing.T) {
	cause := syscall.ENOENT

	t.Run("source", func(t *testing.T) {
		dst := &fakeDest{}
		opts, _, _ := options(&fakeOpener{srcErr: cause, dst: dst})
		s, err := transfer.Open(transfer.Request{Source: "in.bin"}, opts)
		require.NotNil(t, s)

		var te *transfer.Error
		require.ErrorAs(t, err, &te)
		require.Equal(t, transfer.KindOpen, te.Kind)
		require.Equal(t, "Could not open input file or device in.bin for reading: "+cause.Error(), err.Error())
		require.Zero(t, dst.closes)
	})

	t.Run("dismount", func(t *testing.T) {
		src := &fakeSource{}
		dst := &fakeDest{sector: 512, device: true, dismountErr: syscall.EBUSY}
		opts, _, stderr := options(&fakeOpener{src: src, dst: dst})

		err := transfer.Run(context.Background(), transfer.Request{}, opts)
		var te *transfer.Error
		require.ErrorAs(t, err, &te)
		require.Equal(t, transfer.KindDismount, te.Kind)
		require.Equal(t, "Failed to dismount output volume: "+syscall.EBUSY.Error()+"\n", stderr.String())
		require.Zero(t, dst.locks)
		require.Zero(t, dst.unlocks)
		require.Equal(t, 1, src.closes)
		require.Equal(t, 1, dst.closes)
	})

	t.Run("lock", func(t *testing.T) {
		dst := &fakeDest{sector: 512, device: true, lockErr: syscall.EACCES}
		opts, _, _ := options(&fakeOpener{src: &fakeSource{}, dst: dst})

		err := transfer.Run(context.Background(), transfer.Request{}, opts)
		var te *transfer.Error
		require.ErrorAs(t, err, &te)
		require.Equal(t, transfer.KindLock, te.Kind)
		require.Zero(t, dst.unlocks, "a lock that was never taken is not released")
	})

	t.Run("allocation", func(t *testing.T) {
		dst := &fakeDest{}
		opts, _, _ := options(&fakeOpener{src: &fakeSource{}, dst: dst})

		err := transfer.Run(context.Background(), transfer.Request{BlockSize: transfer.MaxBufferSize + 1}, opts)
		var te *transfer.Error
		require.ErrorAs(t, err, &te)
		require.Equal(t, transfer.KindAllocation, te.Kind)
		require.Contains(t, err.Error(), "Failed to allocate buffer: ")
	})
}

func TestUnopenableDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.bin")
	require.NoError(t, os.WriteFile(src, pattern(100), 0o644))
	opts, rec, stderr := options(fileOpener{})

	err := transfer.Run(context.Background(), transfer.Request{
		Source:      src,
		Destination: filepath.Join(dir, "missing", "dest.bin"),
		Count:       transfer.Unbounded,
		Progress:    true,
	}, opts)

	var exit *transfer.ExitError
	require.ErrorAs(t, err, &exit)
	require.Equal(t, 1, exit.Code)
	var te *transfer.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, transfer.KindOpen, te.Kind)
	require.Contains(t, stderr.String(), "Could not open output file or device ")
	require.Empty(t, rec.shown)
	require.Empty(t, rec.final, "no status when copying never started")
}

func TestCountLimitsBlocks(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.bin")
	dst := filepath.Join(dir, "dest.bin")
	data := pattern(2048)
	require.NoError(t, os.WriteFile(src, data, 0o644))
	opts, rec, _ := options(fileOpener{})

	err := transfer.Run(context.Background(), transfer.Request{
		Source: src, Destination: dst, BlockSize: 512, Count: 3,
	}, opts)
	require.NoError(t, err)
	require.Equal(t, data[:1536], lo.Must(os.ReadFile(dst)))
	require.Len(t, rec.final, 1)
	require.Regexp(t, `^1536 bytes \(1\.5 KB\) copied, `, rec.final[0])
}

func TestDefaultBlockSizeCopiesEverything(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.bin")
	dst := filepath.Join(dir, "dest.bin")
	data := pattern(10000)
	require.NoError(t, os.WriteFile(src, data, 0o644))
	opts, rec, _ := options(fileOpener{})

	err := transfer.Run(context.Background(), transfer.Request{
		Source: src, Destination: dst, Count: transfer.Unbounded,
	}, opts)
	require.NoError(t, err)
	require.Equal(t, data, lo.Must(os.ReadFile(dst)))
	require.Regexp(t, `^10000 bytes \(9\.8 KB\) copied, `, rec.final[0])
}

func TestCopyBlockAccounting(t *testing.T) {
	src := &fakeSource{data: pattern(10000)}
	dst := &fakeDest{src: src}
	opts, _, _ := options(&fakeOpener{src: src, dst: dst})

	s, err := transfer.Open(transfer.Request{}, opts)
	require.NoError(t, err)
	require.NoError(t, s.Copy(context.Background(), transfer.Unbounded, nil))
	defer s.Close()

	// ceil(10000 / 4096)
	require.EqualValues(t, 3, s.Blocks())
	require.EqualValues(t, 10000, s.BytesIn())
	require.EqualValues(t, 10000, s.BytesOut())
	require.Equal(t, 3, dst.writes, "the terminating empty read writes nothing")
	require.False(t, dst.overdrawn)
}

func TestCopyRespectsCount(t *testing.T) {
	for _, count := range []int64{0, 1, 2, 5} {
		src := &fakeSource{data: pattern(100000)}
		dst := &fakeDest{src: src}
		opts, _, _ := options(&fakeOpener{src: src, dst: dst})

		s, err := transfer.Open(transfer.Request{BlockSize: 1024}, opts)
		require.NoError(t, err)
		require.NoError(t, s.Copy(context.Background(), count, nil))
		require.Equal(t, count, s.Blocks())
		require.EqualValues(t, count, src.reads)
		require.EqualValues(t, count*1024, s.BytesOut())
		s.Close()
	}
}

func TestBadSectorEndsNormally(t *testing.T) {
	src := &fakeSource{data: pattern(8192), failAt: 2, failErr: errBadSector}
	dst := &fakeDest{src: src, sector: 512, device: true}
	opts, rec, stderr := options(&fakeOpener{src: src, dst: dst})

	err := transfer.Run(context.Background(), transfer.Request{Count: transfer.Unbounded}, opts)
	require.NoError(t, err)
	require.Empty(t, stderr.String())
	require.Equal(t, 1, dst.writes)
	require.Equal(t, 4096, dst.buf.Len())
	require.Equal(t, 1, dst.syncs)
	require.Equal(t, 1, dst.unlocks)
	require.Equal(t, 1, dst.closes)
	require.Equal(t, 1, src.closes)
	require.Regexp(t, `^4096 bytes \(4\.0 KB\) copied`, rec.final[0])
}

func TestReadErrorIsFatal(t *testing.T) {
	src := &fakeSource{data: pattern(8192), failAt: 2, failErr: syscall.EIO}
	dst := &fakeDest{src: src, sector: 512, device: true}
	opts, rec, stderr := options(&fakeOpener{src: src, dst: dst})

	err := transfer.Run(context.Background(), transfer.Request{Count: transfer.Unbounded}, opts)
	var te *transfer.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, transfer.KindRead, te.Kind)
	require.Equal(t, "Error reading from file: "+syscall.EIO.Error()+"\n", stderr.String())
	require.Len(t, rec.final, 1, "status is printed once copying has started")
	require.Regexp(t, `^4096 bytes `, rec.final[0])
	require.Zero(t, dst.syncs)
	require.Equal(t, 1, dst.unlocks)
	require.Equal(t, 1, dst.closes)
	require.Equal(t, 1, src.closes)
}

func TestWriteErrorCountsPartialBytes(t *testing.T) {
	src := &fakeSource{data: pattern(8192)}
	dst := &fakeDest{src: src, writeErr: syscall.ENOSPC, short: 100}
	opts, rec, _ := options(&fakeOpener{src: src, dst: dst})

	err := transfer.Run(context.Background(), transfer.Request{Count: transfer.Unbounded}, opts)
	var te *transfer.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, transfer.KindWrite, te.Kind)
	require.Equal(t, "Error writing to file: "+syscall.ENOSPC.Error(), err.Error())
	require.Regexp(t, `^100 bytes \(100 bytes\) copied`, rec.final[0])
}

func TestFlushFailure(t *testing.T) {
	src := &fakeSource{data: pattern(10)}
	dst := &fakeDest{src: src, syncErr: syscall.EIO}
	opts, _, stderr := options(&fakeOpener{src: src, dst: dst})

	err := transfer.Run(context.Background(), transfer.Request{Count: transfer.Unbounded}, opts)
	var te *transfer.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, transfer.KindWrite, te.Kind)
	require.Contains(t, stderr.String(), "Error flushing output: ")
	require.Equal(t, 1, dst.closes)
}

func TestUnlockFailureDoesNotMaskError(t *testing.T) {
	src := &fakeSource{data: pattern(8192), failAt: 1, failErr: syscall.EIO}
	dst := &fakeDest{src: src, sector: 512, device: true, unlockErr: syscall.EPERM}
	opts, _, _ := options(&fakeOpener{src: src, dst: dst})

	err := transfer.Run(context.Background(), transfer.Request{Count: transfer.Unbounded}, opts)
	var te *transfer.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, transfer.KindRead, te.Kind)
	require.Equal(t, 1, dst.unlocks)
	require.Equal(t, 1, dst.closes)
}

func TestCancelledContextInterrupts(t *testing.T) {
	src := &fakeSource{data: pattern(8192)}
	dst := &fakeDest{src: src}
	opts, _, stderr := options(&fakeOpener{src: src, dst: dst})

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(errors.New("received interrupt"))

	err := transfer.Run(ctx, transfer.Request{Count: transfer.Unbounded}, opts)
	var te *transfer.Error
	require.ErrorAs(t, err, &te)
	require.Equal(t, transfer.KindInterrupted, te.Kind)
	require.Equal(t, "Interrupted: received interrupt\n", stderr.String())
	require.Zero(t, dst.writes)
	require.Equal(t, 1, dst.closes)
}

func TestProgressLines(t *testing.T) {
	src := &fakeSource{data: pattern(64 * 1024)}
	dst := &fakeDest{src: src}
	opts, rec, _ := options(&fakeOpener{src: src, dst: dst})
	// every clock read advances 0.6 s, so a line is due on most samples
	opts.Clock = &tickClock{step: 600000}

	err := transfer.Run(context.Background(), transfer.Request{BlockSize: 4096, Count: transfer.Unbounded, Progress: true}, opts)
	require.NoError(t, err)
	require.NotEmpty(t, rec.shown)
	for _, line := range rec.shown {
		require.Regexp(t, `^\d+ bytes \(.+\) copied, \d+\.\d s, .+/s$`, line)
	}
	require.Len(t, rec.final, 1)
	require.Regexp(t, `^65536 bytes \(64\.0 KB\) copied`, rec.final[0])
}

// screenLines replays the cursor movements a LineDisplay emits and returns
// the lines a terminal would show.
func screenLines(out string) []string {
	lines := []string{""}
	row, col := 0, 0
	put := func(r rune) {
		line := []rune(lines[row])
		for len(line) <= col {
			line = append(line, ' ')
		}
		line[col] = r
		lines[row] = string(line)
		col++
	}
	for i := 0; i < len(out); i++ {
		switch {
		case strings.HasPrefix(out[i:], "\x1b[1A"):
			if row > 0 {
				row--
			}
			i += len("\x1b[1A") - 1
		case out[i] == '\r':
			col = 0
		case out[i] == '\n':
			row++
			col = 0
			if row == len(lines) {
				lines = append(lines, "")
			}
		default:
			put(rune(out[i]))
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return lines
}

func TestFailureKeepsDiagnosticOnTerminal(t *testing.T) {
	src := &fakeSource{data: pattern(64 * 1024), failAt: 6, failErr: syscall.EIO}
	dst := &fakeDest{src: src}
	var term bytes.Buffer
	opts := transfer.Options{
		Opener:  &fakeOpener{src: src, dst: dst},
		Clock:   &tickClock{step: 600000},
		Display: progress.NewWriterDisplay(&term, true),
		Stderr:  &term,
	}

	err := transfer.Run(context.Background(), transfer.Request{BlockSize: 4096, Count: transfer.Unbounded, Progress: true}, opts)
	require.Error(t, err)

	lines := screenLines(term.String())
	require.Len(t, lines, 4, "%q", lines)
	require.Regexp(t, `^\d+ bytes \(.+\) copied, `, lines[0])
	require.Equal(t, "Error reading from file: "+syscall.EIO.Error(), lines[1])
	require.Regexp(t, `^20480 bytes \(20\.0 KB\) copied, `, lines[2])
	require.Empty(t, lines[3])
}

func TestFailKeepsProgressLine(t *testing.T) {
	src := &fakeSource{data: pattern(8192), failAt: 2, failErr: syscall.EIO}
	dst := &fakeDest{src: src}
	opts, rec, _ := options(&fakeOpener{src: src, dst: dst})

	require.Error(t, transfer.Run(context.Background(), transfer.Request{Count: transfer.Unbounded}, opts))
	require.Equal(t, 1, rec.keeps)
}

func TestReason(t *testing.T) {
	require.Equal(t, syscall.ENOENT.Error(), transfer.Reason(&os.PathError{Op: "open", Path: "x", Err: syscall.ENOENT}))
	require.Equal(t, "plain", transfer.Reason(errors.New("plain")))
	require.Equal(t, syscall.EIO.Error(), transfer.Reason(os.NewSyscallError("ioctl", syscall.EIO)))
}
