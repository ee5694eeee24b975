package control

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mrz1836/aegir/internal/constants"
	"github.com/mrz1836/aegir/internal/domain"
	"github.com/mrz1836/aegir/internal/errors"
)

// SendStop asks the routine listening on inPath to stop.
// It returns ErrRoutineNotRunning when nothing holds the pipe open.
func SendStop(inPath string) error {
	err := writeLine(inPath, constants.StopCommand)
	if stderrors.Is(err, errors.ErrNoListener) {
		return errors.Wrapf(errors.ErrRoutineNotRunning, "no reader on %s", inPath)
	}
	if err != nil && isMissing(inPath) {
		return errors.Wrapf(errors.ErrRoutineNotRunning, "%s does not exist", inPath)
	}
	return err
}

// StatusReader follows the status lines of a running routine.
type StatusReader struct {
	path    string
	poll    time.Duration
	fd      int
	pending []byte
	buf     []byte
}

// OpenStatusReader opens the outbound pipe for reading. Opening succeeds
// whether or not a routine is running; Next reports ErrNoStatus if no line
// arrives before its context ends.
func OpenStatusReader(outPath string, poll time.Duration) (*StatusReader, error) {
	if isMissing(outPath) {
		return nil, errors.Wrapf(errors.ErrRoutineNotRunning, "%s does not exist", outPath)
	}
	fd, err := unix.Open(outPath, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrControlChannel, "open %s: %v", outPath, err)
	}
	if poll <= 0 {
		poll = constants.DefaultControlPollInterval
	}
	return &StatusReader{path: outPath, poll: poll, fd: fd, buf: make([]byte, readChunk)}, nil
}

// Next returns the next status line. STOPPING notices between status lines
// are skipped.
func (r *StatusReader) Next(ctx context.Context) (domain.RoutineStatus, error) {
	for {
		line, err := r.nextLine(ctx)
		if err != nil {
			return domain.RoutineStatus{}, err
		}
		if line == constants.StoppingMarker {
			continue
		}
		return ParseStatus(line)
	}
}

func (r *StatusReader) nextLine(ctx context.Context) (string, error) {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		if i := bytes.IndexByte(r.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(r.pending[:i]))
			r.pending = r.pending[i+1:]
			if line != "" {
				return line, nil
			}
			continue
		}

		n, err := unix.Read(r.fd, r.buf)
		switch {
		case err == nil && n > 0:
			r.pending = append(r.pending, r.buf[:n]...)
			continue
		case err != nil && !stderrors.Is(err, unix.EAGAIN) && !stderrors.Is(err, unix.EINTR):
			return "", errors.Wrapf(errors.ErrControlChannel, "read %s: %v", r.path, err)
		}

		// A writer that sent no newline has still sent a whole line.
		if line := strings.TrimSpace(string(r.pending)); line != "" {
			r.pending = nil
			return line, nil
		}
		r.pending = nil

		select {
		case <-ctx.Done():
			return "", errors.Wrapf(errors.ErrNoStatus, "%s: %v", r.path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close releases the pipe.
func (r *StatusReader) Close() error {
	if r.fd < 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = -1
	return err
}

// ReadStatus returns one status line from the routine writing to outPath.
func ReadStatus(ctx context.Context, outPath string) (domain.RoutineStatus, error) {
	r, err := OpenStatusReader(outPath, constants.DefaultControlPollInterval)
	if err != nil {
		return domain.RoutineStatus{}, err
	}
	defer func() { _ = r.Close() }()
	return r.Next(ctx)
}

func isMissing(path string) bool {
	var st unix.Stat_t
	return stderrors.Is(unix.Stat(path, &st), unix.ENOENT)
}
