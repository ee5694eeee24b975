package control

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/mrz1836/aegir/internal/errors"
)

const readChunk = 4096

// Channel carries control messages. Receive never blocks and returns the
// complete messages available right now. Send never blocks; a message with
// no reader is dropped with ErrNoListener.
type Channel interface {
	Receive() ([]string, error)
	Send(msg string) error
	Close() error
}

// FIFO is a Channel over two named pipes. The inbound pipe stays open for
// the channel's lifetime; the outbound pipe is opened per write.
type FIFO struct {
	inPath  string
	outPath string

	mu   sync.Mutex
	inFD int
	buf  []byte
}

// OpenFIFO creates both pipes if missing and opens the inbound side.
func OpenFIFO(inPath, outPath string) (*FIFO, error) {
	for _, p := range []string{inPath, outPath} {
		if err := EnsureFIFO(p); err != nil {
			return nil, err
		}
	}

	fd, err := unix.Open(inPath, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrControlChannel, "open %s: %v", inPath, err)
	}
	return &FIFO{
		inPath:  inPath,
		outPath: outPath,
		inFD:    fd,
		buf:     make([]byte, readChunk),
	}, nil
}

// EnsureFIFO creates a named pipe at path unless one already exists.
func EnsureFIFO(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrapf(errors.ErrControlChannel, "create %s: %v", filepath.Dir(path), err)
	}

	var st unix.Stat_t
	err := unix.Stat(path, &st)
	switch {
	case err == nil:
		if st.Mode&unix.S_IFMT != unix.S_IFIFO {
			return errors.Wrapf(errors.ErrControlChannel, "%s exists and is not a named pipe", path)
		}
		return nil
	case stderrors.Is(err, unix.ENOENT):
		if err := unix.Mkfifo(path, 0o600); err != nil && !stderrors.Is(err, unix.EEXIST) {
			return errors.Wrapf(errors.ErrControlChannel, "mkfifo %s: %v", path, err)
		}
		return nil
	default:
		return errors.Wrapf(errors.ErrControlChannel, "stat %s: %v", path, err)
	}
}

// Receive returns the messages written since the last call. Newlines split
// a batch into several messages; whatever follows the last newline is a
// message of its own, so a bare "STOP" from a writer that keeps the pipe open
// is delivered on the next poll.
func (f *FIFO) Receive() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFD < 0 {
		return nil, errors.Wrap(errors.ErrControlChannel, "channel closed")
	}

	var batch []byte
	for {
		n, err := unix.Read(f.inFD, f.buf)
		if err != nil {
			if stderrors.Is(err, unix.EINTR) {
				continue
			}
			if stderrors.Is(err, unix.EAGAIN) {
				break
			}
			return nil, errors.Wrapf(errors.ErrControlChannel, "read %s: %v", f.inPath, err)
		}
		if n == 0 {
			break
		}
		batch = append(batch, f.buf[:n]...)
	}

	return splitMessages(batch), nil
}

func splitMessages(batch []byte) []string {
	var msgs []string
	for _, line := range bytes.Split(batch, []byte{'\n'}) {
		if m := strings.TrimSpace(string(line)); m != "" {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// Send writes msg to the outbound pipe. The message itself never contains a
// newline; the trailing one delimits it for readers that fall behind.
func (f *FIFO) Send(msg string) error {
	return writeLine(f.outPath, msg)
}

// Close releases the inbound pipe. The pipe files are left in place.
func (f *FIFO) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFD < 0 {
		return nil
	}
	err := unix.Close(f.inFD)
	f.inFD = -1
	return err
}

func writeLine(path, msg string) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, unix.ENXIO) {
			return errors.Wrap(errors.ErrNoListener, path)
		}
		return errors.Wrapf(errors.ErrControlChannel, "open %s: %v", path, err)
	}
	defer func() { _ = unix.Close(fd) }()

	if _, err := unix.Write(fd, []byte(msg+"\n")); err != nil {
		if stderrors.Is(err, unix.EAGAIN) || stderrors.Is(err, unix.EPIPE) {
			return errors.Wrap(errors.ErrNoListener, path)
		}
		return errors.Wrapf(errors.ErrControlChannel, "write %s: %v", path, err)
	}
	return nil
}
