//go:build unix

package flock

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/mrz1836/aegir/internal/errors"
)

const lockFilePerm = 0o600

// Exclusive acquires an exclusive non-blocking lock on the file descriptor.
// Returns an error if the lock cannot be acquired immediately.
func Exclusive(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB) //nolint:gosec // fd fits in int on supported platforms
}

// Unlock releases the lock on the file descriptor.
func Unlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN) //nolint:gosec // fd fits in int on supported platforms
}

// Lock is a held lock on a file. The zero value is not usable.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) the file at path and locks it.
// It returns ErrSessionLocked when another process holds the lock.
func Acquire(path string) (*Lock, error) {
	return acquire(path, Exclusive)
}

// Wait is like Acquire but blocks until the lock is free.
func Wait(path string) (*Lock, error) {
	return acquire(path, func(fd uintptr) error {
		return unix.Flock(int(fd), unix.LOCK_EX) //nolint:gosec // fd fits in int on supported platforms
	})
}

func acquire(path string, lock func(fd uintptr) error) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm) // #nosec G304 -- path is built from the configured sessions dir
	if err != nil {
		return nil, errors.Wrap(err, "failed to open lock file")
	}
	if err := lock(f.Fd()); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(errors.ErrSessionLocked, "%s: %v", path, err)
	}
	return &Lock{f: f}, nil
}

// Release unlocks and closes the lock file. Calling Release more than once is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := Unlock(l.f.Fd())
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return errors.Wrap(unlockErr, "failed to unlock")
	}
	return closeErr
}
