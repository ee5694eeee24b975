// Package flock provides advisory file locking for session directories.
//
// A session directory may only be written by one aegir process at a time.
// Acquire takes an exclusive, non-blocking lock on a lock file inside the
// directory and fails immediately when another process holds it:
//
//	lock, err := flock.Acquire(filepath.Join(dir, ".lock"))
//	if err != nil {
//	    // another writer owns the session
//	}
//	defer lock.Release()
package flock
