//go:build !windows

package fstree

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// fileLock is a cross-process exclusive lock backed by flock(2), grounded on
// original_source/src/lock_file_posix.cpp. All object-store mutations
// (add, pull_object, pull_tree, evict) acquire it; read-only presence probes
// on POSIX do not.
//
// flock(2) is associated with the open file description, not the owning
// process: two goroutines in this process calling Flock on the same fd do
// not exclude each other, only distinct processes (or distinct opens) do.
// An in-process mutex pairs with it for the same reason the Windows variant
// pairs LockFileEx with one.
type fileLock struct {
	f      *os.File
	inproc sync.Mutex
}

func openLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, newError(KindLocked, "openLock", path, err)
	}
	return &fileLock{f: f}, nil
}

// Lock blocks until the exclusive lock is acquired and returns a guard
// whose Release call unlocks it — the Go analogue of the original's
// scoped lock_file::context.
func (l *fileLock) Lock() (*lockGuard, error) {
	l.inproc.Lock()
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_EX); err != nil {
		l.inproc.Unlock()
		return nil, newError(KindLocked, "Lock", l.f.Name(), err)
	}
	return &lockGuard{l: l}, nil
}

func (l *fileLock) unlock() error {
	defer l.inproc.Unlock()
	return unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}

func (l *fileLock) Close() error { return l.f.Close() }

// lockGuard releases its lock exactly once.
type lockGuard struct {
	l *fileLock
}

func (g *lockGuard) Release() error { return g.l.unlock() }
