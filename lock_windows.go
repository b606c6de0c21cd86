//go:build windows

package fstree

import (
	"os"
	"sync"

	"golang.org/x/sys/windows"
)

// fileLock on Windows pairs LockFileEx with an in-process mutex, since
// LockFile does not self-exclude within a single process (see
// original_source/src/lock_file.hpp and DESIGN.md's Open Question notes).
type fileLock struct {
	f      *os.File
	handle windows.Handle
	inproc sync.Mutex
}

func openLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, newError(KindLocked, "openLock", path, err)
	}
	return &fileLock{f: f, handle: windows.Handle(f.Fd())}, nil
}

func (l *fileLock) Lock() (*lockGuard, error) {
	l.inproc.Lock()
	ol := new(windows.Overlapped)
	if err := windows.LockFileEx(l.handle, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, ol); err != nil {
		l.inproc.Unlock()
		return nil, newError(KindLocked, "Lock", l.f.Name(), err)
	}
	return &lockGuard{l: l}, nil
}

func (l *fileLock) unlock() error {
	defer l.inproc.Unlock()
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(l.handle, 0, 1, 0, ol)
}

func (l *fileLock) Close() error { return l.f.Close() }

type lockGuard struct {
	l *fileLock
}

func (g *lockGuard) Release() error { return g.l.unlock() }
