// Package objectstore implements the on-disk, content-addressed object
// layout described by fstree's cache: objects sharded by the first two hex
// characters of their digest, written atomically via a temp-file rename,
// and read back with a "touch" that updates the object's mtime so eviction
// can use it as an access-time proxy.
//
// Grounded on aweris-cafs/internal/store/local.go's LocalStore, generalized
// from a single blob kind to the two kinds (file, tree) fstree's cache
// needs, and its sharding/rename discipline brought in line with the
// original C++ cache's create_file/create_dirtree pattern.
package objectstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Kind distinguishes file objects from tree objects; they share a shard
// layout but carry different extensions.
type Kind int

const (
	KindFile Kind = iota
	KindTree
)

func (k Kind) ext() string {
	if k == KindTree {
		return ".tree"
	}
	return ".file"
}

// Store is the sharded on-disk object store rooted at a cache directory.
type Store struct {
	root string // <cache_root>/objects
	tmp  string // <cache_root>/tmp
}

// Open ensures the objects/ and tmp/ directories exist under root and
// returns a Store rooted there.
func Open(root string) (*Store, error) {
	objects := filepath.Join(root, "objects")
	tmp := filepath.Join(root, "tmp")
	for _, dir := range []string{objects, tmp} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("objectstore: create %s: %w", dir, err)
		}
	}
	return &Store{root: objects, tmp: tmp}, nil
}

// Path returns the final on-disk path for an object, given its shard (first
// two hex chars) and the remaining hex.
func (s *Store) Path(kind Kind, shard, rest string) string {
	if shard == "" {
		return filepath.Join(s.root, rest+kind.ext())
	}
	return filepath.Join(s.root, shard, rest+kind.ext())
}

// ShardDir returns the directory for one shard.
func (s *Store) ShardDir(shard string) string {
	return filepath.Join(s.root, shard)
}

// ObjectsDir returns the root objects directory (used to enumerate shards).
func (s *Store) ObjectsDir() string { return s.root }

// LockPath returns the path to the cross-process lock file.
func (s *Store) LockPath() string { return filepath.Join(s.root, "lock") }

// Touch opens path (failing if absent) and bumps its mtime, the only
// sanctioned way to test local presence: a pure stat would not refresh the
// access-time signal eviction depends on.
func Touch(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return true, err
	}
	return true, nil
}

// WriteAtomic streams r into a unique temp file under the store's tmp dir,
// then renames it into dest if dest does not already exist. If dest already
// exists the temp file is discarded; this matches the "only one writer wins"
// idempotent-add semantics the cache relies on.
func (s *Store) WriteAtomic(dest string, perm os.FileMode, r io.Reader) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	tmpPath, err := s.tempName()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if _, err := os.Stat(dest); err == nil {
		os.Remove(tmpPath)
		return nil
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// CopyFileAtomic copies srcPath's bytes into dest via the same
// temp-then-rename discipline as WriteAtomic.
func (s *Store) CopyFileAtomic(dest string, perm os.FileMode, srcPath string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	return s.WriteAtomic(dest, perm, src)
}

func (s *Store) tempName() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return filepath.Join(s.tmp, hex.EncodeToString(buf[:])), nil
}

// TempPath returns a fresh unique path under the store's tmp dir without
// creating it, for callers (like remote pulls) that stream into the file
// themselves before renaming.
func (s *Store) TempPath() (string, error) { return s.tempName() }

// TmpDir returns the scratch directory for atomic renames.
func (s *Store) TmpDir() string { return s.tmp }
