// Package memremote is an in-process, directory-backed Remote used by
// fstree's own test suite
// to exercise the push/pull pipelines and the remote contract (§4.9)
// without a live socket or HTTP listener. It is not one of spec.md's named
// transports; it is added because the round-trip testable property (§8,
// scenario S5) needs some concrete remote to run against in-process.
package memremote

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fstreehq/fstree/internal/objectstore"
)

// Remote stores objects in a directory tree via internal/objectstore with
// the local cache's sharding, but under the .file extension for every
// object, tree or file, standing in for a real network peer.
type Remote struct {
	mu    sync.RWMutex
	store *objectstore.Store
}

// New creates a memremote backed by root (a scratch directory).
func New(root string) (*Remote, error) {
	store, err := objectstore.Open(root)
	if err != nil {
		return nil, err
	}
	return &Remote{store: store}, nil
}

func (r *Remote) path(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(r.store.ObjectsDir(), hash)
	}
	shard, rest := shardOf(hash)
	return r.store.Path(objectstore.KindFile, shard, rest)
}

// shardOf strips an optional "alg:" prefix before sharding on hex.
func shardOf(hash string) (shard, rest string) {
	hex := hash
	if i := indexColon(hash); i >= 0 {
		hex = hash[i+1:]
	}
	if len(hex) < 2 {
		return "", hex
	}
	return hex[:2], hex[2:]
}

func indexColon(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

func (r *Remote) HasObject(ctx context.Context, hash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := os.Stat(r.path(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (r *Remote) HasObjects(ctx context.Context, hashes []string) ([]bool, error) {
	out := make([]bool, len(hashes))
	for i, h := range hashes {
		ok, err := r.HasObject(ctx, h)
		if err != nil {
			return nil, err
		}
		out[i] = ok
	}
	return out, nil
}

func (r *Remote) WriteObject(ctx context.Context, hash, localPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dest := r.path(hash)
	if _, err := os.Stat(dest); err == nil {
		return nil // already_exists is tolerated silently
	}
	return r.store.CopyFileAtomic(dest, 0o600, localPath)
}

func (r *Remote) ReadObject(ctx context.Context, hash, finalPath, tmpDir string) error {
	r.mu.RLock()
	src := r.path(hash)
	f, err := os.Open(src)
	r.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return err
	}
	defer f.Close()

	tmp, err := os.CreateTemp(tmpDir, "pull-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, f); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	tmp.Close()
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
