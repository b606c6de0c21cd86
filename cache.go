package fstree

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fstreehq/fstree/internal/objectstore"
	"github.com/fstreehq/fstree/internal/workpool"
)

const maxSizeShards = 256

// Cache is the content-addressed object store: tree serialization, add,
// push, pull, index_from_tree, and evict, grounded on
// original_source/src/cache.hpp/cache.cpp.
type Cache struct {
	opts  Options
	store *objectstore.Store
	lock  *fileLock
	pool  *workpool.Pool
	events *eventSink
}

// OpenCache opens (creating if absent) a cache at opts.CacheRoot.
func OpenCache(ctx context.Context, opts ...Option) (*Cache, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.MaxSize == 0 {
		o.MaxSize = defaultMaxSize
	}

	store, err := objectstore.Open(o.CacheRoot)
	if err != nil {
		return nil, newError(KindIO, "OpenCache", o.CacheRoot, err)
	}
	lock, err := openLock(store.LockPath())
	if err != nil {
		return nil, err
	}

	return &Cache{
		opts:   o,
		store:  store,
		lock:   lock,
		pool:   workpool.New(ctx, o.Threads),
		events: newEventSink(o.EventsOn, o.EventWriter),
	}, nil
}

func (c *Cache) Close() error { return c.lock.Close() }

func (c *Cache) maxSizeSlice() int64 { return c.opts.MaxSize >> 8 }

// FilePath implements ObjectPather for Index.Checkout.
func (c *Cache) FilePath(d Digest) string {
	return c.store.Path(objectstore.KindFile, d.Shard(), d.Rest())
}

func (c *Cache) treePath(d Digest) string {
	return c.store.Path(objectstore.KindTree, d.Shard(), d.Rest())
}

// HasObject probes local presence by touching the file (never a pure stat),
// per §4.7.5.
func (c *Cache) HasObject(d Digest) (bool, error) {
	return objectstore.Touch(c.FilePath(d))
}

// HasTree probes local presence of a tree object the same way.
func (c *Cache) HasTree(d Digest) (bool, error) {
	return objectstore.Touch(c.treePath(d))
}

// Add ingests idx into the object store (§4.7.1): dirty files are rehashed
// and copied in parallel; dirty or absent directories are serialized
// bottom-up afterward.
func (c *Cache) Add(ctx context.Context, idx *Index) error {
	var dirtyDirs []*Inode
	var mu sync.Mutex

	var firstErr error
	var errOnce sync.Once
	var fileWG sync.WaitGroup

	for _, n := range idx.Inodes {
		n := n
		switch n.Status.Type() {
		case TypeDirectory:
			present, _ := c.HasTree(n.digest)
			if n.Dirty() || !present {
				mu.Lock()
				dirtyDirs = append(dirtyDirs, n)
				mu.Unlock()
			}
		case TypeRegular:
			fileWG.Add(1)
			c.pool.EnqueueOrRun(ctx, func(ctx context.Context) error {
				defer fileWG.Done()
				if err := c.ingestFile(idx, n); err != nil {
					errOnce.Do(func() { firstErr = err })
				}
				return nil
			})
		case TypeSymlink:
			// contributes no object; identity lives in the parent tree.
		}
	}
	fileWG.Wait()
	if firstErr != nil {
		return firstErr
	}

	// bottom-up: reverse encounter order (idx.Inodes is walk order), then root.
	for i := len(dirtyDirs) - 1; i >= 0; i-- {
		if err := c.createDirtree(dirtyDirs[i]); err != nil {
			return err
		}
	}
	return c.createDirtree(idx.Root)
}

func (c *Cache) ingestFile(idx *Index, n *Inode) error {
	if n.Dirty() {
		if err := n.Rehash(idx.Algorithm, idx.RootPath); err != nil {
			return err
		}
	}
	guard, err := c.lock.Lock()
	if err != nil {
		return err
	}
	defer guard.Release()

	dest := c.FilePath(n.digest)
	if err := c.store.CopyFileAtomic(dest, 0o600, filepath.Join(idx.RootPath, n.Path)); err != nil {
		return newError(KindIO, "Cache.Add", n.Path, err)
	}
	c.events.emit("add", n.Path, "")
	return nil
}

// createDirtree serializes n's children into a tree object and stores it,
// per §4.7.1's create_dirtree.
func (c *Cache) createDirtree(n *Inode) error {
	n.Sort()

	tmpPath, err := c.store.TempPath()
	if err != nil {
		return newError(KindIO, "Cache.Add", n.Path, err)
	}
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return newError(KindIO, "Cache.Add", n.Path, err)
	}
	if err := n.MarshalTree(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return newError(KindIO, "Cache.Add", n.Path, err)
	}
	f.Close()

	d, err := DigestFile(c.treeAlgorithm(), tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	n.SetDigest(d)

	guard, err := c.lock.Lock()
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	defer guard.Release()

	dest := c.treePath(d)
	if _, err := os.Stat(dest); err == nil {
		os.Remove(tmpPath)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		os.Remove(tmpPath)
		return newError(KindIO, "Cache.Add", n.Path, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		if !os.IsExist(err) {
			return newError(KindIO, "Cache.Add", n.Path, err)
		}
	}
	c.events.emit("add-tree", n.Path, "")
	return nil
}

// treeAlgorithm returns the cache's configured algorithm, which tree
// objects are hashed with since they carry no algorithm field of their own.
func (c *Cache) treeAlgorithm() Algorithm {
	return c.opts.Algorithm
}

// indexFromTreeLocal inflates idx breadth-first from a root tree hash, fetching
// tree objects from the local store only (§4.7.2); remote fetch is Pull's
// job.
func (idx *Index) indexFromTreeLocal(store *Cache, treeHash Digest) error {
	idx.Root = &Inode{Status: NewFileStatus(TypeDirectory, 0o755)}
	idx.Root.SetDigest(treeHash)

	var mu sync.Mutex
	var inodes []*Inode

	frontier := []*Inode{idx.Root}
	for len(frontier) > 0 {
		var next []*Inode
		var wg sync.WaitGroup
		var firstErr error
		var errOnce sync.Once

		for _, dir := range frontier {
			dir := dir
			wg.Add(1)
			go func() {
				defer wg.Done()
				f, err := os.Open(store.treePath(dir.digest))
				if err != nil {
					errOnce.Do(func() { firstErr = newError(KindIO, "IndexFromTree", dir.Path, err) })
					return
				}
				defer f.Close()
				if err := dir.UnmarshalTree(f); err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
				mu.Lock()
				for _, c := range dir.Children {
					inodes = append(inodes, c)
					if c.Status.IsDir() {
						next = append(next, c)
					}
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
		if firstErr != nil {
			return firstErr
		}
		frontier = next
	}

	sort.Slice(inodes, func(i, j int) bool { return inodes[i].Path < inodes[j].Path })
	idx.Inodes = inodes
	return nil
}

// IndexFromTree is the exported entry point for §4.7.2, usable once the
// relevant tree objects are locally present (after a Pull, or locally
// produced by Add).
func (c *Cache) IndexFromTree(treeHash Digest, rootPath string, alg Algorithm) (*Index, error) {
	idx := NewIndex(rootPath, alg)
	if err := idx.indexFromTreeLocal(c, treeHash); err != nil {
		return nil, err
	}
	return idx, nil
}

// ListTree inflates a single tree object and returns its direct children,
// for the ls-tree inspection verb (§4.12/§5).
func (c *Cache) ListTree(d Digest) ([]*Inode, error) {
	f, err := os.Open(c.treePath(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(KindNotFound, "ListTree", d.String(), err)
		}
		return nil, newError(KindIO, "ListTree", d.String(), err)
	}
	defer f.Close()

	root := &Inode{Status: NewFileStatus(TypeDirectory, 0o755)}
	root.SetDigest(d)
	if err := root.UnmarshalTree(f); err != nil {
		return nil, err
	}
	return root.Children, nil
}

// Push uploads idx's tree, depth-first with a has-tree optimization
// (§4.7.3).
func (c *Cache) Push(ctx context.Context, idx *Index, remote Remote) error {
	work := []Digest{idx.Root.Digest()}
	tc, hasTreeCap := remote.(TreeCapableRemote)

	for len(work) > 0 {
		h := work[len(work)-1]
		work = work[:len(work)-1]

		var missingTrees, missingObjects []Digest
		fellBack := false
		if hasTreeCap {
			mt, mo, err := tc.HasTree(ctx, h)
			if err != nil {
				if IsKind(err, KindUnsupported) {
					fellBack = true
				} else {
					return err
				}
			} else {
				missingTrees, missingObjects = mt, mo
			}
		} else {
			fellBack = true
		}

		if fellBack {
			missingObjects = nil
			for _, n := range idx.Inodes {
				if n.Status.IsRegular() {
					present, err := remote.HasObject(ctx, n.digest)
					if err != nil {
						return err
					}
					if !present {
						missingObjects = append(missingObjects, n.digest)
					}
				}
			}

			// Without has_tree, the remote can't tell us which tree objects
			// it already has, so probe the popped hash and every directory
			// inode in the index ourselves (original_source/src/cache.cpp's
			// check_trees fallback does the same).
			missingTrees = nil
			seen := map[string]bool{}
			probeTree := func(d Digest) error {
				if seen[d.String()] {
					return nil
				}
				seen[d.String()] = true
				present, err := remote.HasObject(ctx, d)
				if err != nil {
					return err
				}
				if !present {
					missingTrees = append(missingTrees, d)
				}
				return nil
			}
			if err := probeTree(h); err != nil {
				return err
			}
			if err := probeTree(idx.Root.Digest()); err != nil {
				return err
			}
			for _, n := range idx.Inodes {
				if n.Status.IsDir() {
					if err := probeTree(n.digest); err != nil {
						return err
					}
				}
			}
		}

		var wg sync.WaitGroup
		var firstErr error
		var errOnce sync.Once
		var workMu sync.Mutex

		for _, o := range missingObjects {
			o := o
			wg.Add(1)
			c.pool.EnqueueOrRun(ctx, func(ctx context.Context) error {
				defer wg.Done()
				if err := remote.WriteObject(ctx, o, c.FilePath(o)); err != nil {
					errOnce.Do(func() { firstErr = err })
				}
				return nil
			})
		}
		for _, t := range missingTrees {
			t := t
			wg.Add(1)
			c.pool.EnqueueOrRun(ctx, func(ctx context.Context) error {
				defer wg.Done()
				if err := remote.WriteObject(ctx, t, c.treePath(t)); err != nil {
					errOnce.Do(func() { firstErr = err })
					return nil
				}
				workMu.Lock()
				work = append(work, t)
				workMu.Unlock()
				return nil
			})
		}
		wg.Wait()
		if firstErr != nil {
			return firstErr
		}
	}
	c.events.emit("push", idx.RootPath, "")
	return nil
}

// Pull fetches treeHash breadth-first from remote into the local store and
// populates idx (§4.7.4).
func (c *Cache) Pull(ctx context.Context, idx *Index, remote Remote, treeHash Digest) error {
	idx.Root = &Inode{Status: NewFileStatus(TypeDirectory, 0o755)}
	idx.Root.SetDigest(treeHash)

	var mu sync.Mutex
	var inodes []*Inode

	frontier := []*Inode{idx.Root}
	for len(frontier) > 0 {
		if err := c.pullWave(ctx, remote, frontier); err != nil {
			return err
		}

		var next []*Inode
		var objectWG sync.WaitGroup
		var firstErr error
		var errOnce sync.Once

		for _, dir := range frontier {
			f, err := os.Open(c.treePath(dir.digest))
			if err != nil {
				return newError(KindIO, "Pull", dir.Path, err)
			}
			err = dir.UnmarshalTree(f)
			f.Close()
			if err != nil {
				return err
			}

			mu.Lock()
			for _, child := range dir.Children {
				inodes = append(inodes, child)
				if child.Status.IsDir() {
					next = append(next, child)
				}
			}
			mu.Unlock()

			for _, child := range dir.Children {
				if child.Status.IsDir() || child.Status.IsSymlink() {
					continue
				}
				child := child
				objectWG.Add(1)
				c.pool.EnqueueOrRun(ctx, func(ctx context.Context) error {
					defer objectWG.Done()
					if err := c.pullObject(ctx, remote, child.digest); err != nil {
						errOnce.Do(func() { firstErr = err })
					}
					return nil
				})
			}
		}
		objectWG.Wait()
		if firstErr != nil {
			return firstErr
		}
		frontier = next
	}

	sort.Slice(inodes, func(i, j int) bool { return inodes[i].Path < inodes[j].Path })
	idx.Inodes = inodes
	c.events.emit("pull", idx.RootPath, "")
	return nil
}

func (c *Cache) pullWave(ctx context.Context, remote Remote, frontier []*Inode) error {
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once
	for _, dir := range frontier {
		dir := dir
		wg.Add(1)
		c.pool.EnqueueOrRun(ctx, func(ctx context.Context) error {
			defer wg.Done()
			if err := c.pullTree(ctx, remote, dir.digest); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
			return nil
		})
	}
	wg.Wait()
	return firstErr
}

// pullTree fetches one tree object under the cross-process lock, unless
// already locally present (§4.7.6).
func (c *Cache) pullTree(ctx context.Context, remote Remote, d Digest) error {
	return c.pullInto(ctx, remote, d, c.treePath(d))
}

// pullObject fetches a single file object under the cross-process lock if
// not already locally present, per §4.7.6.
func (c *Cache) pullObject(ctx context.Context, remote Remote, d Digest) error {
	return c.pullInto(ctx, remote, d, c.FilePath(d))
}

func (c *Cache) pullInto(ctx context.Context, remote Remote, d Digest, dest string) error {
	if present, err := objectstore.Touch(dest); err != nil {
		return newError(KindIO, "Pull", d.String(), err)
	} else if present {
		return nil
	}
	guard, err := c.lock.Lock()
	if err != nil {
		return err
	}
	defer guard.Release()

	if present, _ := objectstore.Touch(dest); present {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return newError(KindIO, "Pull", d.String(), err)
	}
	return remote.ReadObject(ctx, d, dest, c.store.TmpDir())
}

// Evict sweeps every shard, removing the oldest objects until each shard's
// size is at or below maxSizeSlice, honoring retention (§4.7.7).
func (c *Cache) Evict(ctx context.Context) error {
	entries, err := os.ReadDir(c.store.ObjectsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return newError(KindIO, "Evict", c.store.ObjectsDir(), err)
	}

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		shard := e.Name()
		wg.Add(1)
		c.pool.EnqueueOrRun(ctx, func(ctx context.Context) error {
			defer wg.Done()
			if err := c.evictShard(shard); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
			return nil
		})
	}
	wg.Wait()
	return firstErr
}

type shardEntry struct {
	path  string
	mtime int64
	size  int64
}

func (c *Cache) evictShard(shard string) error {
	dir := c.store.ShardDir(shard)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	items := make([]shardEntry, 0, len(entries))
	var total int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, shardEntry{
			path:  filepath.Join(dir, e.Name()),
			mtime: info.ModTime().UnixNano(),
			size:  info.Size(),
		})
		total += info.Size()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mtime < items[j].mtime })

	now := nowNanos()
	retentionNanos := c.opts.Retention * 1_000_000_000
	for _, it := range items {
		if total <= c.maxSizeSlice() {
			break
		}
		guard, err := c.lock.Lock()
		if err != nil {
			return err
		}
		info, err := os.Lstat(it.path)
		if err != nil {
			guard.Release()
			continue // concurrently removed; tolerate.
		}
		if info.ModTime().UnixNano()+retentionNanos > now {
			guard.Release()
			continue
		}
		if err := os.Remove(it.path); err == nil {
			total -= it.size
			c.events.emitValue("evict", it.path, float64(it.size))
		}
		guard.Release()
	}
	return nil
}
