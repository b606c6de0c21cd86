package fstree

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fstreehq/fstree/internal/workpool"
)

// WalkResult is the output of a directory walk: a root inode and a flat,
// path-sorted list of every inode beneath it (root excluded).
type WalkResult struct {
	Root  *Inode
	Flat  []*Inode
}

// Walk recursively walks root, applying ignores, and returns a sorted flat
// list plus a root inode, per spec.md §4.5. Parallel recursion goes through
// pool.EnqueueOrRun so a saturated pool never deadlocks on recursive
// fan-out.
func Walk(ctx context.Context, pool *workpool.Pool, root string, ignores *GlobList) (*WalkResult, error) {
	rootInfo, err := os.Lstat(root)
	if err != nil {
		return nil, newError(KindIO, "Walk", root, err)
	}
	rootInode := inodeFromLstat("", "", rootInfo, root)

	var mu sync.Mutex
	var flat []*Inode

	var walkDir func(ctx context.Context, dirPath, relPath string, parent *Inode) error
	walkDir = func(ctx context.Context, dirPath, relPath string, parent *Inode) error {
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			return newError(KindIO, "Walk", dirPath, err)
		}

		var subErrOnce sync.Once
		var subErr error
		var wg sync.WaitGroup

		for _, entry := range entries {
			name := entry.Name()
			if name == "." || name == ".." || name == ".fstree" {
				continue
			}
			childRel := name
			if relPath != "" {
				childRel = relPath + "/" + name
			}
			childAbs := filepath.Join(dirPath, name)

			info, err := os.Lstat(childAbs)
			if err != nil {
				return newError(KindIO, "Walk", childAbs, err)
			}

			isDirIgnored := info.IsDir() && ignores != nil && ignores.Match(childRel)
			if isDirIgnored {
				continue
			}

			child := inodeFromLstat(name, childRel, info, childAbs)

			mu.Lock()
			parent.AddChild(child)
			flat = append(flat, child)
			mu.Unlock()

			if info.IsDir() {
				wg.Add(1)
				pool.EnqueueOrRun(ctx, func(ctx context.Context) error {
					defer wg.Done()
					if err := walkDir(ctx, childAbs, childRel, child); err != nil {
						subErrOnce.Do(func() { subErr = err })
					}
					return nil
				})
			}
		}
		wg.Wait()
		return subErr
	}

	if err := walkDir(ctx, root, "", rootInode); err != nil {
		return nil, err
	}

	sort.SliceStable(flat, func(i, j int) bool { return flat[i].Path < flat[j].Path })

	// Final reverse-order ignore-filtering pass for files (directories were
	// already filtered during descent). An "unignored" ancestor overrides.
	filtered := flat[:0:0]
	for i := len(flat) - 1; i >= 0; i-- {
		n := flat[i]
		if !n.Status.IsDir() && ignores != nil && ignores.Match(n.Path) && !hasUnignoredAncestor(n) {
			n.Ignore()
			continue
		}
		filtered = append(filtered, n)
	}
	// restore ascending order
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	rootInode.Sort()
	for _, n := range filtered {
		if n.Parent != nil {
			n.Parent.Sort()
		}
	}

	return &WalkResult{Root: rootInode, Flat: filtered}, nil
}

func hasUnignoredAncestor(n *Inode) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Unignored() {
			return true
		}
	}
	return false
}

func inodeFromLstat(name, relPath string, info os.FileInfo, absPath string) *Inode {
	mode := info.Mode()
	ftype := fileTypeOf(mode)
	status := NewFileStatus(ftype, mode)
	mtime := info.ModTime().UnixNano()
	size := info.Size()

	var target string
	if ftype == TypeSymlink {
		if t, err := os.Readlink(absPath); err == nil {
			target = t
		}
	}

	n := NewInode(name, relPath, status, mtime, size, target)
	return n
}
