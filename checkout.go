package fstree

import (
	"os"
	"path/filepath"
	"sort"
)

// ObjectPather resolves a digest to the local cache path of its payload,
// used by checkout to copy cached file contents into place.
type ObjectPather interface {
	FilePath(Digest) string
}

// Checkout mutates dest so its subtree matches idx, with minimal filesystem
// churn (§4.6.3): dest is walked and two-pointer merged against the index.
func (idx *Index) Checkout(store ObjectPather, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return newError(KindIO, "Checkout", dest, err)
	}

	destInodes, err := walkPlain(dest)
	if err != nil {
		return err
	}
	sort.Slice(destInodes, func(i, j int) bool { return destInodes[i].Path < destInodes[j].Path })

	i, j := 0, 0
	for i < len(destInodes) || j < len(idx.Inodes) {
		switch {
		case j >= len(idx.Inodes) || (i < len(destInodes) && destInodes[i].Path < idx.Inodes[j].Path):
			// tree-only: remove.
			d := destInodes[i]
			if weaklyCanonicalParent(dest, d.Path) {
				if err := os.RemoveAll(filepath.Join(dest, d.Path)); err != nil {
					return newError(KindIO, "Checkout", d.Path, err)
				}
			}
			i = skipSubtree(destInodes, i)
		case i >= len(destInodes) || idx.Inodes[j].Path < destInodes[i].Path:
			// index-only: materialize.
			if err := idx.materialize(store, dest, idx.Inodes[j]); err != nil {
				return err
			}
			j++
		default:
			d, n := destInodes[i], idx.Inodes[j]
			if err := idx.reconcileEqual(store, dest, d, n); err != nil {
				return err
			}
			i++
			j++
		}
	}
	return nil
}

func (idx *Index) reconcileEqual(store ObjectPather, dest string, d, n *Inode) error {
	full := filepath.Join(dest, n.Path)

	if d.Status.Type() != n.Status.Type() {
		if d.Status.IsDir() {
			if err := os.RemoveAll(full); err != nil {
				return newError(KindIO, "Checkout", n.Path, err)
			}
		} else if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return newError(KindIO, "Checkout", n.Path, err)
		}
		return idx.materialize(store, dest, n)
	}

	switch n.Status.Type() {
	case TypeSymlink:
		if d.Target != n.Target {
			os.Remove(full)
			return idx.materialize(store, dest, n)
		}
		if d.Status.Perm() != n.Status.Perm() {
			_ = os.Chmod(full, n.Status.Perm())
		}
	case TypeDirectory:
		if d.Status.Perm() != n.Status.Perm() {
			if err := os.Chmod(full, n.Status.Perm()); err != nil {
				return newError(KindIO, "Checkout", n.Path, err)
			}
		}
	default: // regular file
		if d.Mtime != n.Mtime {
			return idx.materialize(store, dest, n)
		}
		if d.Status.Perm() != n.Status.Perm() {
			if err := os.Chmod(full, n.Status.Perm()); err != nil {
				return newError(KindIO, "Checkout", n.Path, err)
			}
		}
	}
	return nil
}

// materialize creates n at dest/n.Path from scratch, then lstats the result
// back into n (mtime, status) per §4.6.3.
func (idx *Index) materialize(store ObjectPather, dest string, n *Inode) error {
	full := filepath.Join(dest, n.Path)
	os.RemoveAll(full)

	switch n.Status.Type() {
	case TypeDirectory:
		if err := os.MkdirAll(full, n.Status.Perm()); err != nil {
			return newError(KindIO, "Checkout", n.Path, err)
		}
	case TypeSymlink:
		if err := os.Symlink(n.Target, full); err != nil {
			return newError(KindIO, "Checkout", n.Path, err)
		}
	default: // regular
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return newError(KindIO, "Checkout", n.Path, err)
		}
		src := store.FilePath(n.digest)
		data, err := os.ReadFile(src)
		if err != nil {
			return newError(KindIO, "Checkout", n.Path, err)
		}
		if err := os.WriteFile(full, data, n.Status.Perm()); err != nil {
			return newError(KindIO, "Checkout", n.Path, err)
		}
		if err := os.Chmod(full, n.Status.Perm()); err != nil {
			return newError(KindIO, "Checkout", n.Path, err)
		}
	}

	info, err := os.Lstat(full)
	if err != nil {
		return newError(KindIO, "Checkout", n.Path, err)
	}
	n.Mtime = info.ModTime().UnixNano()
	n.Status = NewFileStatus(n.Status.Type(), info.Mode())
	return nil
}

// weaklyCanonicalParent guards against removing a path whose parent has
// become a symlink to somewhere else since the destination was walked.
func weaklyCanonicalParent(dest, relPath string) bool {
	parent := filepath.Dir(relPath)
	if parent == "." {
		return true
	}
	full := filepath.Join(dest, parent)
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		return false
	}
	expected, err := filepath.Abs(full)
	if err != nil {
		return false
	}
	return resolved == expected
}

// skipSubtree advances past every entry whose path is inside destInodes[i]'s
// subtree (used when a tree-only directory is removed wholesale).
func skipSubtree(destInodes []*Inode, i int) int {
	prefix := destInodes[i].Path + "/"
	i++
	for i < len(destInodes) && hasPrefixPath(destInodes[i].Path, prefix) {
		i++
	}
	return i
}

func hasPrefixPath(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}

// walkPlain lists dest's current contents in depth-first directory-read
// order (callers sort the result), without applying any ignore rules — checkout reconciles against everything actually on
// disk.
func walkPlain(dest string) ([]*Inode, error) {
	var out []*Inode
	var rec func(dir, rel string) error
	rec = func(dir, rel string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return newError(KindIO, "Checkout", dir, err)
		}
		for _, e := range entries {
			name := e.Name()
			if name == "." || name == ".." || name == ".fstree" {
				continue
			}
			childRel := name
			if rel != "" {
				childRel = rel + "/" + name
			}
			childAbs := filepath.Join(dir, name)
			info, err := os.Lstat(childAbs)
			if err != nil {
				return newError(KindIO, "Checkout", childAbs, err)
			}
			n := inodeFromLstat(name, childRel, info, childAbs)
			out = append(out, n)
			if info.IsDir() {
				if err := rec(childAbs, childRel); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := rec(dest, ""); err != nil {
		return nil, err
	}
	return out, nil
}
