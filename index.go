package fstree

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fstreehq/fstree/internal/workpool"
)

const (
	indexMagic   uint16 = 0x3ee3
	indexVersion uint16 = 1
)

// Index is the ordered, path-sorted representation of a directory snapshot:
// a root path, a root inode (directory sentinel), a flat inode list, and the
// ignore rules used to build it. Grounded on
// original_source/src/index.hpp/index.cpp.
type Index struct {
	RootPath string
	Root     *Inode
	Inodes   []*Inode // strictly ascending by Path
	Ignores  *GlobList

	Algorithm Algorithm
}

// NewIndex returns an empty index rooted at rootPath.
func NewIndex(rootPath string, alg Algorithm) *Index {
	return &Index{
		RootPath:  rootPath,
		Root:      &Inode{Status: NewFileStatus(TypeDirectory, 0o755)},
		Ignores:   NewGlobList(),
		Algorithm: alg,
	}
}

// Save writes the index file format (spec.md §6.2) to w.
func (idx *Index) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, indexMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, indexVersion); err != nil {
		return err
	}
	for _, n := range idx.Inodes {
		if err := writeLenPrefixed(bw, []byte(n.Path)); err != nil {
			return err
		}
		if err := writeLenPrefixed(bw, []byte(n.digest.String())); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(n.Status)); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, n.Mtime); err != nil {
			return err
		}
		if n.Status.IsSymlink() {
			if err := writeLenPrefixed(bw, []byte(n.Target)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Load reads an index file (spec.md §6.2) from r, replacing idx.Inodes.
func (idx *Index) Load(r io.Reader) error {
	br := bufio.NewReader(r)
	var magic, version uint16
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		if err == io.EOF {
			idx.Inodes = nil
			return nil
		}
		return newError(KindCorrupt, "Index.Load", "", err)
	}
	if magic != indexMagic {
		return wrapf(KindCorrupt, "Index.Load", "", "bad magic %#x", magic)
	}
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return newError(KindCorrupt, "Index.Load", "", err)
	}
	if version != indexVersion {
		return wrapf(KindCorrupt, "Index.Load", "", "unsupported version %d", version)
	}

	var inodes []*Inode
	byPath := map[string]*Inode{}
	for {
		pathBytes, err := readLenPrefixed(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return newError(KindCorrupt, "Index.Load", "", err)
		}
		hashBytes, err := readLenPrefixed(br)
		if err != nil {
			return newError(KindCorrupt, "Index.Load", "", err)
		}
		var statusBits uint32
		if err := binary.Read(br, binary.LittleEndian, &statusBits); err != nil {
			return newError(KindCorrupt, "Index.Load", "", err)
		}
		var mtime int64
		if err := binary.Read(br, binary.LittleEndian, &mtime); err != nil {
			return newError(KindCorrupt, "Index.Load", "", err)
		}
		status := FileStatus(statusBits)
		var target string
		if status.IsSymlink() {
			t, err := readLenPrefixed(br)
			if err != nil {
				return newError(KindCorrupt, "Index.Load", "", err)
			}
			target = string(t)
		}
		digest, err := ParseDigest(string(hashBytes))
		if err != nil {
			return err
		}

		p := string(pathBytes)
		n := &Inode{
			Name:   filepath.Base(p),
			Path:   p,
			Status: status,
			Mtime:  mtime,
			Target: target,
			digest: digest,
		}
		inodes = append(inodes, n)
		byPath[p] = n
	}

	linkParents(idx.Root, inodes, byPath)
	idx.Inodes = inodes
	return nil
}

// linkParents reattaches the flat inode list to the directory tree rooted
// at root, by splitting each path on its last slash.
func linkParents(root *Inode, inodes []*Inode, byPath map[string]*Inode) {
	for _, n := range inodes {
		dir := filepath.Dir(n.Path)
		if dir == "." || dir == "/" {
			root.AddChild(n)
			continue
		}
		if p, ok := byPath[dir]; ok {
			p.AddChild(n)
		} else {
			root.AddChild(n)
		}
	}
	root.Sort()
	for _, n := range inodes {
		n.Sort()
	}
}

// Refresh replaces the in-memory list with a fresh walk of RootPath,
// preserving hashes where metadata proves the file unchanged (§4.6.2).
func (idx *Index) Refresh(ctx context.Context, pool *workpool.Pool) error {
	result, err := Walk(ctx, pool, idx.RootPath, idx.Ignores)
	if err != nil {
		return err
	}

	walked := result.Flat
	old := idx.Inodes

	merged := make([]*Inode, 0, len(walked))
	i, j := 0, 0
	for i < len(walked) && j < len(old) {
		w, o := walked[i], old[j]
		switch {
		case w.Path < o.Path:
			w.SetDirty()
			merged = append(merged, w)
			i++
		case w.Path > o.Path:
			j++
		default:
			if o.digest.Algorithm() == idx.Algorithm && !o.digest.Empty() && o.IsEquivalent(w) {
				w.SetDigest(o.digest)
			} else {
				w.SetDirty()
			}
			merged = append(merged, w)
			i++
			j++
		}
	}
	for ; i < len(walked); i++ {
		walked[i].SetDirty()
		merged = append(merged, walked[i])
	}

	idx.Inodes = merged
	idx.Root = result.Root
	return nil
}

// FindNodeByPath binary-searches the sorted inode list for an exact path
// match (§4.6.5).
func (idx *Index) FindNodeByPath(path string) *Inode {
	i := sort.Search(len(idx.Inodes), func(i int) bool { return idx.Inodes[i].Path >= path })
	if i < len(idx.Inodes) && idx.Inodes[i].Path == path {
		return idx.Inodes[i]
	}
	return nil
}

// CopyMetadata two-pointer merges other into idx by path: when both sides
// name the same path with equal digests, idx's mtime is copied from other,
// avoiding an unnecessary overwrite when checkout later compares mtimes
// (§4.6.4).
func (idx *Index) CopyMetadata(other *Index) {
	i, j := 0, 0
	for i < len(idx.Inodes) && j < len(other.Inodes) {
		a, b := idx.Inodes[i], other.Inodes[j]
		switch {
		case a.Path < b.Path:
			i++
		case a.Path > b.Path:
			j++
		default:
			if a.digest.Equal(b.digest) {
				a.Mtime = b.Mtime
			}
			i++
			j++
		}
	}
}

// LoadIgnoreFromIndex implements §4.6.6: if an inode at ignorePath exists
// and is a regular file, its cached object contents are loaded as glob
// patterns.
func (idx *Index) LoadIgnoreFromIndex(objectPath func(Digest) string, ignorePath string) error {
	n := idx.FindNodeByPath(ignorePath)
	if n == nil || !n.Status.IsRegular() {
		return nil
	}
	f, err := os.Open(objectPath(n.digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return newError(KindIO, "LoadIgnoreFromIndex", ignorePath, err)
	}
	defer f.Close()
	return idx.Ignores.Load(f)
}

func nowNanos() int64 { return time.Now().UnixNano() }
