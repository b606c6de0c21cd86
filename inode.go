package fstree

import (
	"bufio"
	"encoding/binary"
	"io"
	"path"
	"sort"
)

const (
	treeMagic   uint16 = 0x3eee
	treeVersion uint16 = 1
)

// Inode is an in-memory node of a directory snapshot: a file, directory, or
// symlink, with its children (for directories) and a weak parent pointer.
type Inode struct {
	Name   string
	Path   string // relative to the index root, forward-slash separated
	Status FileStatus
	Mtime  int64 // nanoseconds since Unix epoch
	Size   int64
	Target string // symlink target; empty otherwise

	Children []*Inode
	Parent   *Inode

	digest   Digest
	dirty    bool
	ignored  bool
	unignored bool
}

// NewInode constructs a leaf inode. Callers append it to a parent via AddChild.
func NewInode(name, relPath string, status FileStatus, mtime, size int64, target string) *Inode {
	return &Inode{
		Name:   name,
		Path:   relPath,
		Status: status,
		Mtime:  mtime,
		Size:   size,
		Target: target,
		dirty:  true,
	}
}

func (n *Inode) Digest() Digest { return n.digest }
func (n *Inode) Dirty() bool    { return n.dirty || n.digest.Empty() }
func (n *Inode) Ignored() bool  { return n.ignored }
func (n *Inode) Unignored() bool { return n.unignored }

func (n *Inode) Ignore()   { n.ignored = true }
func (n *Inode) Unignore() { n.unignored = true }

// AddChild appends child and sets its parent to n.
func (n *Inode) AddChild(child *Inode) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Sort orders children by path, stably.
func (n *Inode) Sort() {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].Path < n.Children[j].Path
	})
}

// SetDirty clears the digest and propagates dirtiness up to the parent,
// stopping as soon as an already-dirty ancestor is reached.
func (n *Inode) SetDirty() {
	n.dirty = true
	n.digest = Digest{}
	if n.Parent != nil && !n.Parent.dirty {
		n.Parent.SetDirty()
	}
}

// SetDigest records a computed digest and clears dirty.
func (n *Inode) SetDigest(d Digest) {
	n.digest = d
	n.dirty = false
}

// Rehash computes the inode's digest by streaming root/Path through alg.
// Must never be called for symlinks.
func (n *Inode) Rehash(alg Algorithm, root string) error {
	if n.Status.IsSymlink() {
		return wrapf(KindInvalidArgument, "Rehash", n.Path, "symlinks are never hashed")
	}
	d, err := DigestFile(alg, path.Join(root, n.Path))
	if err != nil {
		return err
	}
	n.SetDigest(d)
	return nil
}

// IsEquivalent compares path, type, perms, mtime, and symlink target. Size
// and digest are deliberately excluded.
func (n *Inode) IsEquivalent(other *Inode) bool {
	return n.Path == other.Path &&
		n.Status.Type() == other.Status.Type() &&
		n.Status.Perm() == other.Status.Perm() &&
		n.Mtime == other.Mtime &&
		n.Target == other.Target
}

// MarshalTree serializes n's children as a tree object (format §6.1).
// Ignored children are skipped; children must already be sorted.
func (n *Inode) MarshalTree(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, treeMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, treeVersion); err != nil {
		return err
	}
	for _, c := range n.Children {
		if c.ignored {
			continue
		}
		if err := writeLenPrefixed(bw, []byte(c.Name)); err != nil {
			return err
		}
		if err := writeLenPrefixed(bw, []byte(c.digest.String())); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(c.Status)); err != nil {
			return err
		}
		if c.Status.IsSymlink() {
			if err := writeLenPrefixed(bw, []byte(c.Target)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// UnmarshalTree inflates direct children from a tree object stream. The
// caller is responsible for recursively loading grandchildren on demand.
func (n *Inode) UnmarshalTree(r io.Reader) error {
	br := bufio.NewReader(r)
	var magic, version uint16
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		if err == io.EOF {
			return nil
		}
		return newError(KindCorrupt, "UnmarshalTree", n.Path, err)
	}
	if magic != treeMagic {
		return wrapf(KindCorrupt, "UnmarshalTree", n.Path, "bad magic %#x", magic)
	}
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return newError(KindCorrupt, "UnmarshalTree", n.Path, err)
	}
	if version != treeVersion {
		return wrapf(KindCorrupt, "UnmarshalTree", n.Path, "unsupported version %d", version)
	}

	for {
		name, err := readLenPrefixed(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return newError(KindCorrupt, "UnmarshalTree", n.Path, err)
		}
		hashBytes, err := readLenPrefixed(br)
		if err != nil {
			return newError(KindCorrupt, "UnmarshalTree", n.Path, err)
		}
		var statusBits uint32
		if err := binary.Read(br, binary.LittleEndian, &statusBits); err != nil {
			return newError(KindCorrupt, "UnmarshalTree", n.Path, err)
		}
		status := FileStatus(statusBits)

		var target string
		if status.IsSymlink() {
			t, err := readLenPrefixed(br)
			if err != nil {
				return newError(KindCorrupt, "UnmarshalTree", n.Path, err)
			}
			target = string(t)
		}

		digest, err := ParseDigest(string(hashBytes))
		if err != nil {
			return err
		}

		childPath := string(name)
		if n.Path != "" {
			childPath = n.Path + "/" + childPath
		}
		child := &Inode{
			Name:   string(name),
			Path:   childPath,
			Status: status,
			Target: target,
			digest: digest,
		}
		n.AddChild(child)
	}
	return nil
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}
