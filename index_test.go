package fstree

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func refreshedIndex(t *testing.T, dir string) *Index {
	t.Helper()
	idx := NewIndex(dir, AlgorithmSHA1)
	if err := idx.Refresh(context.Background(), newTestPool(context.Background())); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return idx
}

func TestIndexOrdering(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "b.txt"), "b")
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	idx := refreshedIndex(t, dir)
	for i := 1; i < len(idx.Inodes); i++ {
		if idx.Inodes[i-1].Path >= idx.Inodes[i].Path {
			t.Fatalf("index not strictly ascending: %+v", idx.Inodes)
		}
	}
}

func TestIndexRefreshMarksNewFilesDirty(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	idx := refreshedIndex(t, dir)
	for _, n := range idx.Inodes {
		if !n.Dirty() {
			t.Fatalf("first refresh must mark everything dirty: %s", n.Path)
		}
	}
}

// TestIndexRefreshStability is testable property #6: a second refresh with
// no filesystem mutation leaves no inode dirty, once hashes are populated.
func TestIndexRefreshStability(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "hello")
	idx := refreshedIndex(t, dir)
	for _, n := range idx.Inodes {
		if n.Status.IsRegular() {
			if err := n.Rehash(idx.Algorithm, dir); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := idx.Refresh(context.Background(), newTestPool(context.Background())); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	for _, n := range idx.Inodes {
		if n.Dirty() {
			t.Fatalf("second refresh with no mutation left %s dirty", n.Path)
		}
	}
}

func TestIndexRefreshDetectsDeletion(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	mustWriteFile(t, filepath.Join(dir, "b.txt"), "b")
	idx := refreshedIndex(t, dir)
	if len(idx.Inodes) != 2 {
		t.Fatalf("expected 2 inodes, got %d", len(idx.Inodes))
	}

	if err := os.Remove(filepath.Join(dir, "b.txt")); err != nil {
		t.Fatal(err)
	}
	if err := idx.Refresh(context.Background(), newTestPool(context.Background())); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(idx.Inodes) != 1 || idx.Inodes[0].Path != "a.txt" {
		t.Fatalf("expected only a.txt to remain, got %+v", idx.Inodes)
	}
}

func TestIndexRefreshPreservesHashWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	idx := refreshedIndex(t, dir)
	n := idx.FindNodeByPath("a.txt")
	if err := n.Rehash(idx.Algorithm, dir); err != nil {
		t.Fatal(err)
	}
	want := n.Digest()

	if err := idx.Refresh(context.Background(), newTestPool(context.Background())); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := idx.FindNodeByPath("a.txt")
	if got.Dirty() {
		t.Fatalf("expected hash to be preserved across a no-op refresh")
	}
	if !got.Digest().Equal(want) {
		t.Fatalf("digest changed across no-op refresh: %v != %v", got.Digest(), want)
	}
}

func TestIndexRefreshDetectsModification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	mustWriteFile(t, path, "a")
	idx := refreshedIndex(t, dir)
	n := idx.FindNodeByPath("a.txt")
	if err := n.Rehash(idx.Algorithm, dir); err != nil {
		t.Fatal(err)
	}

	// bump mtime and change contents
	future := time.Now().Add(2 * time.Second)
	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if err := idx.Refresh(context.Background(), newTestPool(context.Background())); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := idx.FindNodeByPath("a.txt")
	if !got.Dirty() {
		t.Fatalf("expected modified file to be marked dirty")
	}
}

// TestIndexSaveLoadRoundTrip is testable property #7.
func TestIndexSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	mustWriteFile(t, filepath.Join(dir, "dir/b.txt"), "b")
	idx := refreshedIndex(t, dir)
	for _, n := range idx.Inodes {
		if n.Status.IsRegular() {
			if err := n.Rehash(idx.Algorithm, dir); err != nil {
				t.Fatal(err)
			}
		}
	}

	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewIndex(dir, idx.Algorithm)
	if err := loaded.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(loaded.Inodes) != len(idx.Inodes) {
		t.Fatalf("got %d inodes after load, want %d", len(loaded.Inodes), len(idx.Inodes))
	}
	for i, n := range idx.Inodes {
		got := loaded.Inodes[i]
		if got.Path != n.Path || !got.Digest().Equal(n.Digest()) || got.Status != n.Status || got.Mtime != n.Mtime {
			t.Fatalf("inode %d mismatch after round trip: got %+v, want %+v", i, got, n)
		}
	}
}

func TestIndexLoadBadMagic(t *testing.T) {
	idx := NewIndex(t.TempDir(), AlgorithmSHA1)
	err := idx.Load(bytes.NewReader([]byte{0xff, 0xff, 1, 0}))
	if err == nil || !IsKind(err, KindCorrupt) {
		t.Fatalf("expected KindCorrupt, got %v", err)
	}
}

func TestIndexFindNodeByPath(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	mustWriteFile(t, filepath.Join(dir, "b.txt"), "b")
	idx := refreshedIndex(t, dir)
	if n := idx.FindNodeByPath("a.txt"); n == nil || n.Path != "a.txt" {
		t.Fatalf("expected to find a.txt")
	}
	if n := idx.FindNodeByPath("missing.txt"); n != nil {
		t.Fatalf("expected nil for missing path, got %+v", n)
	}
}

func TestIndexCopyMetadata(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "same")
	idxA := refreshedIndex(t, dir)
	for _, n := range idxA.Inodes {
		n.Rehash(idxA.Algorithm, dir)
	}

	idxB := NewIndex(dir, AlgorithmSHA1)
	nb := &Inode{Path: "a.txt", Status: NewFileStatus(TypeRegular, 0o644), Mtime: 1}
	nb.SetDigest(idxA.FindNodeByPath("a.txt").Digest())
	idxB.Inodes = []*Inode{nb}

	idxB.CopyMetadata(idxA)
	if idxB.Inodes[0].Mtime != idxA.FindNodeByPath("a.txt").Mtime {
		t.Fatalf("expected mtime to be copied when digests match")
	}
}

func TestIndexCopyMetadataSkipsDifferentDigest(t *testing.T) {
	idxA := NewIndex(t.TempDir(), AlgorithmSHA1)
	na := &Inode{Path: "a.txt", Mtime: 100}
	na.SetDigest(mustDigest(t, "A"))
	idxA.Inodes = []*Inode{na}

	idxB := NewIndex(t.TempDir(), AlgorithmSHA1)
	nb := &Inode{Path: "a.txt", Mtime: 1}
	nb.SetDigest(mustDigest(t, "B"))
	idxB.Inodes = []*Inode{nb}

	idxB.CopyMetadata(idxA)
	if idxB.Inodes[0].Mtime != 1 {
		t.Fatalf("mtime must not be copied when digests differ")
	}
}

func TestIndexFromTreeLocalFlatList(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	mustWriteFile(t, filepath.Join(dir, "sub/b.txt"), "b")

	cacheDir := t.TempDir()
	cache, err := OpenCache(context.Background(), WithCacheRoot(cacheDir), WithAlgorithm(AlgorithmSHA1), WithThreads(2))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	idx := refreshedIndex(t, dir)
	if err := cache.Add(context.Background(), idx); err != nil {
		t.Fatalf("Add: %v", err)
	}

	inflated, err := cache.IndexFromTree(idx.Root.Digest(), dir, AlgorithmSHA1)
	if err != nil {
		t.Fatalf("IndexFromTree: %v", err)
	}
	if len(inflated.Inodes) != len(idx.Inodes) {
		t.Fatalf("got %d inflated inodes, want %d", len(inflated.Inodes), len(idx.Inodes))
	}
}
