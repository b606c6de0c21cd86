package objectstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenCreatesDirs(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := os.Stat(s.ObjectsDir()); err != nil {
		t.Fatalf("objects dir missing: %v", err)
	}
	if _, err := os.Stat(s.TmpDir()); err != nil {
		t.Fatalf("tmp dir missing: %v", err)
	}
}

func TestPathShardsAndExtensions(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	filePath := s.Path(KindFile, "ab", "cdef")
	if !strings.HasSuffix(filePath, filepath.Join("ab", "cdef.file")) {
		t.Fatalf("got %q", filePath)
	}
	treePath := s.Path(KindTree, "ab", "cdef")
	if !strings.HasSuffix(treePath, filepath.Join("ab", "cdef.tree")) {
		t.Fatalf("got %q", treePath)
	}
}

func TestCopyFileAtomicSkipsExisting(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "src")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(t.TempDir(), "ab", "dest.file")
	if err := s.CopyFileAtomic(dest, 0o600, src); err != nil {
		t.Fatalf("CopyFileAtomic: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "hello" {
		t.Fatalf("copy mismatch: %v %q", err, got)
	}

	// A second copy from a different source must be a no-op (dest already
	// exists), matching the cache's idempotent-add semantics.
	src2 := filepath.Join(srcDir, "src2")
	if err := os.WriteFile(src2, []byte("different"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.CopyFileAtomic(dest, 0o600, src2); err != nil {
		t.Fatalf("second CopyFileAtomic: %v", err)
	}
	got2, err := os.ReadFile(dest)
	if err != nil || string(got2) != "hello" {
		t.Fatalf("existing object was overwritten: %v %q", err, got2)
	}
}

func TestTouchUpdatesMtimeOrAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	present, err := Touch(path)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if !present {
		t.Fatalf("expected present=true")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().After(old) {
		t.Fatalf("Touch must bump mtime, got %v", info.ModTime())
	}

	present, err = Touch(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("Touch(missing): %v", err)
	}
	if present {
		t.Fatalf("expected present=false for a missing file")
	}
}
