package fstree

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDigestBareHex(t *testing.T) {
	sha1hex := "f572d396fae9206628714fb2ce00f72e94f2258f" // sha1("hello\n")
	d, err := ParseDigest(sha1hex)
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if d.Algorithm() != AlgorithmSHA1 {
		t.Fatalf("got algorithm %v, want sha1", d.Algorithm())
	}
	if d.Hexdigest() != sha1hex {
		t.Fatalf("got hex %q, want %q", d.Hexdigest(), sha1hex)
	}
	if d.String() != "sha1:"+sha1hex {
		t.Fatalf("got string %q", d.String())
	}
}

func TestParseDigestPrefixed(t *testing.T) {
	blake3hex := "00000000000000000000000000000000000000000000000000000000000000ab"
	d, err := ParseDigest("blake3:" + blake3hex)
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if d.Algorithm() != AlgorithmBLAKE3 {
		t.Fatalf("got algorithm %v, want blake3", d.Algorithm())
	}
}

func TestParseDigestInvalid(t *testing.T) {
	cases := []string{
		"sha256:deadbeef",          // unknown algorithm prefix
		"abcd",                     // length disambiguates to nothing
		"sha1:zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", // not hex
	}
	for _, c := range cases {
		if _, err := ParseDigest(c); err == nil {
			t.Errorf("ParseDigest(%q): expected error", c)
		} else if !IsKind(err, KindInvalidArgument) {
			t.Errorf("ParseDigest(%q): got kind %v, want InvalidArgument", c, err)
		}
	}
}

func TestParseDigestEmpty(t *testing.T) {
	d, err := ParseDigest("")
	if err != nil {
		t.Fatalf("ParseDigest(\"\"): %v", err)
	}
	if !d.Empty() {
		t.Fatalf("expected empty digest")
	}
	if d.String() != "" {
		t.Fatalf("expected empty string render, got %q", d.String())
	}
}

// TestDigestFormatRoundTrip is testable property #10 (spec.md §8).
func TestDigestFormatRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, alg := range []Algorithm{AlgorithmSHA1, AlgorithmBLAKE3} {
		d, err := DigestFile(alg, path)
		if err != nil {
			t.Fatalf("DigestFile: %v", err)
		}
		got, err := ParseDigest(d.String())
		if err != nil {
			t.Fatalf("ParseDigest(%q): %v", d.String(), err)
		}
		if !got.Equal(d) {
			t.Fatalf("round-trip mismatch: %v != %v", got, d)
		}
	}
}

func TestDigestFileKnownSHA1(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := DigestFile(AlgorithmSHA1, path)
	if err != nil {
		t.Fatalf("DigestFile: %v", err)
	}
	const want = "f572d396fae9206628714fb2ce00f72e94f2258f"
	if d.Hexdigest() != want {
		t.Fatalf("got %q, want %q", d.Hexdigest(), want)
	}
}

func TestDigestShardRest(t *testing.T) {
	d, err := ParseDigest("f572d396fae9206628714fb2ce00f72e94f2258f")
	if err != nil {
		t.Fatal(err)
	}
	if d.Shard() != "f5" {
		t.Fatalf("got shard %q, want f5", d.Shard())
	}
	if d.Rest() != "72d396fae9206628714fb2ce00f72e94f2258f" {
		t.Fatalf("got rest %q", d.Rest())
	}
}
