package fstree

import (
	"encoding/hex"
	"io"
	"os"
	"strings"

	"crypto/sha1"

	"github.com/zeebo/blake3"
)

// Algorithm identifies a digest's hash function.
type Algorithm int

const (
	AlgorithmNone Algorithm = iota
	AlgorithmSHA1
	AlgorithmBLAKE3
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmSHA1:
		return "sha1"
	case AlgorithmBLAKE3:
		return "blake3"
	default:
		return ""
	}
}

func (a Algorithm) hexLength() int {
	switch a {
	case AlgorithmSHA1:
		return 40
	case AlgorithmBLAKE3:
		return 64
	default:
		return 0
	}
}

// Digest is a typed (algorithm, hex) pair identifying an object's content.
type Digest struct {
	algorithm Algorithm
	hex       string
}

// ParseDigest parses either "<alg>:<hex>" or a bare hex string whose length
// disambiguates the algorithm (40 hex chars -> sha1, 64 -> blake3).
func ParseDigest(s string) (Digest, error) {
	if s == "" {
		return Digest{}, nil
	}

	alg := AlgorithmNone
	h := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		prefix, rest := s[:i], s[i+1:]
		switch prefix {
		case "sha1":
			alg = AlgorithmSHA1
		case "blake3":
			alg = AlgorithmBLAKE3
		default:
			return Digest{}, wrapf(KindInvalidArgument, "ParseDigest", s, "unknown algorithm %q", prefix)
		}
		h = rest
	} else {
		switch len(s) {
		case 40:
			alg = AlgorithmSHA1
		case 64:
			alg = AlgorithmBLAKE3
		default:
			return Digest{}, wrapf(KindInvalidArgument, "ParseDigest", s, "cannot disambiguate algorithm from length %d", len(s))
		}
	}

	if len(h) != alg.hexLength() {
		return Digest{}, wrapf(KindInvalidArgument, "ParseDigest", s, "hex length %d does not match %s", len(h), alg)
	}
	if _, err := hex.DecodeString(h); err != nil {
		return Digest{}, wrapf(KindInvalidArgument, "ParseDigest", s, "invalid hex: %v", err)
	}

	return Digest{algorithm: alg, hex: strings.ToLower(h)}, nil
}

// String renders "<alg>:<hex>", or the empty string for the none algorithm.
func (d Digest) String() string {
	if d.algorithm == AlgorithmNone {
		return ""
	}
	return d.algorithm.String() + ":" + d.hex
}

// Hexdigest returns the raw hex portion without the algorithm prefix.
func (d Digest) Hexdigest() string { return d.hex }

// Algorithm returns the digest's algorithm.
func (d Digest) Algorithm() Algorithm { return d.algorithm }

// Empty reports whether the digest carries no hex value.
func (d Digest) Empty() bool { return d.hex == "" }

// Equal compares two digests for equality.
func (d Digest) Equal(other Digest) bool {
	return d.algorithm == other.algorithm && d.hex == other.hex
}

// Shard returns the first two hex characters used for object-store sharding.
func (d Digest) Shard() string {
	if len(d.hex) < 2 {
		return d.hex
	}
	return d.hex[:2]
}

// Rest returns the hex characters after the shard prefix.
func (d Digest) Rest() string {
	if len(d.hex) < 2 {
		return ""
	}
	return d.hex[2:]
}

// DigestBytes computes the digest of b using alg.
func DigestBytes(alg Algorithm, b []byte) (Digest, error) {
	switch alg {
	case AlgorithmSHA1:
		sum := sha1.Sum(b)
		return Digest{algorithm: alg, hex: hex.EncodeToString(sum[:])}, nil
	case AlgorithmBLAKE3:
		sum := blake3.Sum256(b)
		return Digest{algorithm: alg, hex: hex.EncodeToString(sum[:])}, nil
	default:
		return Digest{}, wrapf(KindInvalidArgument, "DigestBytes", "", "unsupported algorithm %v", alg)
	}
}

// DigestFile streams path through alg's hash function, grounded on the
// original rehash(root) contract: a file's digest is the hash of its byte
// contents, read from disk rather than buffered in memory.
func DigestFile(alg Algorithm, path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, newError(KindIO, "DigestFile", path, err)
	}
	defer f.Close()

	switch alg {
	case AlgorithmSHA1:
		h := sha1.New()
		if _, err := io.Copy(h, f); err != nil {
			return Digest{}, newError(KindIO, "DigestFile", path, err)
		}
		return Digest{algorithm: alg, hex: hex.EncodeToString(h.Sum(nil))}, nil
	case AlgorithmBLAKE3:
		h := blake3.New()
		if _, err := io.Copy(h, f); err != nil {
			return Digest{}, newError(KindIO, "DigestFile", path, err)
		}
		return Digest{algorithm: alg, hex: hex.EncodeToString(h.Sum(nil))}, nil
	default:
		return Digest{}, wrapf(KindInvalidArgument, "DigestFile", path, "unsupported algorithm %v", alg)
	}
}
