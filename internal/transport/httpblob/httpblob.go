// Package httpblob implements the HTTP(S) blob-store remote named by
// spec.md §4.9/§1: a simple presence/upload/download protocol over plain
// HTTP, with zstd compression on the wire (objects at rest elsewhere in
// this module stay byte-exact; this package only compresses in flight).
//
// Grounded on aweris-cafs/internal/remote/oci.go (the teacher's remote
// push/pull shape) and aweris-cafs/internal/compression/zstd.go (the
// compressor, carried over almost verbatim). original_source/src/remote_http.hpp
// names the interface this package fills in idiomatic Go.
package httpblob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/go-containerregistry/pkg/v1/types"

	"github.com/fstreehq/fstree/internal/remotecontract"
)

// contentType is the wire media type for compressed blob bodies, reusing
// the teacher's OCI zstd-layer media type constant as a ready-made,
// already-registered value rather than inventing a bespoke one.
const contentType = string(types.OCILayerZStd)

// Remote talks to an HTTP blob-store server: GET/HEAD/PUT under
// "<base>/blobs/<hash>".
type Remote struct {
	base   string
	client *http.Client
	zstd   *compressor
}

var _ remotecontract.Remote = (*Remote)(nil)

// New creates an HTTP blob-store remote rooted at baseURL
// ("http(s)://host[:port][/path]").
func New(baseURL string) (*Remote, error) {
	c, err := newCompressor()
	if err != nil {
		return nil, err
	}
	return &Remote{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{},
		zstd:   c,
	}, nil
}

func (r *Remote) blobURL(hash string) string {
	return r.base + "/blobs/" + sanitizeHash(hash)
}

func sanitizeHash(hash string) string {
	return strings.ReplaceAll(hash, ":", "_")
}

func (r *Remote) HasObject(ctx context.Context, hash string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.blobURL(hash), nil)
	if err != nil {
		return false, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("httpblob: HEAD %s: unexpected status %d", hash, resp.StatusCode)
	}
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
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	compressed, err := r.zstd.compress(data)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.blobURL(hash), bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// ALREADY_EXISTS on write is silently tolerated, per spec.md §4.9.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("httpblob: PUT %s: unexpected status %d", hash, resp.StatusCode)
	}
	return nil
}

func (r *Remote) ReadObject(ctx context.Context, hash, finalPath, tmpDir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.blobURL(hash), nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return os.ErrNotExist
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpblob: GET %s: unexpected status %d", hash, resp.StatusCode)
	}

	compressed, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	data, err := r.zstd.decompress(compressed)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(tmpDir, "httpblob-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
