package fstree

import (
	"context"
	"errors"
	"strings"

	"github.com/fstreehq/fstree/internal/remotecontract"
)

// Remote is the capability set the cache's push/pull pipelines assume
// (§4.9): presence probes, batch presence, streaming upload/download. It is
// intentionally the only contract concrete transports must satisfy.
type Remote interface {
	HasObject(ctx context.Context, hash Digest) (bool, error)
	HasObjects(ctx context.Context, hashes []Digest) ([]bool, error)
	WriteObject(ctx context.Context, hash Digest, localPath string) error
	ReadObject(ctx context.Context, hash Digest, finalPath, tmpDir string) error
}

// TreeCapableRemote is the optional has_tree capability: a remote that can
// tell the client which objects under a tree are already present, letting
// push prune whole subtrees. Remotes that don't implement it cause push to
// fall back to per-object/batched has_object probing.
type TreeCapableRemote interface {
	Remote
	HasTree(ctx context.Context, hash Digest) (missingTrees, missingObjects []Digest, err error)
}

// RemoteOpener opens a transport-level remote for a URL.
type RemoteOpener func(rawURL string, threads int) (remotecontract.Remote, error)

var remoteOpeners = map[string]RemoteOpener{}

// RegisterRemote makes a transport available under the given URL scheme.
// The library registers no transport itself; the fstree CLI registers its
// transports in cmd/fstree/cmd. Transport packages depend only on
// internal/remotecontract, not on fstree itself, so there is no import
// cycle.
func RegisterRemote(scheme string, opener RemoteOpener) {
	remoteOpeners[scheme] = opener
}

// OpenRemote dispatches rawURL to a registered transport by scheme and
// adapts its string-keyed contract to fstree's Digest-keyed Remote.
func OpenRemote(rawURL string, opts Options) (Remote, error) {
	scheme := urlScheme(rawURL)
	opener, ok := remoteOpeners[scheme]
	if !ok {
		return nil, wrapf(KindInvalidArgument, "OpenRemote", rawURL, "unsupported remote scheme %q", scheme)
	}
	inner, err := opener(rawURL, opts.Threads)
	if err != nil {
		return nil, err
	}
	return &remoteAdapter{inner}, nil
}

// WrapRemote adapts any remotecontract.Remote (the string-keyed form
// transport packages implement) into a Digest-keyed fstree.Remote. Exported
// so tests can wire up internal/transport/memremote without going through
// URL scheme dispatch.
func WrapRemote(inner remotecontract.Remote) Remote {
	return &remoteAdapter{inner}
}

// remoteAdapter wraps a remotecontract.Remote (string-keyed) as a
// Digest-keyed fstree.Remote.
type remoteAdapter struct {
	inner remotecontract.Remote
}

func (a *remoteAdapter) HasObject(ctx context.Context, hash Digest) (bool, error) {
	return a.inner.HasObject(ctx, hash.String())
}

func (a *remoteAdapter) HasObjects(ctx context.Context, hashes []Digest) ([]bool, error) {
	strs := make([]string, len(hashes))
	for i, h := range hashes {
		strs[i] = h.String()
	}
	return a.inner.HasObjects(ctx, strs)
}

func (a *remoteAdapter) WriteObject(ctx context.Context, hash Digest, localPath string) error {
	return a.inner.WriteObject(ctx, hash.String(), localPath)
}

func (a *remoteAdapter) ReadObject(ctx context.Context, hash Digest, finalPath, tmpDir string) error {
	return a.inner.ReadObject(ctx, hash.String(), finalPath, tmpDir)
}

func (a *remoteAdapter) HasTree(ctx context.Context, hash Digest) ([]Digest, []Digest, error) {
	tc, ok := a.inner.(remotecontract.TreeCapableRemote)
	if !ok {
		return nil, nil, wrapf(KindUnsupported, "HasTree", hash.String(), "remote does not implement has_tree")
	}
	trees, objects, err := tc.HasTree(ctx, hash.String())
	if err != nil {
		if errors.Is(err, remotecontract.ErrUnsupported) {
			return nil, nil, wrapf(KindUnsupported, "HasTree", hash.String(), "remote declined has_tree")
		}
		return nil, nil, err
	}
	return toDigests(trees), toDigests(objects), nil
}

func toDigests(ss []string) []Digest {
	out := make([]Digest, 0, len(ss))
	for _, s := range ss {
		d, err := ParseDigest(s)
		if err == nil {
			out = append(out, d)
		}
	}
	return out
}

func urlScheme(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return ""
	}
	return rawURL[:i]
}

// urlHostPath splits "scheme://host/path" into host and path, grounded on
// original_source/src/url.hpp's minimal parser.
func urlHostPath(rawURL string) (host, path string) {
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return "", ""
	}
	rest := rawURL[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return rest[:j], rest[j:]
	}
	return rest, ""
}
