// Package remotecontract defines the remote capability set fstree's cache
// assumes (§4.9), independent of any concrete transport, so transport
// packages and the root fstree package can both depend on it without a
// cycle between them.
package remotecontract

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by a TreeCapableRemote's HasTree when the peer
// declines the capability, triggering the cache's has_object fallback.
var ErrUnsupported = errors.New("remotecontract: unsupported operation")

// Digest is a minimal hex-identity interface so this package does not need
// to import the root fstree package for its Digest type.
type Digest interface {
	String() string
	Hexdigest() string
}

// Remote is the capability set of spec.md §4.9.
type Remote interface {
	HasObject(ctx context.Context, hash string) (bool, error)
	HasObjects(ctx context.Context, hashes []string) ([]bool, error)
	WriteObject(ctx context.Context, hash, localPath string) error
	ReadObject(ctx context.Context, hash, finalPath, tmpDir string) error
}

// TreeCapableRemote is the optional has_tree capability.
type TreeCapableRemote interface {
	Remote
	HasTree(ctx context.Context, hash string) (missingTrees, missingObjects []string, err error)
}
