// Package fstree snapshots a directory tree into a content-addressed index,
// caches its objects locally, and synchronizes them against a remote store.
//
// A directory is captured into an Index, a flat list of inodes keyed by
// path. Refresh walks the filesystem and updates the index against a glob
// ignore list. Add ingests dirty files and directories into a local Cache,
// producing a single root digest for the whole tree. Checkout reconstitutes
// a tree back onto disk, touching only the paths that differ from the
// index.
//
// Basic usage (local only):
//
//	idx := fstree.NewIndex("/path/to/project", fstree.AlgorithmBLAKE3)
//	idx.Refresh(ctx, pool)
//
//	cache, _ := fstree.OpenCache(ctx, fstree.WithCacheRoot("/var/cache/fstree"))
//	cache.Add(ctx, idx)
//	fmt.Println("root:", idx.Root.Digest())
//
//	idx2, _ := cache.IndexFromTree(idx.Root.Digest(), "/path/to/checkout", fstree.AlgorithmBLAKE3)
//	idx2.Checkout(cache, "/path/to/checkout")
//
// With a remote (OpenRemote only knows schemes registered with
// RegisterRemote; the library registers none, the fstree CLI registers
// http, https, tcp and jolt):
//
//	remote, _ := fstree.OpenRemote("https://blobs.example.com", fstree.Options{})
//	cache.Push(ctx, idx, remote)
//	cache.Pull(ctx, idx2, remote, idx.Root.Digest())
package fstree
