package fstree

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
)

const (
	defaultMaxSize    = 10 << 30 // 10 GiB
	defaultRetention  = 3600     // seconds
	defaultIgnoreFile = ".fstreeignore"
	defaultIndexFile  = ".fstree/index"
)

// Options configures a Cache, following the functional-options pattern of
// aweris-cafs/options.go, extended to the full option set of spec.md §6.4.
type Options struct {
	CacheRoot   string
	MaxSize     int64
	Retention   int64 // seconds
	Threads     int
	IgnoreFile  string
	IndexFile   string
	RemoteURL   string
	Algorithm   Algorithm
	EventsOn    bool
	EventWriter io.Writer
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		CacheRoot:  defaultCacheDir(),
		MaxSize:    defaultMaxSize,
		Retention:  defaultRetention,
		Threads:    runtime.NumCPU(),
		IgnoreFile: defaultIgnoreFile,
		IndexFile:  defaultIndexFile,
		Algorithm:  AlgorithmBLAKE3,
	}
}

func WithCacheRoot(dir string) Option        { return func(o *Options) { o.CacheRoot = dir } }
func WithMaxSize(bytes int64) Option         { return func(o *Options) { o.MaxSize = bytes } }
func WithRetention(seconds int64) Option     { return func(o *Options) { o.Retention = seconds } }
func WithThreads(n int) Option               { return func(o *Options) { o.Threads = n } }
func WithIgnoreFile(relPath string) Option   { return func(o *Options) { o.IgnoreFile = relPath } }
func WithIndexFile(relPath string) Option    { return func(o *Options) { o.IndexFile = relPath } }
func WithRemoteURL(url string) Option        { return func(o *Options) { o.RemoteURL = url } }
func WithAlgorithm(alg Algorithm) Option     { return func(o *Options) { o.Algorithm = alg } }
func WithEvents(enabled bool) Option         { return func(o *Options) { o.EventsOn = enabled } }
func WithEventWriter(w io.Writer) Option     { return func(o *Options) { o.EventWriter = w } }

// defaultCacheDir mirrors aweris-cafs/options.go's defaultCacheDir, adapted
// to this module's namespace.
func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "fstree")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fstree-cache"
	}
	return filepath.Join(home, ".cache", "fstree")
}

// ParseSize parses a byte-size string with optional K/M/G/T or Ki/Mi/Gi/Ti
// suffixes and an optional trailing "B", per spec.md §6.4.
func ParseSize(s string) (int64, error) {
	return parseSize(s)
}
