package cmd

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/fstreehq/fstree"
	"github.com/fstreehq/fstree/internal/remotecontract"
	"github.com/fstreehq/fstree/internal/transport/grpcstream"
	"github.com/fstreehq/fstree/internal/transport/httpblob"
)

func init() {
	fstree.RegisterRemote("http", func(url string, threads int) (remotecontract.Remote, error) {
		return httpblob.New(url)
	})
	fstree.RegisterRemote("https", func(url string, threads int) (remotecontract.Remote, error) {
		return httpblob.New(url)
	})
	fstree.RegisterRemote("tcp", func(url string, threads int) (remotecontract.Remote, error) {
		return grpcstream.New(stripScheme(url))
	})
	fstree.RegisterRemote("jolt", func(url string, threads int) (remotecontract.Remote, error) {
		return grpcstream.New(stripScheme(url))
	})
}

func stripScheme(url string) string {
	for i := 0; i < len(url)-2; i++ {
		if url[i] == ':' && url[i+1] == '/' && url[i+2] == '/' {
			return url[i+3:]
		}
	}
	return url
}

func algorithmFromFlag() fstree.Algorithm {
	switch viper.GetString("algorithm") {
	case "sha1":
		return fstree.AlgorithmSHA1
	default:
		return fstree.AlgorithmBLAKE3
	}
}

func cacheOptions() []fstree.Option {
	opts := []fstree.Option{
		fstree.WithCacheRoot(viper.GetString("cache_dir")),
		fstree.WithAlgorithm(algorithmFromFlag()),
		fstree.WithEvents(viper.GetBool("events")),
	}
	if n := viper.GetInt("threads"); n > 0 {
		opts = append(opts, fstree.WithThreads(n))
	}
	if sz := viper.GetString("max_size"); sz != "" {
		if bytes, err := fstree.ParseSize(sz); err == nil {
			opts = append(opts, fstree.WithMaxSize(bytes))
		}
	}
	if r := viper.GetInt64("retention"); r > 0 {
		opts = append(opts, fstree.WithRetention(r))
	}
	return opts
}

func openCache(ctx context.Context) (*fstree.Cache, error) {
	return fstree.OpenCache(ctx, cacheOptions()...)
}

func threadCount() int {
	if n := viper.GetInt("threads"); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func indexFilePath(dir string) string {
	return filepath.Join(dir, viper.GetString("index_file"))
}

func ignoreFilePath(dir string) string {
	return filepath.Join(dir, viper.GetString("ignore_file"))
}

func loadIndexFile(idx *fstree.Index, dir string) error {
	f, err := os.Open(indexFilePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return idx.Load(f)
}

func saveIndexFile(idx *fstree.Index, dir string) error {
	path := indexFilePath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return idx.Save(f)
}

func loadIgnoreFile(idx *fstree.Index, dir string) error {
	f, err := os.Open(ignoreFilePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return idx.Ignores.Load(f)
}
