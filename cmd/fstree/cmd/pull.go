package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fstreehq/fstree"
)

var pullCmd = &cobra.Command{
	Use:   "pull <hash> <remote-url> <dir>",
	Short: "Pull a tree from a remote into the local cache and check it out",
	Args:  cobra.ExactArgs(3),
	RunE:  runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) (err error) {
	hash, remoteURL, dir := args[0], args[1], args[2]

	digest, err := fstree.ParseDigest(hash)
	if err != nil {
		return err
	}

	ctx := context.Background()
	cache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	remote, err := fstree.OpenRemote(remoteURL, fstree.Options{Threads: threadCount()})
	if err != nil {
		return err
	}

	idx := fstree.NewIndex(dir, algorithmFromFlag())
	fmt.Fprintf(os.Stderr, "pulling %s from %s...\n", digest, remoteURL)
	if err := cache.Pull(ctx, idx, remote, digest); err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}
	if err := idx.Checkout(cache, dir); err != nil {
		return fmt.Errorf("checkout failed: %w", err)
	}
	if err := saveIndexFile(idx, dir); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "pulled %d entries into %s\n", len(idx.Inodes), dir)
	return nil
}
