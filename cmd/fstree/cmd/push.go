package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fstreehq/fstree"
)

var pushCmd = &cobra.Command{
	Use:   "push <dir> <remote-url>",
	Short: "Push a directory's cached tree to a remote",
	Args:  cobra.ExactArgs(2),
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) (err error) {
	dir, remoteURL := args[0], args[1]
	ctx := context.Background()

	idx := fstree.NewIndex(dir, algorithmFromFlag())
	if err := loadIndexFile(idx, dir); err != nil {
		return err
	}

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

	fmt.Fprintf(os.Stderr, "pushing %s to %s...\n", dir, remoteURL)
	if err := cache.Push(ctx, idx, remote); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "done. root: %s\n", idx.Root.Digest())
	return nil
}
