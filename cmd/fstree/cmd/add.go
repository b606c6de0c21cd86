package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fstreehq/fstree"
	"github.com/fstreehq/fstree/internal/workpool"
)

var addCmd = &cobra.Command{
	Use:   "add <dir>",
	Short: "Refresh and ingest a directory into the local cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) (err error) {
	dir := args[0]
	ctx := context.Background()

	idx := fstree.NewIndex(dir, algorithmFromFlag())
	if err := loadIndexFile(idx, dir); err != nil {
		return err
	}
	if err := loadIgnoreFile(idx, dir); err != nil {
		return err
	}

	pool := workpool.New(ctx, threadCount())
	if err := idx.Refresh(ctx, pool); err != nil {
		return err
	}
	if err := pool.Wait(); err != nil {
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

	if err := cache.Add(ctx, idx); err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	if err := saveIndexFile(idx, dir); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "root: %s\n", idx.Root.Digest())
	return nil
}
