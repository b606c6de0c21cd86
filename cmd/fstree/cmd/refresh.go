package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fstreehq/fstree"
	"github.com/fstreehq/fstree/internal/workpool"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <dir>",
	Short: "Refresh the on-disk index for a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
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

	if err := saveIndexFile(idx, dir); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "refreshed %d entries\n", len(idx.Inodes))
	return nil
}
