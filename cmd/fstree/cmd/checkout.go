package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fstreehq/fstree"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <hash> <dir>",
	Short: "Reconstitute a tree hash into a directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheckout,
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}

func runCheckout(cmd *cobra.Command, args []string) (err error) {
	hash, dir := args[0], args[1]

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

	idx, err := cache.IndexFromTree(digest, dir, algorithmFromFlag())
	if err != nil {
		return fmt.Errorf("checkout failed: %w", err)
	}
	if err := idx.Checkout(cache, dir); err != nil {
		return fmt.Errorf("checkout failed: %w", err)
	}
	if err := saveIndexFile(idx, dir); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "checked out %d entries into %s\n", len(idx.Inodes), dir)
	return nil
}
