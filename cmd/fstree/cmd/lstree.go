package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fstreehq/fstree"
)

var lsTreeCmd = &cobra.Command{
	Use:   "ls-tree <hash>",
	Short: "List the direct children of a locally present tree object",
	Args:  cobra.ExactArgs(1),
	RunE:  runLsTree,
}

func init() {
	rootCmd.AddCommand(lsTreeCmd)
}

func runLsTree(cmd *cobra.Command, args []string) (err error) {
	digest, err := fstree.ParseDigest(args[0])
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

	children, err := cache.ListTree(digest)
	if err != nil {
		return err
	}

	for _, c := range children {
		target := ""
		if c.Status.IsSymlink() {
			target = " -> " + c.Target
		}
		fmt.Printf("%s %s %s%s\n", c.Status, c.Digest(), c.Name, target)
	}
	return nil
}
