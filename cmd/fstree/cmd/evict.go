package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var evictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Evict least-recently-touched objects until the cache is under its size limit",
	Args:  cobra.NoArgs,
	RunE:  runEvict,
}

func init() {
	rootCmd.AddCommand(evictCmd)
}

func runEvict(cmd *cobra.Command, args []string) (err error) {
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

	if err := cache.Evict(ctx); err != nil {
		return fmt.Errorf("evict failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "evict complete")
	return nil
}
