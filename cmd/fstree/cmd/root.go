package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "fstree",
	Short: "Content-addressed filesystem-tree snapshotter, cache, and synchronizer",
	Long:  "fstree snapshots a directory into a content-addressed tree, caches it, and syncs it to a remote.",
}

// Execute runs the CLI, returning any error instead of exiting directly so
// main can control the exit line format.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/fstree/config.yaml)")
	rootCmd.PersistentFlags().String("cache-dir", "", "cache directory (default: ~/.cache/fstree)")
	rootCmd.PersistentFlags().Int("threads", 0, "worker pool size (default: hardware concurrency)")
	rootCmd.PersistentFlags().String("algorithm", "blake3", "digest algorithm: sha1 or blake3")
	rootCmd.PersistentFlags().Bool("events", false, "emit JSON-line events to stderr")

	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("threads", rootCmd.PersistentFlags().Lookup("threads"))
	viper.BindPFlag("algorithm", rootCmd.PersistentFlags().Lookup("algorithm"))
	viper.BindPFlag("events", rootCmd.PersistentFlags().Lookup("events"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FSTREE")
	viper.AutomaticEnv()
	viper.SetDefault("cache_dir", defaultCacheDir())
	viper.SetDefault("max_size", "10GiB")
	viper.SetDefault("retention", 3600)
	viper.SetDefault("ignore_file", ".fstreeignore")
	viper.SetDefault("index_file", ".fstree/index")

	_ = viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fstree")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "fstree")
	}
	return ".fstree-config"
}

func defaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "fstree")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "fstree")
	}
	return ".fstree-cache"
}
