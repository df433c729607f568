// cmd/kg-index/watch.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reviewforge/kgindex/internal/config"
	"github.com/reviewforge/kgindex/internal/sync"
)

var watchCmd = &cobra.Command{
	Use:   "watch <repos.yaml>",
	Short: "Watch a set of repositories and reindex on change",
	Long:  `Run a daemon that periodically resolves each watched repository's default branch and reindexes it when the resolved commit moves.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var watchInterval string

func init() {
	watchCmd.Flags().StringVar(&watchInterval, "interval", "60s", "poll interval (e.g., 30s, 5m)")
	rootCmd.AddCommand(watchCmd)
}

// watchManifest is the repos.yaml shape: a flat list of repositories to
// poll, named fields mirroring workflow.Repository plus an installation ID.
type watchManifest struct {
	Repos []sync.RepoWatch `yaml:"repos"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval, err := time.ParseDuration(watchInterval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest watchManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(manifest.Repos) == 0 {
		return fmt.Errorf("manifest has no repos")
	}

	cfg, err := config.LoadConfig(getGlobalConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	driver, cleanup, err := buildDriver(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	if driver.Metadata == nil {
		return fmt.Errorf("metadata store is required for watch (used to detect unchanged commits)")
	}

	daemon := sync.NewDaemon(manifest.Repos, interval, driver, driver.Metadata, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	return daemon.Run(ctx)
}
