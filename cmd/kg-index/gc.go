// cmd/kg-index/gc.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewforge/kgindex/internal/config"
	"github.com/reviewforge/kgindex/internal/graph"
)

var gcCmd = &cobra.Command{
	Use:   "gc <repo-id>",
	Short: "Delete nodes older than the configured TTL (spec.md §4.7 cleanup_stale)",
	Args:  cobra.ExactArgs(1),
	RunE:  runGC,
}

func init() {
	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	repoID := args[0]

	cfg, err := config.LoadConfig(getGlobalConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := graph.NewStore(cfg.Storage.GraphDBURI, cfg.Storage.GraphDBUsername, cfg.Storage.GraphDBPassword, cfg.Storage.GraphDBDatabase)
	if err != nil {
		return fmt.Errorf("failed to connect to graph store: %w", err)
	}
	ctx := context.Background()
	defer store.Close(ctx)

	deleted, err := store.CleanupStale(ctx, repoID, cfg.KGTTL(), time.Now())
	if err != nil {
		return fmt.Errorf("gc failed: %w", err)
	}

	fmt.Printf("Deleted %d stale node(s) for %s (TTL %s)\n", deleted, repoID, cfg.KGTTL())
	return nil
}
