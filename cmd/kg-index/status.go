// cmd/kg-index/status.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewforge/kgindex/internal/config"
	"github.com/reviewforge/kgindex/internal/graph"
)

var statusCmd = &cobra.Command{
	Use:   "status <repo-id>",
	Short: "Show the last recorded snapshot and node count for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	repoID := args[0]

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

	ctx := context.Background()

	fmt.Printf("Status for %s:\n", repoID)

	if driver.Metadata != nil {
		snap, err := driver.Metadata.LastSnapshot(ctx, repoID)
		if err != nil {
			fmt.Printf("  snapshot: error: %v\n", err)
		} else if snap == nil {
			fmt.Println("  snapshot: none recorded")
		} else {
			fmt.Printf("  snapshot:  %s (commit %s, recorded %s)\n", snap.ID, snap.CommitSHA, snap.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		}
	} else {
		fmt.Println("  snapshot: metadata store unavailable")
	}

	store, err := graph.NewStore(cfg.Storage.GraphDBURI, cfg.Storage.GraphDBUsername, cfg.Storage.GraphDBPassword, cfg.Storage.GraphDBDatabase)
	if err != nil {
		fmt.Printf("  graph: unavailable: %v\n", err)
		return nil
	}
	defer store.Close(ctx)

	count, err := store.NodeCount(ctx, repoID)
	if err != nil {
		fmt.Printf("  graph nodes: error: %v\n", err)
	} else {
		fmt.Printf("  graph nodes: %d\n", count)
	}
	return nil
}
