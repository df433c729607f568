// cmd/kg-index/reset.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewforge/kgindex/internal/config"
	"github.com/reviewforge/kgindex/internal/graph"
)

var resetCmd = &cobra.Command{
	Use:   "reset <repo-id>",
	Short: "Delete every node for a repository, regardless of age",
	Args:  cobra.ExactArgs(1),
	RunE:  runReset,
}

var resetConfirm bool

func init() {
	resetCmd.Flags().BoolVar(&resetConfirm, "yes", false, "confirm the wipe")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	repoID := args[0]
	if !resetConfirm {
		return fmt.Errorf("refusing to reset %s without --yes", repoID)
	}

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

	deleted, err := store.Reset(ctx, repoID)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	fmt.Printf("Deleted %d node(s) for %s\n", deleted, repoID)
	return nil
}
