// cmd/kg-index/index.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewforge/kgindex/internal/config"
	"github.com/reviewforge/kgindex/internal/workflow"
)

var indexCmd = &cobra.Command{
	Use:   "index <repo-url>",
	Short: "Run the indexing workflow once for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

var (
	indexRepoID         string
	indexDefaultBranch  string
	indexCommitSHA      string
	indexInstallationID string
)

func init() {
	indexCmd.Flags().StringVar(&indexRepoID, "repo-id", "", "stable repository identifier (default: derived from URL)")
	indexCmd.Flags().StringVar(&indexDefaultBranch, "branch", "main", "branch to resolve when --commit is not given")
	indexCmd.Flags().StringVar(&indexCommitSHA, "commit", "", "exact commit SHA to index (skips branch resolution)")
	indexCmd.Flags().StringVar(&indexInstallationID, "installation-id", "", "installation ID passed to the token minter")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	repoURL := args[0]
	repoName := repoNameFromURL(repoURL)
	repoID := indexRepoID
	if repoID == "" {
		repoID = repoName
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

	ctx := context.Background()
	result, err := driver.Run(ctx, workflow.Request{
		InstallationID: indexInstallationID,
		Repository: workflow.Repository{
			RepoID:         repoID,
			GithubRepoName: repoName,
			DefaultBranch:  indexDefaultBranch,
			RepoURL:        repoURL,
			CommitSHA:      indexCommitSHA,
		},
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println(result.Message)
	fmt.Printf("  commit:          %s\n", result.Clone.CommitSHA)
	fmt.Printf("  nodes created:   %d\n", result.PersistKG.NodesCreated)
	fmt.Printf("  nodes updated:   %d\n", result.PersistKG.NodesUpdated)
	fmt.Printf("  edges created:   %d\n", result.PersistKG.EdgesCreated)
	fmt.Printf("  edges updated:   %d\n", result.PersistKG.EdgesUpdated)
	fmt.Printf("  stale nodes gc'd: %d\n", result.CleanupStale.NodesDeleted)
	if len(result.PersistKG.Errors) > 0 {
		fmt.Printf("  persistence errors: %d\n", len(result.PersistKG.Errors))
	}
	if result.CleanupFailed {
		fmt.Printf("  warning: clone cleanup failed: %s\n", result.CleanupErr)
	}
	return nil
}

// repoNameFromURL takes the last path segment of a git URL, stripping a
// trailing .git, as the human-readable repo name (teacher's
// filepath.Base-of-path idiom, adapted from a local path to a remote URL).
func repoNameFromURL(repoURL string) string {
	name := repoURL
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			name = name[i+1:]
			break
		}
	}
	if len(name) > 4 && name[len(name)-4:] == ".git" {
		name = name[:len(name)-4]
	}
	return name
}
