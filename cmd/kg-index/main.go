// cmd/kg-index/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewforge/kgindex/internal/cache"
	"github.com/reviewforge/kgindex/internal/clone"
	"github.com/reviewforge/kgindex/internal/config"
	"github.com/reviewforge/kgindex/internal/metadata"
	"github.com/reviewforge/kgindex/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "kg-index",
	Short: "Code knowledge-graph indexing core",
	Long:  `Clone, parse, and persist a repository's symbol/reference graph.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kg-index v0.1.0")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getGlobalConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".kg-index-config.yaml"
	}
	return filepath.Join(homeDir, ".config", "kg-index", "config.yaml")
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// envTokenMinter mints a static token from GITHUB_TOKEN for all
// installations. The concrete GitHub App installation-token exchange is a
// source-host client concern, out of scope (spec.md §1) — this is the thin
// stand-in a CLI needs to authenticate private clones itself.
func envTokenMinter() clone.TokenMinter {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil
	}
	return func(ctx context.Context, installationID string) (string, error) {
		return token, nil
	}
}

// buildDriver wires a workflow.Driver from global config, connecting to
// Redis for heartbeats and opening the local metadata store. Both are
// optional: a Driver with d.Heartbeat == nil or d.Metadata == nil simply
// skips those stages (spec.md §4.8 treats persist_metadata as best-effort
// bookkeeping, and liveness heartbeats as a diagnostic aid, not a
// correctness dependency).
func buildDriver(cfg *config.Config, logger *slog.Logger) (*workflow.Driver, func(), error) {
	d := workflow.NewDriver()
	d.Clone = clone.NewService()
	d.GraphDBURI = cfg.Storage.GraphDBURI
	d.GraphDBUser = cfg.Storage.GraphDBUsername
	d.GraphDBPass = cfg.Storage.GraphDBPassword
	d.GraphDBName = cfg.Storage.GraphDBDatabase
	d.KGTTL = cfg.KGTTL()
	d.HeartbeatTTL = 2 * cfg.HeartbeatInterval()
	d.MaxCloneMB = cfg.Clone.MaxCloneSizeMB
	d.MintToken = envTokenMinter()
	d.Retry = workflow.RetryPolicy{
		MaxAttempts:        cfg.Retry.MaxAttempts,
		InitialInterval:    time.Duration(cfg.Retry.InitialIntervalS) * time.Second,
		MaxInterval:        time.Duration(cfg.Retry.MaxIntervalS) * time.Second,
		BackoffCoefficient: cfg.Retry.BackoffCoefficient,
	}
	d.RepoConfig.MaxSymbolsPerFile = cfg.Indexing.MaxSymbolsPerFile
	d.RepoConfig.ChunkSize = cfg.Indexing.TextChunkSize
	d.RepoConfig.ChunkOverlap = cfg.Indexing.TextChunkOverlap
	d.RepoConfig.SymbolBatchSize = cfg.Indexing.SymbolBatchSize
	d.RepoConfig.GCIntervalBatches = cfg.Indexing.GCIntervalBatches
	d.RepoConfig.SoftFileLimitBytes = cfg.Indexing.SoftFileLimitBytes
	d.RepoConfig.HardFileLimitBytes = cfg.Indexing.HardFileLimitBytes

	tmpDir, err := os.MkdirTemp("", "kg-index-clone-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create clone tmp dir: %w", err)
	}
	d.TmpDir = tmpDir

	var closers []func()
	closers = append(closers, func() { os.RemoveAll(tmpDir) })

	if cfg.Storage.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Storage.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, heartbeats disabled", "error", err)
		} else {
			d.Heartbeat = redisCache
			closers = append(closers, func() { redisCache.Close() })
		}
	}

	homeDir, _ := os.UserHomeDir()
	metaPath := filepath.Join(homeDir, ".local", "share", "kg-index", "metadata.db")
	metaStore, err := metadata.Open(metaPath)
	if err != nil {
		logger.Warn("metadata store unavailable, snapshots will not be recorded", "error", err)
	} else {
		d.Metadata = metaStore
		closers = append(closers, func() { metaStore.Close() })
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return d, cleanup, nil
}
