// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds global configuration, following the teacher's
// Config/DefaultConfig/LoadConfig shape with file-not-found falling back to
// defaults. Storage carries the two backing stores (graph, heartbeat
// cache); Indexing carries every §6-enumerated tuning knob.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Indexing IndexingConfig `yaml:"indexing"`
	Retry    RetryConfig    `yaml:"retry"`
	Clone    CloneConfig    `yaml:"clone"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig dials the two backing stores (spec.md §6).
type StorageConfig struct {
	GraphDBURI      string `yaml:"graph_db_uri"`
	GraphDBUsername string `yaml:"graph_db_username"`
	GraphDBPassword string `yaml:"graph_db_password"`
	GraphDBDatabase string `yaml:"graph_db_database"`
	RedisURL        string `yaml:"redis_url"`
}

// IndexingConfig is spec.md §6's enumerated indexing tuning surface.
type IndexingConfig struct {
	SoftFileLimitBytes int64 `yaml:"soft_file_limit_bytes"`
	HardFileLimitBytes int64 `yaml:"hard_file_limit_bytes"`
	MaxSymbolsPerFile  int   `yaml:"max_symbols_per_file"`
	TextChunkSize      int   `yaml:"text_chunk_size"`
	TextChunkOverlap   int   `yaml:"text_chunk_overlap"`
	SymbolBatchSize    int   `yaml:"symbol_batch_size"`
	GCIntervalBatches  int   `yaml:"gc_interval_batches"`
	KGTTLDays          int   `yaml:"kg_ttl_days"`

	// HeartbeatIntervalSeconds is the liveness interval (spec.md §5, §9's
	// heartbeat design note); cmd/kg-index sets the heartbeat record's TTL
	// to twice this value.
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_s"`
}

// RetryConfig tunes the workflow driver's exponential backoff (spec.md §6).
type RetryConfig struct {
	MaxAttempts        int     `yaml:"retry_max_attempts"`
	InitialIntervalS   int     `yaml:"retry_initial_interval_s"`
	MaxIntervalS       int     `yaml:"retry_max_interval_s"`
	BackoffCoefficient float64 `yaml:"retry_backoff_coefficient"`
}

// CloneConfig tunes C9 (spec.md §6).
type CloneConfig struct {
	TimeoutS      int   `yaml:"clone_timeout_s"`
	MaxCloneSizeMB int64 `yaml:"max_clone_size_mb"`
}

// LoggingConfig matches the teacher's shape, retained for the CLI's
// slog handler configuration (ambient stack, SPEC_FULL.md §1).
type LoggingConfig struct {
	Level     string `yaml:"level"` // error|warn|info|debug
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// RepoConfig holds per-repository configuration, loaded from a
// `.kg-index.yaml` at the repository root (renamed from the teacher's
// `.ai-devtools.yaml`, spec.md's expanded ambient stack, SPEC_FULL.md §1).
type RepoConfig struct {
	Name          string   `yaml:"name"`
	DefaultBranch string   `yaml:"default_branch"`
	Include       []string `yaml:"include"`
	Exclude       []string `yaml:"exclude"`
}

// DefaultConfig returns spec.md §6's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			GraphDBURI:      "bolt://localhost:7687",
			GraphDBUsername: "neo4j",
			GraphDBDatabase: "neo4j",
			RedisURL:        "redis://localhost:6379",
		},
		Indexing: IndexingConfig{
			SoftFileLimitBytes:       1_000_000,
			HardFileLimitBytes:       10_000_000,
			MaxSymbolsPerFile:        500,
			TextChunkSize:            1000,
			TextChunkOverlap:         200,
			SymbolBatchSize:          50,
			GCIntervalBatches:        5,
			KGTTLDays:                30,
			HeartbeatIntervalSeconds: 30,
		},
		Retry: RetryConfig{
			MaxAttempts:        3,
			InitialIntervalS:   10,
			MaxIntervalS:       30,
			BackoffCoefficient: 2.0,
		},
		Clone: CloneConfig{
			TimeoutS:       300,
			MaxCloneSizeMB: 2048,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 50,
			MaxFiles:  3,
		},
	}
}

// KGTTL returns Indexing.KGTTLDays as a time.Duration.
func (c *Config) KGTTL() time.Duration {
	return time.Duration(c.Indexing.KGTTLDays) * 24 * time.Hour
}

// HeartbeatInterval returns Indexing.HeartbeatIntervalSeconds as a
// time.Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Indexing.HeartbeatIntervalSeconds) * time.Second
}

// LoadConfig loads config from file or returns defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadRepoConfig loads .kg-index.yaml from repo root.
func LoadRepoConfig(repoPath string) (*RepoConfig, error) {
	path := filepath.Join(repoPath, ".kg-index.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		CodeIndex RepoConfig `yaml:"code-index"`
	}

	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}

	return &wrapper.CodeIndex, nil
}
