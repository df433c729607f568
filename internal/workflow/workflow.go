// Package workflow implements C8: a Saga-style driver that composes
// clone -> parse -> persist metadata -> persist KG -> cleanup stale ->
// cleanup clone into one retryable, heartbeating pipeline per
// (repo_id, commit) request.
//
// Grounded on original_source/src/workflows/repo_indexing_workflow.py (the
// stage sequence, the retry policy's numbers, and the success message) and
// original_source/src/activities/repo_indexing_activity.py (activity result
// shapes); the retry loop's shape follows
// petar-djukic-go-coder/internal/feedback/loop.go.
// There is no Temporal dependency in the example pack, so the driver
// reimplements its retry policy and heartbeat signal directly rather than
// pulling in an unrelated workflow engine. A heartbeat is recorded when the
// Parse stage starts and again when it finishes; none is recorded while
// Parse is running.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/reviewforge/kgindex/internal/cache"
	"github.com/reviewforge/kgindex/internal/clone"
	"github.com/reviewforge/kgindex/internal/graph"
	"github.com/reviewforge/kgindex/internal/kgerr"
	"github.com/reviewforge/kgindex/internal/metadata"
	"github.com/reviewforge/kgindex/internal/repograph"
)

// Request is the workflow input (spec.md §6).
type Request struct {
	InstallationID string
	Repository     Repository
}

// Repository identifies the repo/commit this workflow run targets.
type Repository struct {
	RepoID         string
	GithubRepoName string
	DefaultBranch  string
	RepoURL        string
	CommitSHA      string // resolved from DefaultBranch via clone.Service.ResolveRef if empty
}

// RetryPolicy tunes the exponential backoff applied to retryable activity
// failures (spec.md §4.8, §6 defaults).
type RetryPolicy struct {
	MaxAttempts        int
	InitialInterval    time.Duration
	MaxInterval        time.Duration
	BackoffCoefficient float64
}

// DefaultRetryPolicy is spec.md §6's documented default.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		InitialInterval:    10 * time.Second,
		MaxInterval:        30 * time.Second,
		BackoffCoefficient: 2.0,
	}
}

// Sleeper abstracts time.Sleep so tests can run the retry loop without
// real delays.
type Sleeper func(ctx context.Context, d time.Duration) error

// RealSleeper sleeps for d or returns ctx.Err() if ctx is cancelled first.
func RealSleeper(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloneResult, ParseResult, PersistMetadataResult, PersistKGResult and
// CleanupStaleResult are the activity result shapes of spec.md §6.
type CloneResult struct {
	LocalPath string
	CommitSHA string
}

type ParseResult struct {
	GraphResult *repograph.Result
	RepoID      string
	CommitSHA   string
}

type PersistMetadataResult struct {
	Status     string
	SnapshotID string
}

type PersistKGResult struct {
	NodesCreated int
	NodesUpdated int
	EdgesCreated int
	EdgesUpdated int
	Errors       []string
}

type CleanupStaleResult struct {
	NodesDeleted int
}

// Result is the overall outcome of one workflow run.
type Result struct {
	Message       string
	Clone         CloneResult
	Parse         ParseResult
	Metadata      PersistMetadataResult
	PersistKG     PersistKGResult
	CleanupStale  CleanupStaleResult
	CleanupFailed bool
	CleanupErr    string
}

// Driver holds no long-lived connections itself; every activity opens and
// closes its own I/O (spec.md §4.8). The fields below are activity
// factories/services the driver calls into, not shared sessions.
type Driver struct {
	Clone        *clone.Service
	GraphDBURI   string
	GraphDBUser  string
	GraphDBPass  string
	GraphDBName  string
	Metadata     *metadata.Store
	Heartbeat    *cache.RedisCache
	RepoConfig   repograph.Config
	TmpDir       string
	KGTTL        time.Duration
	HeartbeatTTL time.Duration
	Retry        RetryPolicy
	Sleep        Sleeper
	MaxCloneMB   int64
	MintToken    clone.TokenMinter
	Now          func() time.Time
}

// NewDriver builds a Driver with the package defaults for any unset field
// that has one.
func NewDriver() *Driver {
	return &Driver{
		Retry: DefaultRetryPolicy(),
		Sleep: RealSleeper,
		Now:   time.Now,
	}
}

// Run executes the Saga for one request, retrying each retryable stage per
// d.Retry and aborting immediately on a non-retryable classification
// (spec.md §4.8, §7).
func (d *Driver) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}

	commitSHA := req.Repository.CommitSHA
	if commitSHA == "" {
		sha, err := runActivity(d, ctx, "resolve_ref", func(ctx context.Context) (string, error) {
			return d.Clone.ResolveRef(ctx, clone.Options{
				TmpDir: d.TmpDir, RepoID: req.Repository.RepoID,
				RepoURL: req.Repository.RepoURL, InstallationID: req.InstallationID,
				MintToken: d.MintToken,
			}, req.Repository.DefaultBranch)
		})
		if err != nil {
			return result, err
		}
		commitSHA = sha
	}

	// Stage 1: Clone.
	cloneRes, err := runActivity(d, ctx, "clone", func(ctx context.Context) (*clone.Result, error) {
		return d.Clone.Clone(ctx, clone.Options{
			TmpDir: d.TmpDir, RepoID: req.Repository.RepoID, RepoURL: req.Repository.RepoURL,
			CommitSHA: commitSHA, InstallationID: req.InstallationID,
			MintToken: d.MintToken, MaxCloneSizeMB: d.MaxCloneMB,
		})
	})
	if err != nil {
		return result, err
	}
	result.Clone = CloneResult{LocalPath: cloneRes.LocalPath, CommitSHA: cloneRes.CommitSHA}

	// From here on, the clone is a scoped resource: cleanup always runs on
	// the way out, success or failure (spec.md §4.9).
	defer func() {
		if err := clone.Cleanup(cloneRes.LocalPath); err != nil {
			result.CleanupFailed = true
			result.CleanupErr = err.Error()
		}
	}()

	// Stage 2: Parse. Emits a liveness heartbeat before starting, per
	// spec.md §4.8's "must emit liveness signals at stage start".
	d.heartbeat(ctx, req.Repository.RepoID, commitSHA)
	parseRes, err := runActivity(d, ctx, "parse", func(ctx context.Context) (*repograph.Result, error) {
		b := repograph.NewBuilder(req.Repository.RepoID, commitSHA, cloneRes.LocalPath, d.RepoConfig)
		return b.Build()
	})
	if err != nil {
		return result, err
	}
	result.Parse = ParseResult{GraphResult: parseRes, RepoID: req.Repository.RepoID, CommitSHA: commitSHA}
	d.heartbeat(ctx, req.Repository.RepoID, commitSHA)

	// Stage 3: Persist metadata.
	if d.Metadata != nil {
		snapshotID, err := runActivity(d, ctx, "persist_metadata", func(ctx context.Context) (string, error) {
			return d.Metadata.RecordSnapshot(ctx, req.Repository.RepoID, commitSHA, d.now())
		})
		if err != nil {
			return result, err
		}
		result.Metadata = PersistMetadataResult{Status: "success", SnapshotID: snapshotID}
	}

	// Stage 4: Persist KG.
	store, err := d.openGraphStore()
	if err != nil {
		return result, kgerr.New(kgerr.GraphPersistence, "persist_kg", err)
	}
	defer store.Close(context.Background())

	persistRes, err := runActivity(d, ctx, "persist_kg", func(ctx context.Context) (*PersistKGResult, error) {
		return d.persistKG(ctx, store, parseRes)
	})
	if err != nil {
		return result, err
	}
	result.PersistKG = *persistRes

	// Stage 5: Cleanup stale KG. Best-effort, not fatal (spec.md §7): on
	// failure CleanupStale stays zero and the error is dropped.
	deleted, err := runActivity(d, ctx, "cleanup_stale", func(ctx context.Context) (int, error) {
		return store.CleanupStale(ctx, req.Repository.RepoID, d.KGTTL, d.now())
	})
	if err == nil {
		result.CleanupStale = CleanupStaleResult{NodesDeleted: deleted}
	}

	// Stage 6: Cleanup clone runs via the deferred call above, regardless
	// of how this function returns.

	result.Message = fmt.Sprintf("Repo %s indexed successfully", req.Repository.GithubRepoName)
	return result, nil
}

func (d *Driver) persistKG(ctx context.Context, store *graph.Store, parseRes *repograph.Result) (*PersistKGResult, error) {
	out := &PersistKGResult{}

	nodeRes, err := store.UpsertNodes(ctx, parseRes.Nodes, d.now())
	if err != nil {
		return nil, kgerr.New(kgerr.GraphPersistence, "persist_kg:nodes", err)
	}
	out.NodesCreated += nodeRes.NodesCreated
	out.NodesUpdated += nodeRes.NodesUpdated
	out.Errors = append(out.Errors, nodeRes.Errors...)

	edgeRes, err := store.UpsertEdges(ctx, parseRes.Edges)
	if err != nil {
		return nil, kgerr.New(kgerr.GraphPersistence, "persist_kg:edges", err)
	}
	out.EdgesCreated += edgeRes.EdgesCreated
	out.EdgesUpdated += edgeRes.EdgesUpdated
	out.Errors = append(out.Errors, edgeRes.Errors...)

	return out, nil
}

func (d *Driver) openGraphStore() (*graph.Store, error) {
	store, err := graph.NewStore(d.GraphDBURI, d.GraphDBUser, d.GraphDBPass, d.GraphDBName)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		store.Close(context.Background())
		return nil, err
	}
	return store, nil
}

func (d *Driver) heartbeat(ctx context.Context, repoID, commitSHA string) {
	if d.Heartbeat == nil {
		return
	}
	_ = d.Heartbeat.RecordHeartbeat(ctx, repoID, commitSHA, d.now(), d.HeartbeatTTL)
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// runActivity runs fn, retrying per d.Retry when the failure is classified
// retryable (kgerr.Retryable) and aborting immediately otherwise (spec.md
// §4.8's error policy). op labels the activity for the wrapped error.
func runActivity[T any](d *Driver, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	policy := d.Retry
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = RealSleeper
	}

	var zero T
	var lastErr error
	interval := policy.InitialInterval

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, kgerr.New(kgerr.Cancelled, op, err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !kgerr.Retryable(err) {
			return zero, err
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return zero, kgerr.New(kgerr.Cancelled, op, err)
		}
		interval = nextInterval(interval, policy)
	}

	return zero, fmt.Errorf("%s: exhausted %d attempts: %w", op, policy.MaxAttempts, lastErr)
}

func nextInterval(current time.Duration, policy RetryPolicy) time.Duration {
	next := time.Duration(float64(current) * policy.BackoffCoefficient)
	if next > policy.MaxInterval {
		next = policy.MaxInterval
	}
	return next
}
