// Package clone implements C9: fetch an exact commit SHA of a repository
// into an isolated, deterministic working directory.
//
// Grounded on original_source/src/services/repo_clone_service.py for the
// operation sequence (init -> add remote -> shallow fetch of the exact SHA ->
// detached checkout -> integrity check -> size check) and on
// petar-djukic-go-coder/internal/git/git.go for the go-git wrapper idiom
// (a small Repo struct around *gogit.Repository, sentinel errors, Config
// struct). The teacher never clones — internal/sync/daemon.go's
// getGitHead-by-reading-.git/HEAD fallback is reused here as the
// integrity-check path so validating HEAD after clone costs no extra
// network round trip.
package clone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/reviewforge/kgindex/internal/kgerr"
)

// Result is C9's activity result (spec.md §6: clone -> {local_path, commit_sha}).
type Result struct {
	LocalPath string
	CommitSHA string
}

// TokenMinter mints a short-lived access token for one installation. The
// concrete source-host client is out of scope (spec.md §1); Core only
// consumes this callable (spec.md §6's Credentials.mint).
type TokenMinter func(ctx context.Context, installationID string) (token string, err error)

// Options configures one clone operation.
type Options struct {
	TmpDir          string // parent directory for the deterministic clone path
	RepoID          string
	RepoURL         string
	CommitSHA       string // required; branch-to-SHA resolution is the caller's job (ResolveRef)
	InstallationID  string
	MintToken       TokenMinter
	MaxCloneSizeMB  int64
}

// Service clones exact commits into isolated, reusable paths.
type Service struct{}

// NewService returns a ready-to-use clone Service. It holds no state: every
// activity opens and closes its own I/O (spec.md §4.8).
func NewService() *Service { return &Service{} }

// Path computes the deterministic clone path for (repoID, commitSHA),
// spec.md §4.9's `<tmp>/<repo_id>-<commit_sha>`.
func Path(tmpDir, repoID, commitSHA string) string {
	return filepath.Join(tmpDir, fmt.Sprintf("%s-%s", repoID, commitSHA))
}

// Clone fetches exactly opts.CommitSHA at depth 1 into the deterministic
// path, reusing it if it already exists (spec.md §4.9). On any failure the
// partially-written directory is removed so a retry starts clean.
func (s *Service) Clone(ctx context.Context, opts Options) (*Result, error) {
	if opts.CommitSHA == "" {
		return nil, kgerr.New(kgerr.CloneNonRetryable, "Clone", fmt.Errorf("commit sha is required"))
	}

	dest := Path(opts.TmpDir, opts.RepoID, opts.CommitSHA)
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		sha, err := localHeadSHA(dest)
		if err == nil && sha == opts.CommitSHA {
			return &Result{LocalPath: dest, CommitSHA: sha}, nil
		}
		// Stale/partial reuse candidate: wipe and re-clone.
		os.RemoveAll(dest)
	}

	auth, err := s.authMethod(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Atomic staging: clone into a sibling temp directory, then rename into
	// place, so two concurrent clones of the same (repo_id, commit_sha)
	// cannot race into a half-written dest (original_source's
	// temp_path = f"{local_path}.tmp-{pid}" then os.rename).
	staging := fmt.Sprintf("%s.tmp-%d", dest, os.Getpid())
	os.RemoveAll(staging)

	if err := os.MkdirAll(opts.TmpDir, 0o755); err != nil {
		return nil, kgerr.New(kgerr.CloneRetryable, "Clone", err)
	}

	if err := s.fetchAndCheckout(ctx, staging, opts, auth); err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	if err := os.Rename(staging, dest); err != nil {
		os.RemoveAll(staging)
		return nil, kgerr.New(kgerr.CloneRetryable, "Clone", err)
	}

	sha, err := localHeadSHA(dest)
	if err != nil {
		os.RemoveAll(dest)
		return nil, kgerr.New(kgerr.SHAValidationFailure, "Clone", err)
	}
	if sha != opts.CommitSHA {
		os.RemoveAll(dest)
		return nil, kgerr.New(kgerr.SHAValidationFailure, "Clone",
			fmt.Errorf("HEAD %s does not match requested commit %s", sha, opts.CommitSHA))
	}

	if opts.MaxCloneSizeMB > 0 {
		sizeMB, err := dirSizeMB(dest)
		if err == nil && sizeMB > opts.MaxCloneSizeMB {
			os.RemoveAll(dest)
			return nil, kgerr.New(kgerr.ResourceExhausted, "Clone",
				fmt.Errorf("clone size %dMB exceeds cap %dMB", sizeMB, opts.MaxCloneSizeMB))
		}
	}

	return &Result{LocalPath: dest, CommitSHA: sha}, nil
}

// fetchAndCheckout runs init -> add remote -> shallow fetch of the exact SHA
// (depth 1) -> detached checkout, per spec.md §4.9.
func (s *Service) fetchAndCheckout(ctx context.Context, path string, opts Options, auth *http.BasicAuth) error {
	repo, err := gogit.PlainInitWithOptions(path, &gogit.PlainInitOptions{Bare: false})
	if err != nil {
		return kgerr.New(kgerr.CloneRetryable, "init", err)
	}

	remote, err := repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{opts.RepoURL}})
	if err != nil {
		return kgerr.New(kgerr.CloneRetryable, "add remote", err)
	}

	refSpec := config.RefSpec(fmt.Sprintf("%s:refs/remotes/origin/%s", opts.CommitSHA, opts.CommitSHA))
	err = remote.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{refSpec},
		Depth:      1,
		Auth:       authOrNil(auth),
		Tags:       gogit.NoTags,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return classifyFetchError(err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return kgerr.New(kgerr.CloneRetryable, "worktree", err)
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{
		Hash:  plumbing.NewHash(opts.CommitSHA),
		Force: true,
	}); err != nil {
		return kgerr.New(kgerr.CloneRetryable, "checkout", err)
	}

	return nil
}

func authOrNil(auth *http.BasicAuth) *http.BasicAuth {
	if auth == nil {
		return nil
	}
	return auth
}

// authMethod mints a token via opts.MintToken (Credentials.mint, spec.md §6)
// and wraps it as an in-process BasicAuth. go-git performs the fetch without
// shelling to the git binary, so no on-disk credential/askpass script is
// ever created — a deliberate deviation from the original's temp-script
// mechanism, recorded in DESIGN.md.
func (s *Service) authMethod(ctx context.Context, opts Options) (*http.BasicAuth, error) {
	if opts.MintToken == nil {
		return nil, nil
	}
	token, err := opts.MintToken(ctx, opts.InstallationID)
	if err != nil {
		return nil, classifyAuthError(err)
	}
	if token == "" {
		return nil, nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: token}, nil
}

// classifyFetchError distinguishes auth/permission/not-found failures
// (non-retryable, spec.md §7) from everything else (retryable).
func classifyFetchError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "404") ||
		strings.Contains(msg, "authentication") || strings.Contains(msg, "unauthorized") {
		return kgerr.New(kgerr.CloneNonRetryable, "fetch", err)
	}
	return kgerr.New(kgerr.CloneRetryable, "fetch", err)
}

func classifyAuthError(err error) error {
	return kgerr.New(kgerr.CloneNonRetryable, "mint token", err)
}

// localHeadSHA reads the checked-out HEAD commit hash directly from the
// working tree's plumbing through go-git, a local read with no network
// round trip, rather than shelling to `git rev-parse HEAD`.
func localHeadSHA(path string) (string, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}

func dirSizeMB(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total / (1024 * 1024), err
}

// Cleanup best-effort removes the working directory (spec.md §4.8 stage 6,
// §6's `cleanup_failed` status). Failures are returned, not panicked on —
// the caller logs and continues rather than failing the workflow.
func Cleanup(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(path)
}

// ResolveRef resolves branch to a commit SHA via a remote listing, for
// callers that supply only a branch name (spec.md §4.9). It never clones.
func (s *Service) ResolveRef(ctx context.Context, opts Options, branch string) (string, error) {
	auth, err := s.authMethod(ctx, opts)
	if err != nil {
		return "", err
	}

	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{Name: "origin", URLs: []string{opts.RepoURL}})
	refs, err := remote.ListContext(ctx, &gogit.ListOptions{Auth: authOrNil(auth)})
	if err != nil {
		return "", classifyFetchError(err)
	}

	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return ref.Hash().String(), nil
		}
	}
	return "", kgerr.New(kgerr.CloneNonRetryable, "ResolveRef", fmt.Errorf("branch %q not found", branch))
}
