// Package gitrepo prepares the toolchain's git checkouts: cloning the
// external repositories and pinning the compiler's LLVM submodule to the
// required fork and branch.
package gitrepo

import (
	"context"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
)

// Repository describes one checkout the bootstrap needs.
type Repository struct {
	// Name is the human-readable name used in labels ("sbpf-linker").
	Name   string
	URL    string
	Branch string
	Dir    string
}

// SyncResult reports what Ensure did.
type SyncResult int

const (
	// Cloned means the checkout was absent and has been cloned.
	Cloned SyncResult = iota
	// Skipped means the directory already existed and was left alone.
	Skipped
)

func (r SyncResult) String() string {
	switch r {
	case Cloned:
		return "cloned"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Synchronizer makes sure a repository is checked out locally.
type Synchronizer struct {
	runner process.Runner
	fs     afero.Fs
	logger *logging.Logger
}

// NewSynchronizer creates a Synchronizer. A nil logger disables logging.
func NewSynchronizer(runner process.Runner, fs afero.Fs, logger *logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Synchronizer{runner: runner, fs: fs, logger: logger}
}

// Ensure clones repo into repo.Dir unless the directory already exists.
// An existing directory is trusted as-is: its remote and branch are not
// checked.
func (s *Synchronizer) Ensure(ctx context.Context, repo Repository) (SyncResult, error) {
	exists, err := afero.Exists(s.fs, repo.Dir)
	if err != nil {
		return Cloned, errors.NewFilesystemError("inspect checkout", repo.Dir, err)
	}
	if exists {
		s.logger.Info("checkout exists, skipping clone", "repo", repo.Name, "dir", repo.Dir)
		return Skipped, nil
	}

	err = s.runner.Run(ctx, process.Command{
		Label: "clone " + repo.Name,
		Name:  "git",
		Args:  []string{"clone", "--branch", repo.Branch, repo.URL, repo.Dir},
	})
	if err != nil {
		return Cloned, errors.NewGitError("failed to clone "+repo.URL, err).
			WithRepository(repo.Dir).
			WithBranch(repo.Branch)
	}

	s.logger.Info("cloned repository", "repo", repo.Name, "url", repo.URL, "branch", repo.Branch, "dir", repo.Dir)
	return Cloned, nil
}
