package gitrepo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
)

// Submodule is the required configuration of one submodule inside a parent
// checkout.
type Submodule struct {
	// Name is used in labels ("llvm").
	Name string
	// Path is the submodule path relative to the parent, slash separated.
	Path   string
	URL    string
	Branch string
}

// SubmoduleState is what the parent's .gitmodules currently says about a
// submodule. It is read fresh on every reconciliation.
type SubmoduleState struct {
	Path string
	// URL is empty when the submodule has no url entry.
	URL string
}

// State classifies an observed submodule against the required one.
type State int

const (
	// StateCorrect means the submodule already points at the required URL;
	// only an update is needed.
	StateCorrect State = iota
	// StateRedirect means the submodule points elsewhere (or nowhere) and
	// must be torn down and re-added.
	StateRedirect
)

func (s State) String() string {
	switch s {
	case StateCorrect:
		return "correct"
	case StateRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Classify compares an observed state with the required URL.
func Classify(observed SubmoduleState, wantURL string) State {
	if observed.URL == wantURL {
		return StateCorrect
	}
	return StateRedirect
}

// ModuleMetaDir is git's internal metadata directory for a submodule.
func ModuleMetaDir(repoDir, path string) string {
	return filepath.Join(repoDir, ".git", "modules", filepath.FromSlash(path))
}

// ModuleWorkDir is the submodule's working tree inside the parent.
func ModuleWorkDir(repoDir, path string) string {
	return filepath.Join(repoDir, filepath.FromSlash(path))
}

// gitConfigKeyMissing is the status git config exits with when the key (or
// the file) is missing.
const gitConfigKeyMissing = 1

// Reconciler pins a submodule to a required URL and branch.
type Reconciler struct {
	runner process.Runner
	fs     afero.Fs
	logger *logging.Logger
}

// NewReconciler creates a Reconciler. A nil logger disables logging.
func NewReconciler(runner process.Runner, fs afero.Fs, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Reconciler{runner: runner, fs: fs, logger: logger}
}

// Observe reads the configured URL of path from repoDir's .gitmodules.
// A missing entry is reported as an empty URL, not an error.
func (r *Reconciler) Observe(ctx context.Context, repoDir string, sm Submodule) (SubmoduleState, error) {
	out, err := r.runner.Output(ctx, process.Command{
		Label: fmt.Sprintf("read %s submodule url", sm.Name),
		Name:  "git",
		Args:  []string{"config", "--file", ".gitmodules", "submodule." + sm.Path + ".url"},
		Dir:   repoDir,

		ExpectedExits: []int{gitConfigKeyMissing},
	})
	if err != nil {
		if code, ok := errors.ExitCode(err); ok && code == gitConfigKeyMissing {
			return SubmoduleState{Path: sm.Path}, nil
		}
		return SubmoduleState{}, err
	}
	return SubmoduleState{Path: sm.Path, URL: strings.TrimSpace(string(out))}, nil
}

// Reconcile observes the submodule, brings it to the required URL and leaves
// its working tree on the required branch. It returns the state it found.
// A failure leaves the checkout partially reconciled; running Reconcile
// again starts over from whatever state it left.
func (r *Reconciler) Reconcile(ctx context.Context, repoDir string, sm Submodule) (State, error) {
	observed, err := r.Observe(ctx, repoDir, sm)
	if err != nil {
		return StateRedirect, submoduleError("failed to read submodule url", repoDir, sm, err)
	}

	state := Classify(observed, sm.URL)
	r.logger.Info("observed submodule", "path", sm.Path, "url", observed.URL, "state", state.String())

	if err := r.Apply(ctx, repoDir, sm, state); err != nil {
		return state, submoduleError("failed to reconcile submodule", repoDir, sm, err)
	}
	return state, nil
}

func submoduleError(msg, repoDir string, sm Submodule, cause error) *errors.GitError {
	return errors.NewGitError(msg, cause).
		WithRepository(repoDir).
		WithSubmodule(sm.Path).
		WithBranch(sm.Branch)
}

// Apply runs the actions for state followed by the branch checkout both
// states share.
func (r *Reconciler) Apply(ctx context.Context, repoDir string, sm Submodule, state State) error {
	switch state {
	case StateCorrect:
		if err := r.update(ctx, repoDir, sm); err != nil {
			return err
		}
	case StateRedirect:
		if err := r.clean(repoDir, sm); err != nil {
			return err
		}
		if err := r.add(ctx, repoDir, sm); err != nil {
			return err
		}
		if err := r.update(ctx, repoDir, sm); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown submodule state %d", errors.ErrInvalidInput, state)
	}

	return r.checkoutBranch(ctx, repoDir, sm)
}

// clean removes the submodule's metadata and working tree if present.
func (r *Reconciler) clean(repoDir string, sm Submodule) error {
	for _, dir := range []string{ModuleMetaDir(repoDir, sm.Path), ModuleWorkDir(repoDir, sm.Path)} {
		exists, err := afero.Exists(r.fs, dir)
		if err != nil {
			return errors.NewFilesystemError("inspect submodule directory", dir, err)
		}
		if !exists {
			continue
		}
		if err := r.fs.RemoveAll(dir); err != nil {
			return errors.NewFilesystemError("remove submodule directory", dir, err)
		}
		r.logger.Info("removed submodule directory", "dir", dir)
	}
	return nil
}

func (r *Reconciler) add(ctx context.Context, repoDir string, sm Submodule) error {
	return r.runner.Run(ctx, process.Command{
		Label: fmt.Sprintf("add %s submodule", sm.Name),
		Name:  "git",
		Args:  []string{"submodule", "add", "-f", sm.URL, sm.Path},
		Dir:   repoDir,
	})
}

func (r *Reconciler) update(ctx context.Context, repoDir string, sm Submodule) error {
	return r.runner.Run(ctx, process.Command{
		Label: fmt.Sprintf("update %s submodule", sm.Name),
		Name:  "git",
		Args:  []string{"submodule", "update", "--init", "--recursive", sm.Path},
		Dir:   repoDir,
	})
}

// checkoutBranch creates or resets the local branch to the remote branch of
// the same name, whatever the submodule had checked out before.
func (r *Reconciler) checkoutBranch(ctx context.Context, repoDir string, sm Submodule) error {
	return r.runner.Run(ctx, process.Command{
		Label: fmt.Sprintf("checkout %s %s branch", strings.ToUpper(sm.Name), sm.Branch),
		Name:  "git",
		Args:  []string{"checkout", "-B", sm.Branch, "origin/" + sm.Branch},
		Dir:   ModuleWorkDir(repoDir, sm.Path),
	})
}

// CommitPointer stages the submodule pointer and commits it with message
// when the index differs from HEAD. Only the index is compared; other
// working tree changes are not looked at. It reports whether a commit was
// made.
func (r *Reconciler) CommitPointer(ctx context.Context, repoDir string, sm Submodule, message string) (bool, error) {
	err := r.runner.Run(ctx, process.Command{
		Label: fmt.Sprintf("stage %s submodule", sm.Name),
		Name:  "git",
		Args:  []string{"add", sm.Path},
		Dir:   repoDir,
	})
	if err != nil {
		return false, submoduleError("failed to stage submodule", repoDir, sm, err)
	}

	clean, err := r.runner.Succeeds(ctx, process.Command{
		Label: fmt.Sprintf("diff staged %s submodule", sm.Name),
		Name:  "git",
		Args:  []string{"diff", "--cached", "--quiet"},
		Dir:   repoDir,
	})
	if err != nil {
		return false, submoduleError("failed to inspect index", repoDir, sm, err)
	}
	if clean {
		r.logger.Info("submodule pointer unchanged, nothing to commit", "path", sm.Path)
		return false, nil
	}

	err = r.runner.Run(ctx, process.Command{
		Label: fmt.Sprintf("commit %s submodule update", sm.Name),
		Name:  "git",
		Args:  []string{"commit", "-m", message},
		Dir:   repoDir,
	})
	if err != nil {
		return false, submoduleError("failed to commit submodule pointer", repoDir, sm, err)
	}

	r.logger.Info("committed submodule pointer", "path", sm.Path, "message", message)
	return true, nil
}
