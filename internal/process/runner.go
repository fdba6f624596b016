// Package process runs the external tools the bootstrap depends on (git,
// cargo, rustup, the compiler's build driver) behind one narrow interface so
// the orchestration logic can be tested against a fake.
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/logging"
)

// Command is one external invocation. Label names the attempted action and
// becomes the headline of the error when the command fails.
type Command struct {
	Label string
	Name  string
	Args  []string
	Dir   string

	// ExpectedExits lists nonzero statuses the caller handles itself. They
	// are still returned as errors but are not logged as failures.
	ExpectedExits []int
}

// String renders the command line for logs and diagnostics.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes external commands.
type Runner interface {
	// Run executes cmd with inherited standard streams. A nonzero exit
	// status is returned as a *errors.CommandError carrying cmd.Label.
	Run(ctx context.Context, cmd Command) error

	// Output executes cmd and returns its captured stdout. Stderr is
	// inherited. Failures are reported the same way as Run.
	Output(ctx context.Context, cmd Command) ([]byte, error)

	// Succeeds executes cmd and reports whether it exited with status 0.
	// A nonzero exit is not an error; failing to start the process is.
	Succeeds(ctx context.Context, cmd Command) (bool, error)
}

// ExecRunner runs commands on the local host with os/exec.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *logging.Logger
}

// NewExecRunner creates a runner wired to the process's own standard
// streams. A nil logger disables command logging.
func NewExecRunner(logger *logging.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ExecRunner{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// Run executes cmd with inherited standard streams.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	return r.exec(ctx, cmd, r.Stdout)
}

// Output executes cmd and returns its captured stdout.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	var stdout bytes.Buffer
	err := r.exec(ctx, cmd, &stdout)
	return stdout.Bytes(), err
}

// Succeeds executes cmd and reports whether it exited with status 0.
func (r *ExecRunner) Succeeds(ctx context.Context, cmd Command) (bool, error) {
	err := r.exec(ctx, cmd, r.Stdout)
	if err == nil {
		return true, nil
	}
	if _, exited := errors.ExitCode(err); exited {
		return false, nil
	}
	return false, err
}

func (r *ExecRunner) exec(ctx context.Context, cmd Command, stdout io.Writer) error {
	log := r.logger().With("label", cmd.Label, "command", cmd.String(), "dir", cmd.Dir)
	log.Debug("running command")

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = r.Stdin
	c.Stdout = stdout
	c.Stderr = r.Stderr

	err := c.Run()
	if err == nil {
		log.Info("command succeeded")
		return nil
	}

	cmdErr := classify(cmd, err)
	if cmdErr.ExitCode >= 0 && slices.Contains(cmd.ExpectedExits, cmdErr.ExitCode) {
		log.Debug("command exited with expected status", "exit_code", cmdErr.ExitCode)
		return cmdErr
	}
	log.Error("command failed", "exit_code", cmdErr.ExitCode, "error", err.Error())
	return cmdErr
}

func (r *ExecRunner) logger() *logging.Logger {
	if r.Logger == nil {
		return logging.NopLogger()
	}
	return r.Logger
}

// classify converts an os/exec failure into a labeled CommandError.
func classify(cmd Command, err error) *errors.CommandError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return errors.NewCommandError(cmd.Label, errors.ErrCommandFailed).
			WithCommand(cmd.Name, cmd.Args...).
			WithDir(cmd.Dir).
			WithExitCode(exitErr.ExitCode())
	}

	cause := err
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		cause = fmt.Errorf("%w: %s", errors.ErrCommandNotFound, execErr.Name)
	}
	return errors.NewCommandError(cmd.Label, cause).
		WithCommand(cmd.Name, cmd.Args...).
		WithDir(cmd.Dir)
}
