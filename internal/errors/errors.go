// Package errors provides the error taxonomy for the toolchain bootstrapper.
// It defines sentinel errors, domain error types carrying the context of the
// failed action, and classification helpers used by the command dispatcher.
//
// # Error Types
//
// Every failure in a bootstrap run is terminal, so the types here exist to
// describe what failed rather than to drive recovery:
//   - CommandError: an external tool (git, cargo, rustup, the compiler's
//     build driver) could not be started or exited with a nonzero status
//   - FilesystemError: a directory could not be created or removed, or a
//     generated file could not be written
//   - GitError: repository-level context (checkout, branch, submodule)
//     around a lower-level failure
//
// # Usage
//
//	err := errors.NewCommandError("clone sbpf-linker", cause).
//	    WithCommand("git", "clone", "--branch", "u128_mul_libcall", url, dir).
//	    WithExitCode(128)
//
//	var cmdErr *errors.CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println(cmdErr.Label)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Process-related sentinel errors
var (
	// ErrCommandFailed indicates that an external command exited with a nonzero status.
	ErrCommandFailed = New("command exited with nonzero status")
	// ErrCommandNotFound indicates that an external command could not be located.
	ErrCommandNotFound = New("command not found")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ToolchainError is the base interface for all bootstrapper errors.
type ToolchainError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// CommandError
// -----------------------------------------------------------------------------

// CommandError is returned when an external tool fails. Label names the
// attempted action ("clone sbpf-linker", "build rust compiler") and is the
// part of the message an operator reads first.
//
// Example:
//
//	err := errors.NewCommandError("link rustup toolchain", errors.ErrCommandFailed).
//	    WithCommand("rustup", "toolchain", "link", "stage1", dir).
//	    WithExitCode(1)
//	fmt.Println(err) // "command failed: link rustup toolchain (rustup exited with status 1)"
type CommandError struct {
	baseError
	Label    string
	Command  string
	Args     []string
	Dir      string
	ExitCode int // -1 when the process never started
}

// NewCommandError creates a new CommandError for the labeled action.
func NewCommandError(label string, cause error) *CommandError {
	return &CommandError{
		baseError: baseError{
			message:    label,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Label:    label,
		ExitCode: -1,
	}
}

// WithCommand records the executable and its arguments.
func (e *CommandError) WithCommand(name string, args ...string) *CommandError {
	e.Command = name
	e.Args = append([]string(nil), args...)
	return e
}

// WithDir records the working directory the command ran in.
func (e *CommandError) WithDir(dir string) *CommandError {
	e.Dir = dir
	return e
}

// WithExitCode records the exit status of the process.
func (e *CommandError) WithExitCode(code int) *CommandError {
	e.ExitCode = code
	return e
}

// CommandLine returns the command and its arguments joined by spaces.
func (e *CommandError) CommandLine() string {
	if e.Command == "" {
		return ""
	}
	return strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
}

// Error returns the formatted error message.
func (e *CommandError) Error() string {
	msg := "command failed: " + e.Label
	switch {
	case e.ExitCode >= 0 && e.Command != "":
		return fmt.Sprintf("%s (%s exited with status %d)", msg, e.Command, e.ExitCode)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *CommandError) Is(target error) bool {
	if _, ok := target.(*CommandError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// FilesystemError
// -----------------------------------------------------------------------------

// FilesystemError wraps a failed filesystem operation with the action that
// was attempted and the path it targeted.
//
// Example:
//
//	err := errors.NewFilesystemError("create cache directory", path, cause)
//	fmt.Println(err) // "failed to create cache directory /home/u/.cache/...: permission denied"
type FilesystemError struct {
	baseError
	Op   string
	Path string
}

// NewFilesystemError creates a new FilesystemError.
func NewFilesystemError(op, path string, cause error) *FilesystemError {
	return &FilesystemError{
		baseError: baseError{
			message:    op,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Op:   op,
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *FilesystemError) Error() string {
	msg := "failed to " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *FilesystemError) Is(target error) bool {
	if _, ok := target.(*FilesystemError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// GitError
// -----------------------------------------------------------------------------

// GitError represents errors related to git operations on a checkout.
//
// Example:
//
//	err := errors.NewGitError("failed to read submodule url", cause).
//	    WithRepository("/cache/rust-compiler").
//	    WithSubmodule("src/llvm-project")
type GitError struct {
	baseError
	Repository string
	Branch     string
	Submodule  string
}

// NewGitError creates a new GitError.
func NewGitError(message string, cause error) *GitError {
	return &GitError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithRepository adds a repository path to the error context.
func (e *GitError) WithRepository(path string) *GitError {
	e.Repository = path
	return e
}

// WithBranch adds a branch name to the error context.
func (e *GitError) WithBranch(branch string) *GitError {
	e.Branch = branch
	return e
}

// WithSubmodule adds a submodule path to the error context.
func (e *GitError) WithSubmodule(path string) *GitError {
	e.Submodule = path
	return e
}

// Error returns the formatted error message.
func (e *GitError) Error() string {
	var parts []string
	if e.Repository != "" {
		parts = append(parts, fmt.Sprintf("repo=%s", e.Repository))
	}
	if e.Branch != "" {
		parts = append(parts, fmt.Sprintf("branch=%s", e.Branch))
	}
	if e.Submodule != "" {
		parts = append(parts, fmt.Sprintf("submodule=%s", e.Submodule))
	}

	prefix := "git error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("git error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *GitError) Is(target error) bool {
	if _, ok := target.(*GitError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ToolchainError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var tcErr ToolchainError
	if As(err, &tcErr) {
		return tcErr.Severity()
	}
	return SeverityError
}

// FailedAction returns the label of the first CommandError in err's chain,
// or "" when the failure did not come from an external command.
func FailedAction(err error) string {
	var cmdErr *CommandError
	if As(err, &cmdErr) {
		return cmdErr.Label
	}
	return ""
}

// ExitCode returns the exit status recorded on a CommandError in err's chain.
// The second result is false when there is no CommandError or the process
// never started.
func ExitCode(err error) (int, bool) {
	var cmdErr *CommandError
	if As(err, &cmdErr) && cmdErr.ExitCode >= 0 {
		return cmdErr.ExitCode, true
	}
	return 0, false
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this preserves the ToolchainError interface.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
