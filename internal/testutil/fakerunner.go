package testutil

import (
	"context"
	"sync"

	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/process"
)

// FakeRunner is a scripted process.Runner that records every command it is
// asked to run. Responses are keyed by the command's label.
type FakeRunner struct {
	mu sync.Mutex

	// Calls holds every command in invocation order.
	Calls []process.Command

	// ExitCodes makes the labeled command exit with the given status.
	// For Succeeds a nonzero code yields false without an error.
	ExitCodes map[string]int

	// Outputs is the stdout returned by Output for the labeled command.
	Outputs map[string]string

	// Hooks run before the labeled command "exits", letting tests simulate
	// side effects such as a clone creating its directory.
	Hooks map[string]func(cmd process.Command) error
}

var _ process.Runner = (*FakeRunner)(nil)

// NewFakeRunner returns a FakeRunner on which every command succeeds.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		ExitCodes: make(map[string]int),
		Outputs:   make(map[string]string),
		Hooks:     make(map[string]func(cmd process.Command) error),
	}
}

// FailOn makes the labeled command exit with code.
func (f *FakeRunner) FailOn(label string, code int) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ExitCodes[label] = code
	return f
}

// OnRun registers a side effect for the labeled command.
func (f *FakeRunner) OnRun(label string, hook func(cmd process.Command) error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Hooks[label] = hook
	return f
}

// SetOutput sets the stdout returned for the labeled command.
func (f *FakeRunner) SetOutput(label, out string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Outputs[label] = out
	return f
}

// Run records cmd and returns its scripted result.
func (f *FakeRunner) Run(_ context.Context, cmd process.Command) error {
	return f.invoke(cmd)
}

// Output records cmd and returns its scripted stdout.
func (f *FakeRunner) Output(_ context.Context, cmd process.Command) ([]byte, error) {
	if err := f.invoke(cmd); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(f.Outputs[cmd.Label]), nil
}

// Succeeds records cmd and reports whether its scripted exit code is 0.
func (f *FakeRunner) Succeeds(_ context.Context, cmd process.Command) (bool, error) {
	err := f.invoke(cmd)
	if err == nil {
		return true, nil
	}
	if _, exited := errors.ExitCode(err); exited {
		return false, nil
	}
	return false, err
}

// Labels returns the labels of all recorded calls in order.
func (f *FakeRunner) Labels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	labels := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		labels[i] = c.Label
	}
	return labels
}

// Called reports whether a command with label was recorded.
func (f *FakeRunner) Called(label string) bool {
	return f.Index(label) >= 0
}

// Index returns the position of the first call with label, or -1.
func (f *FakeRunner) Index(label string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, c := range f.Calls {
		if c.Label == label {
			return i
		}
	}
	return -1
}

// Reset forgets recorded calls but keeps the script.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}

func (f *FakeRunner) invoke(cmd process.Command) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	hook := f.Hooks[cmd.Label]
	code, failing := f.ExitCodes[cmd.Label]
	f.mu.Unlock()

	if hook != nil {
		if err := hook(cmd); err != nil {
			return err
		}
	}
	if failing && code != 0 {
		return errors.NewCommandError(cmd.Label, errors.ErrCommandFailed).
			WithCommand(cmd.Name, cmd.Args...).
			WithDir(cmd.Dir).
			WithExitCode(code)
	}
	return nil
}
