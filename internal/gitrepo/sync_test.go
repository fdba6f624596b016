package gitrepo

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
	"github.com/Iron-Ham/u128bpf/internal/testutil"
)

func quietRunner() *process.ExecRunner {
	return &process.ExecRunner{
		Stdout: io.Discard,
		Stderr: io.Discard,
		Logger: logging.NopLogger(),
	}
}

func TestSyncResult_String(t *testing.T) {
	tests := []struct {
		r    SyncResult
		want string
	}{
		{Cloned, "cloned"},
		{Skipped, "skipped"},
		{SyncResult(7), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("SyncResult(%d).String() = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestEnsure_ClonesWhenAbsent(t *testing.T) {
	fs := afero.NewMemMapFs()
	runner := testutil.NewFakeRunner()
	s := NewSynchronizer(runner, fs, nil)

	repo := Repository{Name: "sbpf-linker", URL: "https://example.com/linker", Branch: "feature", Dir: "/cache/sbpf-linker"}
	result, err := s.Ensure(context.Background(), repo)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if result != Cloned {
		t.Errorf("Ensure() = %v, want %v", result, Cloned)
	}

	if len(runner.Calls) != 1 {
		t.Fatalf("expected 1 command, got %d: %v", len(runner.Calls), runner.Labels())
	}
	got := runner.Calls[0]
	want := "git clone --branch feature https://example.com/linker /cache/sbpf-linker"
	if got.String() != want {
		t.Errorf("command = %q, want %q", got.String(), want)
	}
	if got.Label != "clone sbpf-linker" {
		t.Errorf("label = %q, want %q", got.Label, "clone sbpf-linker")
	}
}

func TestEnsure_SkipsExistingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/cache/rust-compiler", 0755); err != nil {
		t.Fatal(err)
	}
	runner := testutil.NewFakeRunner()
	s := NewSynchronizer(runner, fs, nil)

	result, err := s.Ensure(context.Background(), Repository{Name: "rust compiler", Dir: "/cache/rust-compiler"})
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if result != Skipped {
		t.Errorf("Ensure() = %v, want %v", result, Skipped)
	}
	if len(runner.Calls) != 0 {
		t.Errorf("expected no commands, got %v", runner.Labels())
	}
}

func TestEnsure_CloneFailure(t *testing.T) {
	runner := testutil.NewFakeRunner().FailOn("clone sbpf-linker", 128)
	s := NewSynchronizer(runner, afero.NewMemMapFs(), nil)

	_, err := s.Ensure(context.Background(), Repository{Name: "sbpf-linker", Dir: "/cache/sbpf-linker"})
	if err == nil {
		t.Fatal("Ensure() should fail when clone fails")
	}
	if got := errors.FailedAction(err); got != "clone sbpf-linker" {
		t.Errorf("FailedAction() = %q, want %q", got, "clone sbpf-linker")
	}
	if code, ok := errors.ExitCode(err); !ok || code != 128 {
		t.Errorf("ExitCode() = %d, %v, want 128, true", code, ok)
	}
	var gitErr *errors.GitError
	if !errors.As(err, &gitErr) || gitErr.Repository != "/cache/sbpf-linker" {
		t.Errorf("error = %v, want GitError for /cache/sbpf-linker", err)
	}
}

func TestEnsure_RealClone(t *testing.T) {
	testutil.SkipIfNoGit(t)

	upstream := testutil.SetupTestRepoWithBranch(t, "u128_mul_libcall", "libcall.txt", "u128 multiply\n")
	dest := filepath.Join(t.TempDir(), "sbpf-linker")

	s := NewSynchronizer(quietRunner(), afero.NewOsFs(), nil)
	repo := Repository{Name: "sbpf-linker", URL: upstream, Branch: "u128_mul_libcall", Dir: dest}

	result, err := s.Ensure(context.Background(), repo)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if result != Cloned {
		t.Errorf("first Ensure() = %v, want %v", result, Cloned)
	}
	if branch := testutil.GetCurrentBranch(t, dest); branch != "u128_mul_libcall" {
		t.Errorf("checked out %q, want %q", branch, "u128_mul_libcall")
	}
	if _, err := os.Stat(filepath.Join(dest, "libcall.txt")); err != nil {
		t.Errorf("branch content missing: %v", err)
	}

	// A local edit survives the second run untouched.
	local := filepath.Join(dest, "local.txt")
	if err := os.WriteFile(local, []byte("mine"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err = s.Ensure(context.Background(), repo)
	if err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	if result != Skipped {
		t.Errorf("second Ensure() = %v, want %v", result, Skipped)
	}
	if data, err := os.ReadFile(local); err != nil || string(data) != "mine" {
		t.Errorf("local edit was disturbed: %q, %v", data, err)
	}
}
