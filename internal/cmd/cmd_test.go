package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/u128bpf/internal/config"
	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/genconfig"
	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
	"github.com/Iron-Ham/u128bpf/internal/testutil"
	"github.com/Iron-Ham/u128bpf/internal/toolchain"
	"github.com/Iron-Ham/u128bpf/internal/workspace"
)

// testEnv isolates one command invocation: a throwaway project and cache
// directory, a user config dir with no config file, and fakes for the
// external tools and filesystem.
type testEnv struct {
	project string
	cache   string
	runner  *testutil.FakeRunner
	fs      afero.Fs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	env := &testEnv{
		project: t.TempDir(),
		cache:   t.TempDir(),
		runner:  testutil.NewFakeRunner(),
		fs:      afero.NewMemMapFs(),
	}

	origRunner, origFs := newRunner, newFs
	newRunner = func(*logging.Logger) process.Runner { return env.runner }
	newFs = func() afero.Fs { return env.fs }
	t.Cleanup(func() {
		newRunner, newFs = origRunner, origFs
	})

	return env
}

// execute runs the root command with the environment's paths. Flags keep
// their values between executions of the shared root command, so every
// global flag is passed explicitly; later occurrences in args win.
func (e *testEnv) execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)

	full := append([]string{
		"--project-root", e.project,
		"--cache-dir", e.cache,
		"--log-level", "info",
	}, args...)
	rootCmd.SetArgs(full)

	err := rootCmd.Execute()
	return buf.String(), err
}

func (e *testEnv) cacheRoot() string {
	return filepath.Join(e.cache, workspace.CacheDirName)
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "xtask" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "xtask")
	}

	expected := []string{"setup", "build-linker", "build-compiler", "build", "paths", "config"}
	cmdMap := make(map[string]*cobra.Command)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = c
	}
	for _, name := range expected {
		if _, ok := cmdMap[name]; !ok {
			t.Errorf("missing subcommand %q", name)
		}
	}

	for _, flag := range []string{"config", "project-root", "cache-dir", "log-level"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing global flag --%s", flag)
		}
	}
}

func TestPathsCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute("paths")
	if err != nil {
		t.Fatalf("paths error = %v", err)
	}

	for _, want := range []string{
		env.project,
		env.cacheRoot(),
		filepath.Join(env.cacheRoot(), "sbpf-linker", "target", "release", "sbpf-linker"),
		filepath.Join(env.cacheRoot(), "rust-compiler", "build", "host", "stage0"),
		filepath.Join(env.project, ".cargo", "config.toml"),
		"configured linker: (none)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("paths output missing %q:\n%s", want, out)
		}
	}
	if len(env.runner.Calls) != 0 {
		t.Errorf("paths must not run commands, got %v", env.runner.Labels())
	}
	if _, err := os.Stat(env.cacheRoot()); !os.IsNotExist(err) {
		t.Error("paths must not create the cache root")
	}
}

func TestPathsCommand_StaleLinker(t *testing.T) {
	env := newTestEnv(t)

	cfg := genconfig.NewCargoConfig("/old/sbpf-linker", toolchain.DefaultSpec())
	data, err := genconfig.Render(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(env.fs, filepath.Join(env.project, ".cargo", "config.toml"), data, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := env.execute("paths")
	if err != nil {
		t.Fatalf("paths error = %v", err)
	}
	if !strings.Contains(out, "/old/sbpf-linker (stale, run build-linker)") {
		t.Errorf("stale linker not reported:\n%s", out)
	}
}

func TestBuildCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute("build")
	if err != nil {
		t.Fatalf("build error = %v", err)
	}

	if got := env.runner.Labels(); len(got) != 1 || got[0] != "build project" {
		t.Fatalf("commands = %v, want [build project]", got)
	}
	call := env.runner.Calls[0]
	if call.Dir != env.project {
		t.Errorf("build ran in %q, want %q", call.Dir, env.project)
	}
	if !strings.Contains(out, "Build complete!") {
		t.Errorf("output missing completion message:\n%s", out)
	}

	logData, err := os.ReadFile(filepath.Join(env.cacheRoot(), logging.FileName))
	if err != nil {
		t.Fatalf("run log not written: %v", err)
	}
	if !strings.Contains(string(logData), `"stage":"build"`) {
		t.Errorf("run log missing build stage entries:\n%s", logData)
	}
}

func TestBuildCommand_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.runner.FailOn("build project", 101)

	_, err := env.execute("build")
	if err == nil {
		t.Fatal("build should fail")
	}
	if code, ok := errors.ExitCode(err); !ok || code != 101 {
		t.Errorf("ExitCode() = %d, %v, want 101", code, ok)
	}
	if !strings.Contains(err.Error(), "command failed: build project") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestBuildLinkerCommand(t *testing.T) {
	env := newTestEnv(t)
	env.runner.OnRun("clone sbpf-linker", func(c process.Command) error {
		return env.fs.MkdirAll(c.Args[len(c.Args)-1], 0755)
	})

	out, err := env.execute("build-linker")
	if err != nil {
		t.Fatalf("build-linker error = %v", err)
	}

	want := []string{"clone sbpf-linker", "build sbpf-linker"}
	if got := env.runner.Labels(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("commands = %v, want %v", got, want)
	}

	cfg, err := genconfig.LoadCargoConfig(env.fs, filepath.Join(env.project, ".cargo", "config.toml"))
	if err != nil {
		t.Fatalf("cargo config not written: %v", err)
	}
	wantLinker := filepath.Join(env.cacheRoot(), "sbpf-linker", "target", "release", "sbpf-linker")
	if linker, _ := cfg.Linker("bpfel-unknown-none"); linker != wantLinker {
		t.Errorf("configured linker = %q, want %q", linker, wantLinker)
	}
	if !strings.Contains(out, "[3/3] Updating .cargo/config.toml with linker path...") {
		t.Errorf("output missing final step:\n%s", out)
	}
}

func TestBuildCompilerCommand(t *testing.T) {
	env := newTestEnv(t)
	env.runner.SetOutput("read llvm submodule url", "https://github.com/blueshift-gg/llvm-project.git")

	compilerDir := filepath.Join(env.cacheRoot(), "rust-compiler")
	if err := env.fs.MkdirAll(compilerDir, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := env.execute("build-compiler"); err != nil {
		t.Fatalf("build-compiler error = %v", err)
	}

	for _, label := range []string{"update llvm submodule", "build rust compiler", "link rustup toolchain"} {
		if !env.runner.Called(label) {
			t.Errorf("%q did not run: %v", label, env.runner.Labels())
		}
	}
	if env.runner.Called("clone rust compiler") || env.runner.Called("build sbpf-linker") {
		t.Errorf("unexpected commands: %v", env.runner.Labels())
	}
	if ok, _ := afero.Exists(env.fs, filepath.Join(compilerDir, "bootstrap.toml")); !ok {
		t.Error("bootstrap.toml was not written")
	}
}

func TestSetupCommand_StopsOnLinkerFailure(t *testing.T) {
	env := newTestEnv(t)
	env.runner.FailOn("clone sbpf-linker", 128)

	_, err := env.execute("setup")
	if got := errors.FailedAction(err); got != "clone sbpf-linker" {
		t.Fatalf("FailedAction() = %q (err %v)", got, err)
	}
	if env.runner.Called("clone rust compiler") {
		t.Error("compiler stage ran after linker failure")
	}
}

func TestInvalidConfiguration(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.execute("build", "--log-level", "loud")
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("error = %v, want logging.level validation error", err)
	}
	if len(env.runner.Calls) != 0 {
		t.Errorf("no commands should run with invalid config, got %v", env.runner.Labels())
	}
}

func TestConfigShowCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute("config", "show", "--log-level", "debug")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{
		"Config file: (none - using defaults)",
		"level: debug",
		"project_root: " + env.project,
		"color: true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestConfigPathAndInit(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute("config", "path")
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	path := strings.TrimSpace(out)
	if !strings.HasSuffix(path, filepath.Join("u128bpf", "config.yaml")) {
		t.Errorf("config path = %q", path)
	}

	if _, err := env.execute("config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	data, err := afero.ReadFile(env.fs, path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	var written config.Config
	if err := yaml.Unmarshal(data, &written); err != nil {
		t.Fatalf("config file is not valid YAML: %v\n%s", err, data)
	}
	if diff := cmp.Diff(*config.Default(), written); diff != "" {
		t.Errorf("generated config differs from defaults (-want +got):\n%s", diff)
	}

	if _, err := env.execute("config", "init"); err == nil {
		t.Error("second config init should refuse to overwrite")
	}
}
