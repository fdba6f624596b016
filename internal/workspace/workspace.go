// Package workspace resolves where a bootstrap run reads and writes: the
// project being built and the cache directory holding the toolchain
// checkouts. Checkouts live outside the project so the project's cargo
// workspace never sees them.
package workspace

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/toolchain"
)

const (
	// CacheDirName is the subdirectory of the platform cache root that holds
	// every toolchain checkout.
	CacheDirName = "u128-bpf-toolchain"
	// CompilerDirName is the compiler checkout's directory under the cache root.
	CompilerDirName = "rust-compiler"
	// xtaskDirName is stripped from the project root when the tool runs from
	// its own crate directory.
	xtaskDirName = "xtask"
)

// Paths is the set of locations a run operates on. It is computed once at
// startup and never persisted.
type Paths struct {
	ProjectRoot  string
	CacheRoot    string
	LinkerDir    string
	CompilerDir  string
	LinkerBinary string
}

// CargoConfigPath is the project-local cargo config wiring the linker.
func (p Paths) CargoConfigPath() string {
	return filepath.Join(p.ProjectRoot, ".cargo", "config.toml")
}

// BootstrapConfigPath is the compiler's bootstrap.toml.
func (p Paths) BootstrapConfigPath() string {
	return filepath.Join(p.CompilerDir, "bootstrap.toml")
}

// StageDir is the compiler build output registered with rustup.
func (p Paths) StageDir() string {
	return filepath.Join(p.CompilerDir, "build", "host", "stage0")
}

// EnsureCacheRoot creates the cache root if it does not exist.
func (p Paths) EnsureCacheRoot(fs afero.Fs) error {
	if err := fs.MkdirAll(p.CacheRoot, 0755); err != nil {
		return errors.NewFilesystemError("create cache directory", p.CacheRoot, err)
	}
	return nil
}

// Locator resolves Paths. The function fields default to the os package and
// exist so tests can pin the environment.
type Locator struct {
	// ProjectRoot, when set, is used verbatim instead of being discovered.
	ProjectRoot string
	// CacheDir, when set, replaces the platform cache root. CacheDirName is
	// still appended.
	CacheDir string

	LookupEnv    func(key string) (string, bool)
	Getwd        func() (string, error)
	UserCacheDir func() (string, error)
	TempDir      func() string
}

// NewLocator returns a Locator backed by the real process environment.
func NewLocator() *Locator {
	return &Locator{
		LookupEnv:    os.LookupEnv,
		Getwd:        os.Getwd,
		UserCacheDir: os.UserCacheDir,
		TempDir:      os.TempDir,
	}
}

// Locate computes the run's Paths for spec.
func (l *Locator) Locate(spec toolchain.Spec) (Paths, error) {
	root, err := l.projectRoot()
	if err != nil {
		return Paths{}, err
	}

	cacheRoot := filepath.Join(l.cacheBase(), CacheDirName)
	linkerDir := filepath.Join(cacheRoot, spec.LinkerName)

	return Paths{
		ProjectRoot:  root,
		CacheRoot:    cacheRoot,
		LinkerDir:    linkerDir,
		CompilerDir:  filepath.Join(cacheRoot, CompilerDirName),
		LinkerBinary: filepath.Join(linkerDir, "target", "release", spec.LinkerName),
	}, nil
}

// projectRoot prefers an explicit override, then CARGO_MANIFEST_DIR (set when
// launched through `cargo xtask`), then the working directory. A trailing
// xtask component is dropped so the root is the project, not the tool crate.
func (l *Locator) projectRoot() (string, error) {
	dir := l.ProjectRoot
	if dir == "" {
		if v, ok := l.lookupEnv("CARGO_MANIFEST_DIR"); ok && v != "" {
			dir = v
		}
	}
	if dir == "" {
		wd, err := l.getwd()
		if err != nil {
			return "", errors.NewFilesystemError("determine working directory", "", err)
		}
		dir = wd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.NewFilesystemError("resolve project root", dir, err)
	}
	if filepath.Base(abs) == xtaskDirName {
		abs = filepath.Dir(abs)
	}
	return abs, nil
}

// cacheBase returns the directory CacheDirName is created in, falling back
// to the temp directory when no platform cache root exists.
func (l *Locator) cacheBase() string {
	if l.CacheDir != "" {
		return l.CacheDir
	}
	if l.UserCacheDir != nil {
		if dir, err := l.UserCacheDir(); err == nil && dir != "" {
			return dir
		}
	}
	if l.TempDir != nil {
		return l.TempDir()
	}
	return os.TempDir()
}

func (l *Locator) lookupEnv(key string) (string, bool) {
	if l.LookupEnv == nil {
		return os.LookupEnv(key)
	}
	return l.LookupEnv(key)
}

func (l *Locator) getwd() (string, error) {
	if l.Getwd == nil {
		return os.Getwd()
	}
	return l.Getwd()
}
