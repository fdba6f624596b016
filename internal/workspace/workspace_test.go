package workspace

import (
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/toolchain"
)

func pinnedLocator(env map[string]string, wd, cache string) *Locator {
	return &Locator{
		LookupEnv: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
		Getwd: func() (string, error) { return wd, nil },
		UserCacheDir: func() (string, error) {
			if cache == "" {
				return "", stderrors.New("no cache dir")
			}
			return cache, nil
		},
		TempDir: func() string { return "/tmp" },
	}
}

func TestLocate_ProjectRoot(t *testing.T) {
	tests := []struct {
		name     string
		override string
		env      map[string]string
		wd       string
		want     string
	}{
		{
			name: "working directory",
			wd:   "/work/proj",
			want: "/work/proj",
		},
		{
			name: "manifest dir wins over working directory",
			env:  map[string]string{"CARGO_MANIFEST_DIR": "/src/proj"},
			wd:   "/elsewhere",
			want: "/src/proj",
		},
		{
			name: "xtask crate directory is stripped",
			env:  map[string]string{"CARGO_MANIFEST_DIR": "/src/proj/xtask"},
			want: "/src/proj",
		},
		{
			name:     "override wins over everything",
			override: "/explicit/root",
			env:      map[string]string{"CARGO_MANIFEST_DIR": "/src/proj"},
			wd:       "/work",
			want:     "/explicit/root",
		},
		{
			name: "empty manifest dir is ignored",
			env:  map[string]string{"CARGO_MANIFEST_DIR": ""},
			wd:   "/work/proj/xtask",
			want: "/work/proj",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := pinnedLocator(tt.env, tt.wd, "/home/u/.cache")
			l.ProjectRoot = tt.override

			paths, err := l.Locate(toolchain.DefaultSpec())
			if err != nil {
				t.Fatalf("Locate() error = %v", err)
			}
			if paths.ProjectRoot != filepath.FromSlash(tt.want) {
				t.Errorf("ProjectRoot = %q, want %q", paths.ProjectRoot, tt.want)
			}
		})
	}
}

func TestLocate_CacheLayout(t *testing.T) {
	spec := toolchain.DefaultSpec()

	t.Run("platform cache root", func(t *testing.T) {
		paths, err := pinnedLocator(nil, "/p", "/home/u/.cache").Locate(spec)
		if err != nil {
			t.Fatalf("Locate() error = %v", err)
		}

		cache := filepath.Join("/home/u/.cache", CacheDirName)
		want := Paths{
			ProjectRoot:  "/p",
			CacheRoot:    cache,
			LinkerDir:    filepath.Join(cache, "sbpf-linker"),
			CompilerDir:  filepath.Join(cache, "rust-compiler"),
			LinkerBinary: filepath.Join(cache, "sbpf-linker", "target", "release", "sbpf-linker"),
		}
		if paths != want {
			t.Errorf("Locate() = %+v, want %+v", paths, want)
		}
	})

	t.Run("falls back to temp dir", func(t *testing.T) {
		paths, err := pinnedLocator(nil, "/p", "").Locate(spec)
		if err != nil {
			t.Fatalf("Locate() error = %v", err)
		}
		if want := filepath.Join("/tmp", CacheDirName); paths.CacheRoot != want {
			t.Errorf("CacheRoot = %q, want %q", paths.CacheRoot, want)
		}
	})

	t.Run("explicit cache dir", func(t *testing.T) {
		l := pinnedLocator(nil, "/p", "/home/u/.cache")
		l.CacheDir = "/fast/disk"
		paths, err := l.Locate(spec)
		if err != nil {
			t.Fatalf("Locate() error = %v", err)
		}
		if want := filepath.Join("/fast/disk", CacheDirName); paths.CacheRoot != want {
			t.Errorf("CacheRoot = %q, want %q", paths.CacheRoot, want)
		}
	})
}

func TestPaths_Derived(t *testing.T) {
	p := Paths{ProjectRoot: "/proj", CompilerDir: "/c/rust-compiler"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"cargo config", p.CargoConfigPath(), "/proj/.cargo/config.toml"},
		{"bootstrap config", p.BootstrapConfigPath(), "/c/rust-compiler/bootstrap.toml"},
		{"stage dir", p.StageDir(), "/c/rust-compiler/build/host/stage0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != filepath.FromSlash(tt.want) {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPaths_EnsureCacheRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := Paths{CacheRoot: "/cache/u128-bpf-toolchain"}

	for i := 0; i < 2; i++ {
		if err := p.EnsureCacheRoot(fs); err != nil {
			t.Fatalf("EnsureCacheRoot() run %d error = %v", i, err)
		}
	}
	if ok, _ := afero.DirExists(fs, p.CacheRoot); !ok {
		t.Error("cache root was not created")
	}

	ro := afero.NewReadOnlyFs(afero.NewMemMapFs())
	err := p.EnsureCacheRoot(ro)
	var fsErr *errors.FilesystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("EnsureCacheRoot() on read-only fs = %v, want FilesystemError", err)
	}
	if fsErr.Path != p.CacheRoot {
		t.Errorf("Path = %q, want %q", fsErr.Path, p.CacheRoot)
	}
}
