// Package genconfig renders the two configuration files the bootstrap
// writes: the project's cargo config wiring in the custom linker, and the
// compiler checkout's bootstrap.toml.
package genconfig

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/toolchain"
	"github.com/Iron-Ham/u128bpf/internal/workspace"
)

// CargoConfig is the project-local .cargo/config.toml.
type CargoConfig struct {
	Unstable Unstable                `toml:"unstable"`
	Target   map[string]TargetConfig `toml:"target"`
	Alias    Alias                   `toml:"alias"`
}

// Unstable holds cargo's [unstable] table.
type Unstable struct {
	BuildStd []string `toml:"build-std"`
}

// TargetConfig holds one [target.<triple>] table.
type TargetConfig struct {
	Rustflags []string `toml:"rustflags,multiline"`
}

// Alias holds cargo's [alias] table.
type Alias struct {
	BuildBPF string `toml:"build-bpf"`
	Xtask    string `toml:"xtask"`
}

// BootstrapConfig is the compiler's bootstrap.toml.
type BootstrapConfig struct {
	ChangeID int        `toml:"change-id"`
	LLVM     LLVMConfig `toml:"llvm"`
}

// LLVMConfig holds bootstrap.toml's [llvm] table.
type LLVMConfig struct {
	DownloadCILLVM bool `toml:"download-ci-llvm"`
	Ninja          bool `toml:"ninja"`
	Optimize       bool `toml:"optimize"`
}

// NewCargoConfig builds the cargo config pointing the target at linker.
func NewCargoConfig(linker string, spec toolchain.Spec) CargoConfig {
	return CargoConfig{
		Unstable: Unstable{BuildStd: []string{"core", "alloc"}},
		Target: map[string]TargetConfig{
			spec.Target: {
				Rustflags: []string{
					"-C", "linker=" + linker,
					"-C", "panic=abort",
					"-C", "link-arg=--dump-module=llvm_dump",
					"-C", "link-arg=--llvm-args=" + spec.StackSizeArg(),
					"-C", "relocation-model=static",
				},
			},
		},
		Alias: Alias{
			BuildBPF: spec.BuildAliasCommand(),
			Xtask:    "run --package xtask --",
		},
	}
}

// NewBootstrapConfig builds the compiler bootstrap config: LLVM is built
// from the checked-out sources rather than downloaded.
func NewBootstrapConfig(spec toolchain.Spec) BootstrapConfig {
	return BootstrapConfig{
		ChangeID: spec.BootstrapChangeID,
		LLVM: LLVMConfig{
			DownloadCILLVM: false,
			Ninja:          true,
			Optimize:       true,
		},
	}
}

// Render encodes v as TOML.
func Render(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode toml: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteLinkerConfig writes the project's cargo config, replacing any
// existing file, so it always reflects the current linker location.
func WriteLinkerConfig(fs afero.Fs, paths workspace.Paths, spec toolchain.Spec) error {
	data, err := Render(NewCargoConfig(paths.LinkerBinary, spec))
	if err != nil {
		return err
	}

	path := paths.CargoConfigPath()
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewFilesystemError("create cargo config directory", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return errors.NewFilesystemError("write cargo config", path, err)
	}
	return nil
}

// EnsureBootstrapConfig writes the compiler's bootstrap.toml unless a file
// is already there. It reports whether it wrote one.
func EnsureBootstrapConfig(fs afero.Fs, paths workspace.Paths, spec toolchain.Spec) (bool, error) {
	path := paths.BootstrapConfigPath()

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return false, errors.NewFilesystemError("inspect bootstrap config", path, err)
	}
	if exists {
		return false, nil
	}

	data, err := Render(NewBootstrapConfig(spec))
	if err != nil {
		return false, err
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return false, errors.NewFilesystemError("write bootstrap config", path, err)
	}
	return true, nil
}

// LoadCargoConfig reads back a cargo config written by WriteLinkerConfig.
func LoadCargoConfig(fs afero.Fs, path string) (CargoConfig, error) {
	var cfg CargoConfig

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, errors.NewFilesystemError("read cargo config", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

// Linker returns the linker path configured for target, if any.
func (c CargoConfig) Linker(target string) (string, bool) {
	tc, ok := c.Target[target]
	if !ok {
		return "", false
	}
	for i := 0; i+1 < len(tc.Rustflags); i++ {
		if tc.Rustflags[i] != "-C" {
			continue
		}
		if v, found := strings.CutPrefix(tc.Rustflags[i+1], "linker="); found {
			return v, true
		}
	}
	return "", false
}
