package pipeline

import (
	"io"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
	"github.com/Iron-Ham/u128bpf/internal/toolchain"
	"github.com/Iron-Ham/u128bpf/internal/workspace"
)

// Stage names one unit of bootstrap work.
type Stage string

const (
	// StageLinker builds sbpf-linker and wires it into the project.
	StageLinker Stage = "linker"

	// StageCompiler builds and registers the patched compiler.
	StageCompiler Stage = "compiler"

	// StageBuild builds the downstream project.
	StageBuild Stage = "build"
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// Config holds the required inputs of a Pipeline.
type Config struct {
	Spec  toolchain.Spec  // Fixed toolchain description
	Paths workspace.Paths // Locations resolved for this run
}

// pipelineConfig holds optional settings for the Pipeline.
type pipelineConfig struct {
	runner process.Runner
	fs     afero.Fs
	out    io.Writer
	logger *logging.Logger
	color  bool
}
