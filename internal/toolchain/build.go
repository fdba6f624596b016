package toolchain

import (
	"context"

	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
)

// Builder invokes the build tools for the linker, the compiler and the
// downstream project. Success is judged by exit status alone.
type Builder struct {
	runner process.Runner
	spec   Spec
	logger *logging.Logger
}

// NewBuilder creates a Builder. A nil logger disables logging.
func NewBuilder(runner process.Runner, spec Spec, logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Builder{runner: runner, spec: spec, logger: logger}
}

// BuildLinker runs a release cargo build in the linker checkout.
func (b *Builder) BuildLinker(ctx context.Context, linkerDir string) error {
	return b.run(ctx, process.Command{
		Label: "build " + b.spec.LinkerName,
		Name:  "cargo",
		Args:  []string{"build", "--release"},
		Dir:   linkerDir,
	})
}

// BuildCompiler runs the compiler's own build driver in its checkout. This
// builds LLVM from source and takes a long time.
func (b *Builder) BuildCompiler(ctx context.Context, compilerDir string) error {
	return b.run(ctx, process.Command{
		Label: "build rust compiler",
		Name:  "./x",
		Args:  []string{"build"},
		Dir:   compilerDir,
	})
}

// BuildProject builds the downstream project with the registered
// toolchain through the cargo build alias.
func (b *Builder) BuildProject(ctx context.Context, projectRoot string) error {
	return b.run(ctx, process.Command{
		Label: "build project",
		Name:  "cargo",
		Args:  []string{b.spec.ToolchainSelector(), b.spec.BuildAlias},
		Dir:   projectRoot,
	})
}

func (b *Builder) run(ctx context.Context, cmd process.Command) error {
	b.logger.Debug("starting build", "label", cmd.Label, "dir", cmd.Dir)
	if err := b.runner.Run(ctx, cmd); err != nil {
		return err
	}
	b.logger.Info("build finished", "label", cmd.Label)
	return nil
}
