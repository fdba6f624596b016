package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/genconfig"
	"github.com/Iron-Ham/u128bpf/internal/gitrepo"
	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
	"github.com/Iron-Ham/u128bpf/internal/toolchain"
	"github.com/Iron-Ham/u128bpf/internal/workspace"
)

const (
	linkerSteps   = 3
	compilerSteps = 5
)

// compilerRepoName labels the compiler checkout in commands and logs.
const compilerRepoName = "rust compiler"

// Pipeline runs the bootstrap stages for one resolved workspace.
type Pipeline struct {
	cfg    Config
	fs     afero.Fs
	logger *logging.Logger
	report *Reporter

	sync      *gitrepo.Synchronizer
	submodule *gitrepo.Reconciler
	builder   *toolchain.Builder
	registrar *toolchain.Registrar
}

// NewPipeline creates a Pipeline with the given configuration and options.
func NewPipeline(cfg Config, opts ...PipelineOption) (*Pipeline, error) {
	if cfg.Paths.ProjectRoot == "" {
		return nil, errors.New("pipeline: Paths.ProjectRoot is required")
	}
	if cfg.Paths.CacheRoot == "" {
		return nil, errors.New("pipeline: Paths.CacheRoot is required")
	}

	pc := &pipelineConfig{color: true}
	for _, opt := range opts {
		opt(pc)
	}
	if pc.logger == nil {
		pc.logger = logging.NopLogger()
	}
	if pc.fs == nil {
		pc.fs = afero.NewOsFs()
	}
	if pc.out == nil {
		pc.out = os.Stdout
	}
	if pc.runner == nil {
		pc.runner = process.NewExecRunner(pc.logger)
	}

	return &Pipeline{
		cfg:       cfg,
		fs:        pc.fs,
		logger:    pc.logger,
		report:    NewReporter(pc.out, pc.color),
		sync:      gitrepo.NewSynchronizer(pc.runner, pc.fs, pc.logger),
		submodule: gitrepo.NewReconciler(pc.runner, pc.fs, pc.logger),
		builder:   toolchain.NewBuilder(pc.runner, cfg.Spec, pc.logger),
		registrar: toolchain.NewRegistrar(pc.runner, cfg.Spec, pc.logger),
	}, nil
}

// Setup prepares the whole toolchain: the linker stage, then the compiler
// stage, then prints how to use the result.
func (p *Pipeline) Setup(ctx context.Context) error {
	if err := p.SetupLinker(ctx); err != nil {
		return err
	}
	if err := p.SetupCompiler(ctx); err != nil {
		return err
	}

	spec := p.cfg.Spec
	p.report.Banner("Setup complete!",
		"Build this project with:",
		"  cargo xtask build",
		"  # or directly:",
		"  cargo "+spec.ToolchainSelector()+" "+spec.BuildAlias,
	)
	return nil
}

// SetupLinker clones and builds sbpf-linker and points the project's cargo
// config at the resulting binary.
func (p *Pipeline) SetupLinker(ctx context.Context) error {
	spec, paths := p.cfg.Spec, p.cfg.Paths
	log := p.logger.WithStage(StageLinker.String())

	if err := p.begin(log); err != nil {
		return err
	}
	p.report.Note("SBPF linker will be built in: %s", paths.LinkerDir)

	p.step(log, 1, linkerSteps, "Cloning SBPF linker...")
	result, err := p.sync.Ensure(ctx, gitrepo.Repository{
		Name:   spec.LinkerName,
		URL:    spec.LinkerRepo,
		Branch: spec.LinkerBranch,
		Dir:    paths.LinkerDir,
	})
	if err != nil {
		return p.fail(log, err)
	}
	if result == gitrepo.Skipped {
		p.report.Note("%s directory already exists, skipping clone", spec.LinkerName)
	}

	p.step(log, 2, linkerSteps, "Building SBPF linker...")
	if err := p.builder.BuildLinker(ctx, paths.LinkerDir); err != nil {
		return p.fail(log, err)
	}

	p.step(log, 3, linkerSteps, "Updating .cargo/config.toml with linker path...")
	if err := genconfig.WriteLinkerConfig(p.fs, paths, spec); err != nil {
		return p.fail(log, err)
	}

	p.report.Note("SBPF linker ready at: %s", paths.LinkerBinary)
	log.Info("linker stage complete", "linker", paths.LinkerBinary)
	return nil
}

// SetupCompiler clones the compiler, pins its LLVM submodule to the fork,
// builds it and links the stage output into rustup.
func (p *Pipeline) SetupCompiler(ctx context.Context) error {
	spec, paths := p.cfg.Spec, p.cfg.Paths
	log := p.logger.WithStage(StageCompiler.String())

	if err := p.begin(log); err != nil {
		return err
	}
	p.report.Note("Rust compiler will be built in: %s", paths.CompilerDir)

	p.step(log, 1, compilerSteps, "Cloning Rust compiler...")
	result, err := p.sync.Ensure(ctx, gitrepo.Repository{
		Name:   compilerRepoName,
		URL:    spec.CompilerRepo,
		Branch: spec.CompilerBranch,
		Dir:    paths.CompilerDir,
	})
	if err != nil {
		return p.fail(log, err)
	}
	if result == gitrepo.Skipped {
		p.report.Note("%s directory already exists, skipping clone", workspace.CompilerDirName)
	}

	llvm := gitrepo.Submodule{
		Name:   "llvm",
		Path:   spec.LLVMSubmodulePath,
		URL:    spec.LLVMRepo,
		Branch: spec.LLVMBranch,
	}

	p.step(log, 2, compilerSteps, "Updating LLVM submodule...")
	state, err := p.submodule.Reconcile(ctx, paths.CompilerDir, llvm)
	if err != nil {
		return p.fail(log, err)
	}
	switch state {
	case gitrepo.StateCorrect:
		p.report.Note("LLVM submodule already points to the fork, skipping re-add")
	case gitrepo.StateRedirect:
		p.report.Note("Switched LLVM submodule to %s", spec.LLVMRepo)
	}

	p.step(log, 3, compilerSteps, "Committing submodule update...")
	committed, err := p.submodule.CommitPointer(ctx, paths.CompilerDir, llvm, spec.SubmoduleCommitMessage)
	if err != nil {
		return p.fail(log, err)
	}
	if !committed {
		p.report.Note("No changes to commit")
	}

	p.step(log, 4, compilerSteps, "Building Rust compiler (this may take a while)...")
	written, err := genconfig.EnsureBootstrapConfig(p.fs, paths, spec)
	if err != nil {
		return p.fail(log, err)
	}
	if written {
		p.report.Note("Created bootstrap.toml")
	}
	if err := p.builder.BuildCompiler(ctx, paths.CompilerDir); err != nil {
		return p.fail(log, err)
	}

	p.step(log, 5, compilerSteps, "Linking toolchain with rustup...")
	if err := p.registrar.Link(ctx, paths.StageDir()); err != nil {
		return p.fail(log, err)
	}

	p.report.Note("Toolchain linked as '%s'", spec.ToolchainName)
	log.Info("compiler stage complete", "toolchain", spec.ToolchainName)
	return nil
}

// Build compiles the downstream project with the registered toolchain.
func (p *Pipeline) Build(ctx context.Context) error {
	log := p.logger.WithStage(StageBuild.String())

	if err := p.begin(log); err != nil {
		return err
	}

	p.report.Line("Building project with custom toolchain...")
	if err := p.builder.BuildProject(ctx, p.cfg.Paths.ProjectRoot); err != nil {
		return p.fail(log, err)
	}

	p.report.Success("Build complete!")
	log.Info("build stage complete")
	return nil
}

// Paths returns the locations this pipeline operates on.
func (p *Pipeline) Paths() workspace.Paths {
	return p.cfg.Paths
}

// begin makes sure the cache root exists before a stage acts.
func (p *Pipeline) begin(log *logging.Logger) error {
	log.Info("stage starting", "cache_root", p.cfg.Paths.CacheRoot)
	if err := p.cfg.Paths.EnsureCacheRoot(p.fs); err != nil {
		return p.fail(log, err)
	}
	return nil
}

// step prints the progress header for step n and records it in the run log.
func (p *Pipeline) step(log *logging.Logger, n, total int, msg string) {
	p.report.Step(n, total, msg)
	log.WithStep(fmt.Sprintf("%d/%d", n, total)).Info(msg)
}

func (p *Pipeline) fail(log *logging.Logger, err error) error {
	log.Error("stage failed", "error", err.Error())
	return err
}
