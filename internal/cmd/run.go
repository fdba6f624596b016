package cmd

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/u128bpf/internal/config"
	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/pipeline"
	"github.com/Iron-Ham/u128bpf/internal/process"
	"github.com/Iron-Ham/u128bpf/internal/toolchain"
	"github.com/Iron-Ham/u128bpf/internal/workspace"
)

// Seams replaced in tests.
var (
	newRunner = func(logger *logging.Logger) process.Runner {
		return process.NewExecRunner(logger)
	}
	newFs = afero.NewOsFs
)

// resolvePaths computes the workspace, honoring configured overrides.
func resolvePaths(cfg *config.Config, spec toolchain.Spec) (workspace.Paths, error) {
	locator := workspace.NewLocator()
	locator.ProjectRoot = cfg.Paths.ProjectRoot
	locator.CacheDir = cfg.Paths.CacheDir
	return locator.Locate(spec)
}

// withPipeline builds the pipeline for one command invocation, runs fn and
// closes the run log.
func withPipeline(cmd *cobra.Command, fn func(p *pipeline.Pipeline) error) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	spec := toolchain.DefaultSpec()
	paths, err := resolvePaths(cfg, spec)
	if err != nil {
		return err
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		fileLogger, err := logging.NewLogger(paths.CacheRoot, cfg.Logging.Level)
		if err != nil {
			return err
		}
		logger = fileLogger
	}
	defer func() { _ = logger.Close() }()

	logger.Info("run starting",
		"command", cmd.Name(),
		"project_root", paths.ProjectRoot,
		"cache_root", paths.CacheRoot,
	)

	p, err := pipeline.NewPipeline(pipeline.Config{Spec: spec, Paths: paths},
		pipeline.WithRunner(newRunner(logger)),
		pipeline.WithFs(newFs()),
		pipeline.WithOutput(cmd.OutOrStdout()),
		pipeline.WithLogger(logger),
		pipeline.WithColor(cfg.Output.Color),
	)
	if err != nil {
		return err
	}

	if err := fn(p); err != nil {
		logger.Error("run failed",
			"command", cmd.Name(),
			"action", errors.FailedAction(err),
			"severity", errors.GetSeverity(err).String(),
			"error", err.Error(),
		)
		return err
	}
	logger.Info("run finished", "command", cmd.Name())
	return nil
}
