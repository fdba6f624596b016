package pipeline

import (
	"io"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
)

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineConfig)

// WithRunner sets the runner used for every external command. Defaults to
// an ExecRunner on the process's standard streams.
func WithRunner(r process.Runner) PipelineOption {
	return func(c *pipelineConfig) {
		c.runner = r
	}
}

// WithFs sets the filesystem. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) PipelineOption {
	return func(c *pipelineConfig) {
		c.fs = fs
	}
}

// WithOutput sets where progress lines are printed. Defaults to stdout.
func WithOutput(w io.Writer) PipelineOption {
	return func(c *pipelineConfig) {
		c.out = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) PipelineOption {
	return func(c *pipelineConfig) {
		c.logger = l
	}
}

// WithColor enables or disables styled progress output. Color is also
// dropped automatically when the output is not a terminal.
func WithColor(enabled bool) PipelineOption {
	return func(c *pipelineConfig) {
		c.color = enabled
	}
}
