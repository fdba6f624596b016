package toolchain

import (
	"context"

	"github.com/Iron-Ham/u128bpf/internal/logging"
	"github.com/Iron-Ham/u128bpf/internal/process"
)

// Registrar makes a built compiler selectable through rustup.
type Registrar struct {
	runner process.Runner
	spec   Spec
	logger *logging.Logger
}

// NewRegistrar creates a Registrar. A nil logger disables logging.
func NewRegistrar(runner process.Runner, spec Spec, logger *logging.Logger) *Registrar {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Registrar{runner: runner, spec: spec, logger: logger}
}

// Link registers stageDir under the toolchain name. rustup replaces an
// existing link of the same name, so repeating it is harmless.
func (r *Registrar) Link(ctx context.Context, stageDir string) error {
	err := r.runner.Run(ctx, process.Command{
		Label: "link rustup toolchain",
		Name:  "rustup",
		Args:  []string{"toolchain", "link", r.spec.ToolchainName, stageDir},
	})
	if err != nil {
		return err
	}
	r.logger.Info("linked toolchain", "name", r.spec.ToolchainName, "path", stageDir)
	return nil
}
