package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/u128bpf/internal/config"
	"github.com/Iron-Ham/u128bpf/internal/errors"
	"github.com/Iron-Ham/u128bpf/internal/genconfig"
	"github.com/Iron-Ham/u128bpf/internal/toolchain"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show where the toolchain is built and configured",
	Long: `Print the resolved project root, cache directory and checkout
locations without changing anything.`,
	Args: cobra.NoArgs,
	RunE: runPaths,
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}

func runPaths(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	spec := toolchain.DefaultSpec()
	paths, err := resolvePaths(cfg, spec)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := [][2]string{
		{"project root", paths.ProjectRoot},
		{"cache root", paths.CacheRoot},
		{"linker checkout", paths.LinkerDir},
		{"linker binary", paths.LinkerBinary},
		{"compiler checkout", paths.CompilerDir},
		{"toolchain stage", paths.StageDir()},
		{"cargo config", paths.CargoConfigPath()},
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%-18s %s\n", row[0]+":", row[1])
	}

	fmt.Fprintf(out, "%-18s %s\n", "configured linker:", configuredLinker(paths.CargoConfigPath(), paths.LinkerBinary))
	return nil
}

// configuredLinker describes the linker the project's cargo config points
// at relative to the one this workspace builds.
func configuredLinker(cargoConfig, want string) string {
	current, err := genconfig.LoadCargoConfig(newFs(), cargoConfig)
	if err != nil {
		return "(none)"
	}
	linker, ok := current.Linker(toolchain.DefaultSpec().Target)
	switch {
	case !ok:
		return "(none)"
	case linker != want:
		return linker + " (stale, run build-linker)"
	default:
		return linker
	}
}
