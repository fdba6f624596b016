package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/u128bpf/internal/pipeline"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Build the linker and compiler and register the toolchain",
	Long: `Run the full bootstrap: build sbpf-linker and wire it into
.cargo/config.toml, then build the patched rust compiler and link it
into rustup as "stage1".

Every step is safe to repeat. After a failure, run setup again to
resume.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(p *pipeline.Pipeline) error {
			return p.Setup(cmd.Context())
		})
	},
}

var buildLinkerCmd = &cobra.Command{
	Use:   "build-linker",
	Short: "Build sbpf-linker and update .cargo/config.toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(p *pipeline.Pipeline) error {
			return p.SetupLinker(cmd.Context())
		})
	},
}

var buildCompilerCmd = &cobra.Command{
	Use:   "build-compiler",
	Short: "Build the patched rust compiler and link it with rustup",
	Long: `Clone the rust compiler fork, point its LLVM submodule at the
BPF_i128_ret fork, build it and register the result with rustup.

Building LLVM from source takes a long time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(p *pipeline.Pipeline) error {
			return p.SetupCompiler(cmd.Context())
		})
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build this project with the custom toolchain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, func(p *pipeline.Pipeline) error {
			return p.Build(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(buildLinkerCmd)
	rootCmd.AddCommand(buildCompilerCmd)
	rootCmd.AddCommand(buildCmd)
}
