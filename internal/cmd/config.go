package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/u128bpf/internal/config"
	"github.com/Iron-Ham/u128bpf/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View xtask configuration",
	Long: `View xtask configuration.

Without arguments, displays the current configuration.
The toolchain sources themselves are fixed and not configurable.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/u128bpf/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	shown := *cfg
	shown.Paths.ProjectRoot = orDiscovered(cfg.Paths.ProjectRoot)
	shown.Paths.CacheDir = orDiscovered(cfg.Paths.CacheDir)

	data, err := yaml.Marshal(shown)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func orDiscovered(v string) string {
	if v == "" {
		return "(discovered)"
	}
	return v
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	fs := newFs()
	configFile := config.ConfigFile()

	// Check if config file already exists
	exists, err := afero.Exists(fs, configFile)
	if err != nil {
		return fmt.Errorf("failed to check config file: %w", err)
	}
	if exists {
		return fmt.Errorf("config file already exists at %s", configFile)
	}

	if err := fs.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# xtask configuration for the u128 BPF toolchain bootstrap
# Every key can also be set through the environment, e.g. XTASK_PATHS_CACHE_DIR

paths:
  # Project whose .cargo/config.toml is rewritten and which 'build' compiles.
  # Empty means CARGO_MANIFEST_DIR or the working directory.
  project_root: ""
  # Directory holding the toolchain checkouts (must be absolute, ~ allowed).
  # Empty means the user cache directory.
  cache_dir: ""

logging:
  # Write a JSON run log (xtask.log) in the cache directory
  enabled: true
  # Options: debug, info, warn, error
  level: info

output:
  # Styled progress output when stdout is a terminal
  color: true
`

	if err := afero.WriteFile(fs, configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), config.ConfigFile())
	return nil
}
