package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/u128bpf/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "xtask",
	Short: "Bootstrap the u128-capable BPF toolchain",
	Long: `xtask builds and installs the toolchain this project compiles with:
a fork of sbpf-linker with u128 multiply support, and a rust compiler
whose LLVM is pinned to a fork with i128 return support for BPF.

Checkouts live in the user cache directory. The compiler is registered
with rustup as "stage1" and the project's .cargo/config.toml is pointed
at the linker.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/u128bpf/config.yaml)")
	flags.String("project-root", "", "project to configure and build (default: discovered)")
	flags.String("cache-dir", "", "directory holding the toolchain checkouts (default: user cache dir)")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("paths.project_root", flags.Lookup("project-root"))
	_ = viper.BindPFlag("paths.cache_dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("XTASK")
	// Replace dots with underscores for nested keys in env vars
	// e.g., XTASK_PATHS_CACHE_DIR for paths.cache_dir
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
