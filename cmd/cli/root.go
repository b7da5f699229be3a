// Package cli provides command-line interface commands for the metricsd
// daemon. This package implements the Cobra-based CLI structure with the
// serve command plus client commands (dump, enable, test) that talk to a
// running daemon over its HTTP API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/metricsd/internal/logging"
)

var (
	cfgFile      string
	verbose      bool
	apiURL       string
	apiKey       string
	outputFormat string
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "metricsd",
	Short: "Runtime metrics manager",
	Long: `Metricsd is a process-wide registry of measurement instruments organized
into scopes. Instruments can be toggled on and off at runtime without
restarting the daemon, and all current values can be dumped as a consistent
structured snapshot while recordings continue.`,
	Version: getVersion(),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./metricsd.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://127.0.0.1:8085", "base URL of the metricsd API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authenticated daemons")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")

	// Bind flags to viper
	for _, flag := range []string{"verbose", "api-url", "api-key", "output"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("metricsd")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("METRICSD")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if verbose {
		logger, err := logging.New(logging.Config{
			Level:  logging.LevelDebug,
			Format: logging.FormatText,
			Output: "stderr",
		})
		if err == nil {
			logging.SetDefault(logger)
		}
	}
}

func getVersion() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildTime)
}
