// Package cmd provides the command-line interface of mesil1.
package cmd

import (
	"github.com/sarchlab/mesil1/mem/system"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mesil1",
	Short: "Simulate and verify a MESI L1 cache coherence protocol.",
	Long: `mesil1 simulates private L1 caches that stay coherent through ` +
		`a directory home node. It can run timed workloads and explore ` +
		`message interleavings looking for coherence violations. Settings ` +
		`come from env files and ` + system.EnvPrefix + `* environment ` +
		`variables, and flags override both.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().StringSlice("env", []string{".env"},
		"Env files to read settings from.")
	rootCmd.PersistentFlags().String("log-level", "warning",
		"Log level of the cache controllers.")

	rootCmd.PersistentFlags().Int("caches", 0, "Number of caches.")
	rootCmd.PersistentFlags().Int("ops", 0, "Random operations per core.")
	rootCmd.PersistentFlags().Int("addrs", 0, "Distinct blocks to access.")
	rootCmd.PersistentFlags().Int64("seed", 0, "Random seed.")
}

// loadConfig reads the settings and applies the flags that were given.
func loadConfig(cmd *cobra.Command) (system.Config, error) {
	files, _ := cmd.Flags().GetStringSlice("env")

	cfg, err := system.LoadConfig(files...)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()

	if flags.Changed("caches") {
		cfg.NumCaches, _ = flags.GetInt("caches")
	}

	if flags.Changed("ops") {
		cfg.NumOps, _ = flags.GetInt("ops")
	}

	if flags.Changed("addrs") {
		cfg.NumAddrs, _ = flags.GetInt("addrs")
	}

	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}

	if flags.Changed("nack-rate") {
		cfg.NACKRate, _ = flags.GetFloat64("nack-rate")
	}

	if flags.Changed("strategy") {
		cfg.Strategy, _ = flags.GetString("strategy")
	}

	if flags.Changed("max-paths") {
		cfg.MaxPaths, _ = flags.GetInt("max-paths")
	}

	if flags.Changed("max-steps") {
		cfg.MaxSteps, _ = flags.GetInt("max-steps")
	}

	return cfg, cfg.Validate()
}

func newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(level)

	return logger, nil
}
