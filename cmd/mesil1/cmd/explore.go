package cmd

import (
	"fmt"

	"github.com/sarchlab/mesil1/mem/system"
	"github.com/spf13/cobra"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Search message interleavings for coherence violations.",
	Long: "Explore reruns a small random workload under many delivery " +
		"orders, either depth first or at random, and reports every " +
		"violation it finds.",
	RunE: runExplore,
}

func init() {
	rootCmd.AddCommand(exploreCmd)

	exploreCmd.Flags().String("strategy", system.StrategyDFS,
		"Search strategy, dfs or random.")
	exploreCmd.Flags().Int("max-paths", 0, "Maximum number of paths.")
	exploreCmd.Flags().Int("max-steps", 0, "Maximum steps per path.")
}

func runExplore(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	report := system.Explore(system.MakeBuilder().
		WithConfig(cfg).
		WithLogger(logger))

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Paths:      %d\n", report.Paths)
	fmt.Fprintf(w, "Incomplete: %d\n", report.Incomplete)
	fmt.Fprintf(w, "Exhaustive: %t\n", report.Exhaustive)
	fmt.Fprintf(w, "Violations: %d\n", report.NumViolations)

	for _, v := range report.Violations {
		fmt.Fprintf(w, "  %s\n", v)
	}

	if report.NumViolations > 0 {
		return fmt.Errorf("%w: %d found", system.ErrViolation,
			report.NumViolations)
	}

	return nil
}
