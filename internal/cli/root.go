// Package cli implements the tracecap command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/tracecap/pkg/version"
)

var (
	logLevel string
	quiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "tracecap",
	Short: "Tracecap - compressed API call trace recording",
	Long: `Record intercepted API calls into a compact, append-only,
compressed binary trace.

The writer deduplicates function/struct/enum/bitmask descriptions
inline and diffs touched memory regions by checksum, so repeated calls
and unchanged buffer content never bloat the trace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "diagnostic log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress diagnostics below errors")

	rootCmd.AddCommand(newSelftestCmd())
	rootCmd.AddCommand(newPathCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Tracecap version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
