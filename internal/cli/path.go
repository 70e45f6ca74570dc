package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/tracecap/internal/trace"
)

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the trace path an auto-opened session would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := trace.DefaultPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
