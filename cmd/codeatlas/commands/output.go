package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func registerOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(flagOutput, "o", "", "Write to this file instead of stdout")
}

// openOutput returns the command's destination and a function that
// finishes writing to it.
func openOutput(cmd *cobra.Command) (io.Writer, func() error, error) {
	path, _ := cmd.Flags().GetString(flagOutput)
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}

	return f, f.Close, nil
}
