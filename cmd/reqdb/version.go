package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/reqdb/pkg/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the reqdb version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "reqdb %s\n", version.Full())
			return nil
		},
	}
}
