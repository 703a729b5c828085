package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shopease/internal/server"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shopease %s\n", server.Version)
		},
	}
}
