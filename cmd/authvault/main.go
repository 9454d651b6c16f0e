// Command authvault is the CLI entry point for the authentication engine,
// adapted from cmd/synnergy's cobra root.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"authvault/cmd/cli"
)

func main() {
	rootCmd := &cobra.Command{Use: "authvault"}
	rootCmd.AddCommand(cli.AuthCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
