package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "netwin",
	Short: "Netwin esports tournament backend",
	Long: `Netwin serves the tournament, wallet, KYC and notification API
and runs the background jobs that keep tournament statuses current.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ netwin: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
