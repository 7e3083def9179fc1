package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"marketchain/logx"
)

var rootCmd = &cobra.Command{
	Use:   "marketchain",
	Short: "Marketchain ledger node CLI",
	Long:  "Command line interface for running and managing a marketchain proof-of-work ledger node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
