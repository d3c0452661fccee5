package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	gatehttp "github.com/pulseproto/pulsegate/adapters/http"
)

var (
	commit    = "none"
	buildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulsegate %s (commit: %s, built: %s, %s)\n",
			gatehttp.Version, commit, buildDate, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
