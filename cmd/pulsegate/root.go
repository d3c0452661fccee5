package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulsegate",
	Short: "Request-filtering gateway with quota enforcement and injection detection",
	Long: `PULSE Gateway sits in front of provider APIs and filters every request:
authentication, daily quota enforcement, prompt-injection detection, and
parameter sanitization, with an in-memory audit trail.

Quick start:
  pulsegate serve            # start with pulsegate.yaml or defaults
  pulsegate keys generate    # mint a key to place in the config

Management:
  pulsegate validate   # validate configuration
  pulsegate version    # print version`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "pulsegate.yaml", "config file path")
}
