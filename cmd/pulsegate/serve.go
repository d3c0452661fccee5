package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulseproto/pulsegate/bootstrap"
	"github.com/pulseproto/pulsegate/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the PULSE gateway server.

The server will:
  - Load configuration from pulsegate.yaml (or --config)
  - Or load configuration from PULSEGATE_* environment variables
  - Register configured API keys in the in-memory quota ledger
  - Filter every /v1/send request through auth, quota, injection
    detection, and sanitization before dispatching to a provider

All state is process-memory only and resets on restart.

Environment variables (for Docker deployments):
  PULSEGATE_SERVER_PORT        - Server port (default: 8080)
  PULSEGATE_LOG_LEVEL          - Log level: debug, info, warn, error
  PULSEGATE_AUDIT_MAX_ENTRIES  - Audit trail capacity (default: 10000)
  PULSEGATE_DEMO_KEY           - Register this key on the free tier

Examples:
  pulsegate serve
  pulsegate serve --config /etc/pulsegate/config.yaml
  pulsegate serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file.
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running without a config file (defaults + environment)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	return app.Run()
}
