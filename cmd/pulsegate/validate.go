package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pulseproto/pulsegate/config"
)

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the PULSE gateway configuration file.

Checks:
  - YAML syntax is valid
  - Tier limits are positive and key tier references resolve
  - Custom security patterns compile
  - Provider entries carry a base URL

Examples:
  pulsegate validate
  pulsegate validate --config /etc/pulsegate/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config valid\n", checkMark)

	fmt.Println()
	fmt.Printf("  Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Keys: %d\n", len(cfg.Keys))
	fmt.Printf("  Custom patterns: %d\n", len(cfg.Security.CustomPatterns))
	fmt.Printf("  Audit capacity: %d\n", cfg.Audit.MaxEntries)

	names := make([]string, 0, len(cfg.Tiers))
	for name := range cfg.Tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("  Tiers:")
	for _, name := range names {
		fmt.Printf("    %-10s %d/day\n", name, cfg.Tiers[name])
	}

	return nil
}
