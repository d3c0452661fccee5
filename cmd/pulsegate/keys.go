package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulseproto/pulsegate/domain/quota"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `Manage PULSE gateway API keys.

Keys are opaque bearer tokens: the gateway checks presence in the
configured registry, nothing more. Generated keys must be placed in the
config file (or PULSEGATE_DEMO_KEY) to take effect.

Examples:
  pulsegate keys generate
  pulsegate keys generate --tier pro`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key",
	RunE:  runKeysGenerate,
}

var keyTier string

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd)

	keysGenerateCmd.Flags().StringVar(&keyTier, "tier", "free", "tier for the generated key")
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	if err := quota.ValidateTier(quota.DefaultTiers(), keyTier); err != nil {
		return err
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	key := "pg_" + hex.EncodeToString(raw)

	fmt.Printf("%s Generated API key (tier: %s)\n\n", checkMark, keyTier)
	fmt.Printf("  %s\n\n", key)
	fmt.Println("Add it to your config file:")
	fmt.Println()
	fmt.Println("  keys:")
	fmt.Printf("    - key: %s\n", key)
	fmt.Printf("      tier: %s\n", keyTier)

	return nil
}
