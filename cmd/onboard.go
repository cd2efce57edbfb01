package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roadscout/roadscout/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and data directory",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	fmt.Printf("✓ Data directory at %s\n", config.DataDir())

	fmt.Printf("\n%s roadscout is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your LLM API key (llm.apiKey) to %s\n", cfgPath)
	fmt.Printf("  2. Add your traffic API key (traffic.apiKey)\n")
	fmt.Println("     Get one at: https://developer.tomtom.com/")
	fmt.Printf("  3. Chat: roadscout chat -m \"How's traffic on my way to the airport?\"\n")
	return nil
}
