package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roadscout/roadscout/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show roadscout status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s roadscout Status\n\n", logo)

	fmt.Printf("Config:    %s %s\n", cfgPath, existsMark(cfgPath))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Data dir:  %s %s\n", config.DataDir(), existsMark(config.DataDir()))
	fmt.Printf("Model:     %s\n\n", cfg.Agents.Defaults.Model)

	fmt.Println("Credentials:")
	fmt.Printf("  %-12s %s\n", "LLM", keyMark(cfg.LLM.APIKey))
	fmt.Printf("  %-12s %s\n", "Traffic", keyMark(cfg.Traffic.APIKey))

	fmt.Println("\nChannels:")
	fmt.Printf("  %-12s %s\n", "Telegram", enabledMark(cfg.Channels.Telegram.Enabled))
	fmt.Printf("  %-12s %s\n", "Slack", enabledMark(cfg.Channels.Slack.Enabled))

	trips, err := config.LoadTrips(cfg.TripsPath())
	if err != nil {
		fmt.Printf("\nTrips:     (could not load: %v)\n", err)
		return nil
	}
	fmt.Printf("\nTrips:     %d saved (%s)\n", len(trips), cfg.TripsPath())
	return nil
}

func existsMark(path string) string {
	if _, err := os.Stat(path); err == nil {
		return "✓"
	}
	return "✗"
}

func keyMark(key string) string {
	if key != "" {
		return "✓"
	}
	return "(not set)"
}

func enabledMark(enabled bool) string {
	if enabled {
		return "✓ enabled"
	}
	return "disabled"
}
