package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roadscout/roadscout/internal/config"
)

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "List trips watched by the monitor",
	RunE:  runTrips,
}

func runTrips(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	trips, err := config.LoadTrips(cfg.TripsPath())
	if err != nil {
		return err
	}
	if len(trips) == 0 {
		fmt.Printf("No trips configured. Add some to %s, e.g.:\n\n", cfg.TripsPath())
		fmt.Println("  trips:")
		fmt.Println("    - name: morning commute")
		fmt.Println("      origin: { lat: 52.5200, lon: 13.4050 }")
		fmt.Println("      destination: { lat: 52.3906, lon: 13.0645 }")
		fmt.Println("      schedule: \"*/15 7-9 * * 1-5\"")
		fmt.Println("      channel: telegram")
		fmt.Println("      chatId: \"123456789\"")
		return nil
	}

	fmt.Printf("%s Trips (%s)\n\n", logo, cfg.TripsPath())
	for _, t := range trips {
		fmt.Printf("  %-24s %.4f,%.4f → %.4f,%.4f\n",
			t.Name, t.Origin.Lat, t.Origin.Lon, t.Destination.Lat, t.Destination.Lon)
		fmt.Printf("  %-24s schedule %q, alerts via %s\n\n", "", t.Schedule, t.Channel)
	}
	fmt.Printf("Alert threshold: save ≥ %d min\n", cfg.Monitor.SaveThresholdMinutes)
	return nil
}
