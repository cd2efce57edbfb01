package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roadscout/roadscout/internal/schema"
)

// Trip is one saved origin/destination pair the monitor checks on a schedule.
// Schedule is a standard five-field cron expression.
type Trip struct {
	Name        string        `yaml:"name"`
	Origin      schema.LatLon `yaml:"origin"`
	Destination schema.LatLon `yaml:"destination"`
	Schedule    string        `yaml:"schedule"`
	Channel     string        `yaml:"channel"`
	ChatID      string        `yaml:"chatId"`
}

type tripsFile struct {
	Trips []Trip `yaml:"trips"`
}

// LoadTrips reads the trips file at path. A missing file yields no trips.
func LoadTrips(path string) ([]Trip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read trips %s: %w", path, err)
	}

	var f tripsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse trips %s: %w", path, err)
	}

	for i, t := range f.Trips {
		if t.Name == "" {
			return nil, fmt.Errorf("trips %s: trip %d has no name", path, i)
		}
		if t.Schedule == "" {
			return nil, fmt.Errorf("trips %s: trip %q has no schedule", path, t.Name)
		}
	}
	return f.Trips, nil
}

// SaveTrips writes trips to path as YAML.
func SaveTrips(trips []Trip, path string) error {
	data, err := yaml.Marshal(tripsFile{Trips: trips})
	if err != nil {
		return fmt.Errorf("marshal trips: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write trips %s: %w", path, err)
	}
	return nil
}
