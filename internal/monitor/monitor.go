// Package monitor checks saved trips on cron schedules and sends an alert
// when shifting the departure would save meaningful time.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roadscout/roadscout/internal/config"
	"github.com/roadscout/roadscout/internal/tools"
)

// Notifier delivers an alert to a chat surface. Implemented by
// *channels.Manager.
type Notifier interface {
	Notify(ctx context.Context, channel, chatID, text string) error
}

// Monitor schedules one cron entry per saved trip.
type Monitor struct {
	planner      tools.RoutePlanner
	notifier     Notifier
	trips        []config.Trip
	thresholdMin int
	now          func() time.Time
}

// New creates a Monitor. thresholdMin is the minimum saving, in minutes, that
// triggers an alert; values <= 0 fall back to 10.
func New(planner tools.RoutePlanner, notifier Notifier, trips []config.Trip, thresholdMin int) *Monitor {
	if thresholdMin <= 0 {
		thresholdMin = 10
	}
	return &Monitor{
		planner:      planner,
		notifier:     notifier,
		trips:        trips,
		thresholdMin: thresholdMin,
		now:          time.Now,
	}
}

// Run registers all trip schedules and blocks until ctx is cancelled. Trips
// with invalid schedules are skipped with a log entry, not fatal.
func (m *Monitor) Run(ctx context.Context) error {
	if len(m.trips) == 0 {
		slog.Info("trip monitor idle: no trips configured")
		<-ctx.Done()
		return ctx.Err()
	}

	c := cron.New()
	registered := 0
	for _, trip := range m.trips {
		_, err := c.AddFunc(trip.Schedule, func() { m.checkTrip(ctx, trip) })
		if err != nil {
			slog.Error("skipping trip with bad schedule",
				"trip", trip.Name, "schedule", trip.Schedule, "err", err)
			continue
		}
		slog.Info("trip scheduled", "trip", trip.Name, "schedule", trip.Schedule)
		registered++
	}
	if registered == 0 {
		return fmt.Errorf("no trip could be scheduled")
	}

	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		slog.Warn("trip checks still running at shutdown")
	}
	return ctx.Err()
}

// checkTrip compares departures for one trip and alerts when waiting saves at
// least the threshold.
func (m *Monitor) checkTrip(ctx context.Context, trip config.Trip) {
	cmp, err := tools.CompareDepartures(ctx, m.planner, trip.Origin, trip.Destination, m.now())
	if err != nil {
		slog.Warn("trip check failed", "trip", trip.Name, "err", err)
		return
	}

	slog.Debug("trip checked", "trip", trip.Name,
		"bestOffsetMin", cmp.BestOffsetMin, "savedMin", cmp.SavedMinutes)

	if cmp.BestOffsetMin == 0 || cmp.SavedMinutes < m.thresholdMin {
		return
	}

	text := fmt.Sprintf("🚗 *%s*: %s", trip.Name, cmp.Recommendation)
	if err := m.notifier.Notify(ctx, trip.Channel, trip.ChatID, text); err != nil {
		slog.Error("trip alert delivery failed",
			"trip", trip.Name, "channel", trip.Channel, "err", err)
	}
}
