package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roadscout/roadscout/internal/schema"
)

// DepartureOffsets are the fixed offsets from "now" compared by
// get_departure_times and the trip monitor.
var DepartureOffsets = []time.Duration{
	0,
	30 * time.Minute,
	60 * time.Minute,
	120 * time.Minute,
}

// DepartureOption is one surviving time-shifted route computation.
type DepartureOption struct {
	OffsetMinutes   int    `json:"offsetMinutes"`
	DurationMinutes int    `json:"durationMinutes"`
	ArriveAt        string `json:"arriveAt,omitempty"`
	IsBest          bool   `json:"isBest"`
}

// DepartureComparison is the aggregated result across all surviving offsets.
type DepartureComparison struct {
	Options          []DepartureOption `json:"options"`
	BestOffsetMin    int               `json:"bestOffsetMinutes"`
	SavedMinutes     int               `json:"savedMinutes"`
	Recommendation   string            `json:"recommendation"`
	nowDurationKnown bool
}

// CompareDepartures runs one independent best-effort route computation per
// offset, concurrently. Offsets that fail are dropped, not retried. The
// surviving option with minimum duration becomes the recommendation; an error
// is returned only when every offset fails.
func CompareDepartures(ctx context.Context, planner RoutePlanner, origin, destination schema.LatLon, now time.Time) (DepartureComparison, error) {
	durations := make([]int, len(DepartureOffsets)) // seconds; 0 = offset failed
	arrivals := make([]time.Time, len(DepartureOffsets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, offset := range DepartureOffsets {
		i, offset := i, offset
		g.Go(func() error {
			departAt := time.Time{}
			if offset > 0 {
				departAt = now.Add(offset)
			}
			routes, err := planner.CalculateRoutes(gctx, origin, destination, departAt)
			if err != nil || len(routes) == 0 {
				slog.Warn("departure offset dropped", "offsetMin", int(offset.Minutes()), "err", err)
				return nil
			}
			mu.Lock()
			durations[i] = routes[0].DurationSeconds
			arrivals[i] = routes[0].ArriveAt
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	best := -1
	for i, dur := range durations {
		if dur <= 0 {
			continue
		}
		if best == -1 || dur < durations[best] {
			best = i
		}
	}
	if best == -1 {
		return DepartureComparison{}, fmt.Errorf("no departure option could be computed")
	}

	cmp := DepartureComparison{
		BestOffsetMin:    int(DepartureOffsets[best].Minutes()),
		nowDurationKnown: durations[0] > 0,
	}
	for i, dur := range durations {
		if dur <= 0 {
			continue
		}
		opt := DepartureOption{
			OffsetMinutes:   int(DepartureOffsets[i].Minutes()),
			DurationMinutes: wholeMinutes(dur),
			IsBest:          i == best,
		}
		if !arrivals[i].IsZero() {
			opt.ArriveAt = arrivals[i].Format(time.RFC3339)
		}
		cmp.Options = append(cmp.Options, opt)
	}
	if cmp.nowDurationKnown && best != 0 {
		cmp.SavedMinutes = wholeMinutes(durations[0] - durations[best])
	}
	cmp.Recommendation = cmp.recommend(wholeMinutes(durations[best]))
	return cmp, nil
}

func (c DepartureComparison) recommend(bestMinutes int) string {
	if c.BestOffsetMin == 0 {
		return fmt.Sprintf("Leaving now is optimal: about %d min of travel.", bestMinutes)
	}
	if c.nowDurationKnown {
		return fmt.Sprintf("Leave in %d min to save about %d min (%d min of travel instead).",
			c.BestOffsetMin, c.SavedMinutes, bestMinutes)
	}
	return fmt.Sprintf("Leave in %d min: about %d min of travel.", c.BestOffsetMin, bestMinutes)
}

// GetDepartureTimesTool compares leaving now against leaving in 30, 60, and
// 120 minutes and recommends the departure with the shortest travel time.
type GetDepartureTimesTool struct {
	planner RoutePlanner
	now     func() time.Time
}

func NewGetDepartureTimesTool(planner RoutePlanner) *GetDepartureTimesTool {
	return &GetDepartureTimesTool{planner: planner, now: time.Now}
}

func (t *GetDepartureTimesTool) Name() string { return string(ToolGetDepartureTimes) }
func (t *GetDepartureTimesTool) Description() string {
	return "Compare travel times for departing now vs in 30, 60, and 120 minutes and recommend the best departure. Origin and destination are \"lat,lon\" coordinates."
}
func (t *GetDepartureTimesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"origin": {
				"type": "string",
				"description": "Start point as \"lat,lon\""
			},
			"destination": {
				"type": "string",
				"description": "End point as \"lat,lon\""
			}
		},
		"required": ["origin", "destination"]
	}`)
}

func (t *GetDepartureTimesTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	originStr, ok := stringArg(params, "origin")
	if !ok {
		return failResult("origin is required"), nil
	}
	destStr, ok := stringArg(params, "destination")
	if !ok {
		return failResult("destination is required"), nil
	}

	origin, err := parsePoint(originStr)
	if err != nil {
		return failResult("origin: %v — use search_place to resolve place names to coordinates", err), nil
	}
	destination, err := parsePoint(destStr)
	if err != nil {
		return failResult("destination: %v — use search_place to resolve place names to coordinates", err), nil
	}

	cmp, err := CompareDepartures(ctx, t.planner, origin, destination, t.now())
	if err != nil {
		return failResult("departure comparison failed: %v", err), nil
	}

	out, _ := json.Marshal(cmp)
	return string(out), nil
}
