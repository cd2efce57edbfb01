package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/traffic"
)

// RoutePlanner computes traffic-weighted route alternatives.
// Implemented by *traffic.Client.
type RoutePlanner interface {
	CalculateRoutes(ctx context.Context, origin, destination schema.LatLon, departAt time.Time) ([]traffic.Route, error)
}

// CalculateRoutesTool returns up to 3 route alternatives between two points,
// computed as of now with live traffic weighting.
type CalculateRoutesTool struct {
	planner RoutePlanner
}

func NewCalculateRoutesTool(planner RoutePlanner) *CalculateRoutesTool {
	return &CalculateRoutesTool{planner: planner}
}

func (t *CalculateRoutesTool) Name() string { return string(ToolCalculateRoutes) }
func (t *CalculateRoutesTool) Description() string {
	return "Calculate up to 3 driving route alternatives between two coordinates with live traffic. Returns duration, distance, and traffic delay per route. Use search_place first to turn place names into coordinates."
}
func (t *CalculateRoutesTool) Parameters() json.RawMessage {
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

func (t *CalculateRoutesTool) Execute(ctx context.Context, params map[string]any) (string, error) {
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

	routes, err := t.planner.CalculateRoutes(ctx, origin, destination, time.Time{})
	if err != nil {
		return failResult("route calculation failed: %v", err), nil
	}
	if len(routes) > 3 {
		routes = routes[:3]
	}

	out, _ := json.Marshal(map[string]any{
		"origin":      originStr,
		"destination": destStr,
		"routes":      summarizeRoutes(routes),
	})
	return string(out), nil
}

type routeSummary struct {
	DurationMinutes     int    `json:"durationMinutes"`
	DistanceKm          string `json:"distanceKm"`
	TrafficDelayMinutes int    `json:"trafficDelayMinutes"`
}

func summarizeRoutes(routes []traffic.Route) []routeSummary {
	out := make([]routeSummary, 0, len(routes))
	for _, r := range routes {
		out = append(out, routeSummary{
			DurationMinutes:     wholeMinutes(r.DurationSeconds),
			DistanceKm:          formatKm(r.DistanceMeters),
			TrafficDelayMinutes: wholeMinutes(r.TrafficDelaySeconds),
		})
	}
	return out
}
