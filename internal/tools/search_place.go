package tools

import (
	"context"
	"encoding/json"

	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/traffic"
)

// PlaceSearcher resolves free-text place descriptions to location candidates.
// Implemented by *traffic.Client.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string, near *schema.LatLon, limit int) ([]traffic.Place, error)
}

const maxPlaceCandidates = 3

// SearchPlaceTool resolves a free-text place description to up to 3 candidate
// locations. Optional coordinates bias ranking toward the caller's area.
type SearchPlaceTool struct {
	searcher PlaceSearcher
}

func NewSearchPlaceTool(searcher PlaceSearcher) *SearchPlaceTool {
	return &SearchPlaceTool{searcher: searcher}
}

func (t *SearchPlaceTool) Name() string { return string(ToolSearchPlace) }
func (t *SearchPlaceTool) Description() string {
	return "Resolve a free-text place description (address, landmark, business) to up to 3 candidate locations with name, address, and coordinates. Pass near_lat/near_lon to prefer nearby matches."
}
func (t *SearchPlaceTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "Free-text place description to resolve"
			},
			"near_lat": {
				"type": "number",
				"description": "Optional latitude to bias ranking toward"
			},
			"near_lon": {
				"type": "number",
				"description": "Optional longitude to bias ranking toward"
			}
		},
		"required": ["query"]
	}`)
}

func (t *SearchPlaceTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query, ok := stringArg(params, "query")
	if !ok {
		return failResult("query is required"), nil
	}

	var near *schema.LatLon
	if lat, latOK := floatArg(params, "near_lat"); latOK {
		if lon, lonOK := floatArg(params, "near_lon"); lonOK {
			near = &schema.LatLon{Lat: lat, Lon: lon}
		}
	}

	places, err := t.searcher.SearchPlaces(ctx, query, near, maxPlaceCandidates)
	if err != nil {
		return failResult("place search failed: %v", err), nil
	}
	if len(places) == 0 {
		return failResult("no places found for %q", query), nil
	}

	out, _ := json.Marshal(map[string]any{
		"query":  query,
		"places": places,
	})
	return string(out), nil
}
