package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/traffic"
)

// FlowReader looks up current traffic flow at a point.
// Implemented by *traffic.Client.
type FlowReader interface {
	FlowAt(ctx context.Context, point schema.LatLon) (traffic.FlowSegment, error)
}

// CongestionTier is a discrete classification of the current/free-flow speed ratio.
type CongestionTier string

const (
	TierSevere   CongestionTier = "severe"
	TierHeavy    CongestionTier = "heavy"
	TierModerate CongestionTier = "moderate"
	TierLight    CongestionTier = "light"
	TierClear    CongestionTier = "clear"
)

// ClassifyCongestion maps a current vs free-flow speed ratio to a tier.
// Thresholds: <30% severe, <50% heavy, <70% moderate, <90% light, else clear.
func ClassifyCongestion(currentSpeed, freeFlowSpeed float64) CongestionTier {
	if freeFlowSpeed <= 0 {
		return TierClear
	}
	switch ratio := currentSpeed / freeFlowSpeed; {
	case ratio < 0.30:
		return TierSevere
	case ratio < 0.50:
		return TierHeavy
	case ratio < 0.70:
		return TierModerate
	case ratio < 0.90:
		return TierLight
	default:
		return TierClear
	}
}

// GetTrafficFlowTool reports current vs free-flow speed at a point and the
// derived congestion tier. A flagged road closure is surfaced as its own
// boolean and takes precedence over the tier in the summary message.
type GetTrafficFlowTool struct {
	reader FlowReader
}

func NewGetTrafficFlowTool(reader FlowReader) *GetTrafficFlowTool {
	return &GetTrafficFlowTool{reader: reader}
}

func (t *GetTrafficFlowTool) Name() string { return string(ToolGetTrafficFlow) }
func (t *GetTrafficFlowTool) Description() string {
	return "Get current traffic speed vs free-flow speed at a coordinate, with a congestion tier (clear, light, moderate, heavy, severe) and a road-closure flag."
}
func (t *GetTrafficFlowTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"lat": {
				"type": "number",
				"description": "Latitude of the point to check"
			},
			"lon": {
				"type": "number",
				"description": "Longitude of the point to check"
			}
		},
		"required": ["lat", "lon"]
	}`)
}

func (t *GetTrafficFlowTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	lat, ok := floatArg(params, "lat")
	if !ok {
		return failResult("lat is required"), nil
	}
	lon, ok := floatArg(params, "lon")
	if !ok {
		return failResult("lon is required"), nil
	}

	seg, err := t.reader.FlowAt(ctx, schema.LatLon{Lat: lat, Lon: lon})
	if err != nil {
		return failResult("traffic flow lookup failed: %v", err), nil
	}

	tier := ClassifyCongestion(seg.CurrentSpeed, seg.FreeFlowSpeed)
	summary := fmt.Sprintf("Traffic is %s: %.0f km/h vs %.0f km/h free-flow.",
		tier, seg.CurrentSpeed, seg.FreeFlowSpeed)
	if seg.RoadClosed {
		summary = "The road at this point is closed."
	}

	out, _ := json.Marshal(map[string]any{
		"currentSpeed":  seg.CurrentSpeed,
		"freeFlowSpeed": seg.FreeFlowSpeed,
		"congestion":    tier,
		"roadClosed":    seg.RoadClosed,
		"summary":       summary,
	})
	return string(out), nil
}
