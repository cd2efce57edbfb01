package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/roadscout/roadscout/internal/traffic"
)

// IncidentReader looks up incidents inside a bounding box.
// Implemented by *traffic.Client.
type IncidentReader interface {
	IncidentsIn(ctx context.Context, box traffic.BoundingBox) ([]traffic.Incident, error)
}

const (
	defaultIncidentRadiusKm = 5.0
	maxIncidentsReported    = 5
	kmPerLatDegree          = 111.0
)

// incidentTypeLabels maps the provider's icon-category codes to labels.
var incidentTypeLabels = map[int]string{
	0:  "unknown",
	1:  "accident",
	2:  "fog",
	3:  "dangerous conditions",
	4:  "rain",
	5:  "ice",
	6:  "jam",
	7:  "lane closed",
	8:  "road closed",
	9:  "road works",
	10: "wind",
	11: "flooding",
	14: "broken down vehicle",
}

// severityLabels maps the provider's delay-magnitude codes to labels.
var severityLabels = map[int]string{
	0: "unknown",
	1: "minor",
	2: "moderate",
	3: "major",
	4: "severe",
}

// BoxAround derives an approximate bounding box from a center and radius:
// one degree of latitude is ~111 km, and a longitude degree shrinks with
// cos(latitude).
func BoxAround(lat, lon, radiusKm float64) traffic.BoundingBox {
	dLat := radiusKm / kmPerLatDegree
	lonScale := math.Cos(lat * math.Pi / 180)
	if lonScale < 0.01 {
		lonScale = 0.01 // near the poles every longitude is close by
	}
	dLon := radiusKm / (kmPerLatDegree * lonScale)
	return traffic.BoundingBox{
		MinLat: lat - dLat,
		MinLon: lon - dLon,
		MaxLat: lat + dLat,
		MaxLon: lon + dLon,
	}
}

// GetIncidentsTool returns up to 5 traffic incidents around a point.
// Zero incidents is a success with an explicit all-clear message.
type GetIncidentsTool struct {
	reader IncidentReader
}

func NewGetIncidentsTool(reader IncidentReader) *GetIncidentsTool {
	return &GetIncidentsTool{reader: reader}
}

func (t *GetIncidentsTool) Name() string { return string(ToolGetIncidents) }
func (t *GetIncidentsTool) Description() string {
	return "List up to 5 current traffic incidents (accidents, closures, road works) within a radius of a coordinate, with severity and expected delay."
}
func (t *GetIncidentsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"lat": {
				"type": "number",
				"description": "Latitude of the search center"
			},
			"lon": {
				"type": "number",
				"description": "Longitude of the search center"
			},
			"radius_km": {
				"type": "number",
				"description": "Search radius in kilometers (default 5)"
			}
		},
		"required": ["lat", "lon"]
	}`)
}

type incidentReport struct {
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`
	Severity     string `json:"severity"`
	DelayMinutes int    `json:"delayMinutes"`
	Roads        string `json:"roads,omitempty"`
}

func (t *GetIncidentsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	lat, ok := floatArg(params, "lat")
	if !ok {
		return failResult("lat is required"), nil
	}
	lon, ok := floatArg(params, "lon")
	if !ok {
		return failResult("lon is required"), nil
	}
	radiusKm := defaultIncidentRadiusKm
	if r, rOK := floatArg(params, "radius_km"); rOK && r > 0 {
		radiusKm = r
	}

	incidents, err := t.reader.IncidentsIn(ctx, BoxAround(lat, lon, radiusKm))
	if err != nil {
		return failResult("incident lookup failed: %v", err), nil
	}

	if len(incidents) == 0 {
		out, _ := json.Marshal(map[string]any{
			"incidents": []incidentReport{},
			"summary":   fmt.Sprintf("No incidents reported within %.0f km — roads are clear.", radiusKm),
		})
		return string(out), nil
	}

	if len(incidents) > maxIncidentsReported {
		incidents = incidents[:maxIncidentsReported]
	}
	reports := make([]incidentReport, 0, len(incidents))
	for _, in := range incidents {
		reports = append(reports, incidentReport{
			Type:         labelFor(incidentTypeLabels, in.TypeCode),
			Description:  in.Description,
			Severity:     labelFor(severityLabels, in.Magnitude),
			DelayMinutes: wholeMinutes(in.DelaySeconds),
			Roads:        in.RoadNumbers,
		})
	}

	out, _ := json.Marshal(map[string]any{
		"incidents": reports,
		"summary":   fmt.Sprintf("%d incident(s) within %.0f km.", len(reports), radiusKm),
	})
	return string(out), nil
}

func labelFor(labels map[int]string, code int) string {
	if label, ok := labels[code]; ok {
		return label
	}
	return "unknown"
}
