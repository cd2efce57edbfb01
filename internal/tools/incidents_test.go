package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/roadscout/roadscout/internal/traffic"
)

func TestBoxAround_Equator(t *testing.T) {
	box := BoxAround(0, 10, 5)

	wantDelta := 5.0 / 111.0
	if got := box.MaxLat - box.MinLat; math.Abs(got-2*wantDelta) > 1e-9 {
		t.Errorf("lat span = %v, want %v", got, 2*wantDelta)
	}
	// At the equator cos(lat)=1, so the lon span matches the lat span.
	if got := box.MaxLon - box.MinLon; math.Abs(got-2*wantDelta) > 1e-9 {
		t.Errorf("lon span = %v, want %v", got, 2*wantDelta)
	}
}

func TestBoxAround_HighLatitudeWidensLongitude(t *testing.T) {
	box := BoxAround(60, 10, 5)

	latSpan := box.MaxLat - box.MinLat
	lonSpan := box.MaxLon - box.MinLon
	// cos(60°) = 0.5, so the box must span twice as many longitude degrees.
	if math.Abs(lonSpan-2*latSpan) > 1e-9 {
		t.Errorf("lon span %v should be 2x lat span %v at 60°N", lonSpan, latSpan)
	}
}

func TestBoxAround_NearPole(t *testing.T) {
	box := BoxAround(89.9, 0, 5)
	if math.IsInf(box.MaxLon, 0) || math.IsNaN(box.MaxLon) {
		t.Errorf("longitude span must stay finite near the pole, got %v", box.MaxLon)
	}
}

// ─── GetIncidentsTool ───────────────────────────────────────────────────────

func TestGetIncidentsTool_ZeroIncidentsIsSuccess(t *testing.T) {
	tool := NewGetIncidentsTool(incidentsFunc(func(context.Context, traffic.BoundingBox) ([]traffic.Incident, error) {
		return nil, nil
	}))

	raw, err := tool.Execute(context.Background(), map[string]any{"lat": 52.52, "lon": 13.405})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Incidents []incidentReport `json:"incidents"`
		Summary   string           `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if len(payload.Incidents) != 0 {
		t.Errorf("expected empty incident list, got %d", len(payload.Incidents))
	}
	if !strings.Contains(payload.Summary, "clear") {
		t.Errorf("expected an explicit all-clear, got %q", payload.Summary)
	}
	if strings.Contains(raw, `"error"`) {
		t.Error("zero incidents must not be reported as an error")
	}
}

func TestGetIncidentsTool_CapsAtFive(t *testing.T) {
	many := make([]traffic.Incident, 9)
	for i := range many {
		many[i] = traffic.Incident{TypeCode: 6, Magnitude: 2, DelaySeconds: 300}
	}
	tool := NewGetIncidentsTool(incidentsFunc(func(context.Context, traffic.BoundingBox) ([]traffic.Incident, error) {
		return many, nil
	}))

	raw, err := tool.Execute(context.Background(), map[string]any{"lat": 52.52, "lon": 13.405})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Incidents []incidentReport `json:"incidents"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if len(payload.Incidents) != 5 {
		t.Errorf("expected at most 5 incidents, got %d", len(payload.Incidents))
	}
}

func TestGetIncidentsTool_Labels(t *testing.T) {
	tool := NewGetIncidentsTool(incidentsFunc(func(context.Context, traffic.BoundingBox) ([]traffic.Incident, error) {
		return []traffic.Incident{
			{TypeCode: 1, Magnitude: 4, DelaySeconds: 600, RoadNumbers: "A100"},
			{TypeCode: 9, Magnitude: 1, DelaySeconds: 90},
			{TypeCode: 99, Magnitude: 77}, // unmapped codes
		}, nil
	}))

	raw, err := tool.Execute(context.Background(), map[string]any{"lat": 52.52, "lon": 13.405})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Incidents []incidentReport `json:"incidents"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if len(payload.Incidents) != 3 {
		t.Fatalf("expected 3 incidents, got %d", len(payload.Incidents))
	}

	first := payload.Incidents[0]
	if first.Type != "accident" || first.Severity != "severe" || first.DelayMinutes != 10 || first.Roads != "A100" {
		t.Errorf("unexpected first report: %+v", first)
	}
	second := payload.Incidents[1]
	if second.Type != "road works" || second.Severity != "minor" || second.DelayMinutes != 2 {
		t.Errorf("unexpected second report: %+v", second)
	}
	third := payload.Incidents[2]
	if third.Type != "unknown" || third.Severity != "unknown" {
		t.Errorf("unmapped codes must fall back to unknown: %+v", third)
	}
}

func TestGetIncidentsTool_CustomRadius(t *testing.T) {
	var gotBox traffic.BoundingBox
	tool := NewGetIncidentsTool(incidentsFunc(func(_ context.Context, box traffic.BoundingBox) ([]traffic.Incident, error) {
		gotBox = box
		return nil, nil
	}))

	_, err := tool.Execute(context.Background(), map[string]any{"lat": 0.0, "lon": 0.0, "radius_km": 10.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantSpan := 2 * 10.0 / 111.0
	if got := gotBox.MaxLat - gotBox.MinLat; math.Abs(got-wantSpan) > 1e-9 {
		t.Errorf("radius_km not honoured: lat span %v, want %v", got, wantSpan)
	}
}

func TestGetIncidentsTool_UpstreamFailureBecomesPayload(t *testing.T) {
	tool := NewGetIncidentsTool(incidentsFunc(func(context.Context, traffic.BoundingBox) ([]traffic.Incident, error) {
		return nil, fmt.Errorf("quota exceeded")
	}))

	raw, err := tool.Execute(context.Background(), map[string]any{"lat": 52.52, "lon": 13.405})
	if err != nil {
		t.Fatalf("upstream failures must not abort the session, got error: %v", err)
	}
	if !strings.Contains(raw, "quota exceeded") {
		t.Errorf("expected upstream error in payload, got %q", raw)
	}
}
