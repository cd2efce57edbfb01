package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/traffic"
)

func TestClassifyCongestion(t *testing.T) {
	cases := []struct {
		current  float64
		freeFlow float64
		want     CongestionTier
	}{
		{20, 80, TierSevere},   // 0.25
		{24, 80, TierHeavy},    // 0.30 exactly: boundary goes up a tier
		{39, 80, TierHeavy},    // 0.4875
		{40, 80, TierModerate}, // 0.50
		{55, 80, TierModerate}, // 0.6875
		{60, 80, TierLight},    // 0.75
		{71, 80, TierLight},    // 0.8875
		{72, 80, TierClear},    // 0.90
		{100, 80, TierClear},   // faster than free flow
		{50, 0, TierClear},     // no free-flow data
	}
	for _, tc := range cases {
		if got := ClassifyCongestion(tc.current, tc.freeFlow); got != tc.want {
			t.Errorf("ClassifyCongestion(%v, %v) = %q, want %q", tc.current, tc.freeFlow, got, tc.want)
		}
	}
}

func TestGetTrafficFlowTool_Execute(t *testing.T) {
	tool := NewGetTrafficFlowTool(flowFunc(func(_ context.Context, p schema.LatLon) (traffic.FlowSegment, error) {
		return traffic.FlowSegment{CurrentSpeed: 20, FreeFlowSpeed: 80}, nil
	}))

	raw, err := tool.Execute(context.Background(), map[string]any{"lat": 52.52, "lon": 13.405})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Congestion string `json:"congestion"`
		RoadClosed bool   `json:"roadClosed"`
		Summary    string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if payload.Congestion != "severe" {
		t.Errorf("expected severe congestion, got %q", payload.Congestion)
	}
	if payload.RoadClosed {
		t.Error("road should not be closed")
	}
	if !strings.Contains(payload.Summary, "severe") {
		t.Errorf("summary should name the tier: %q", payload.Summary)
	}
}

func TestGetTrafficFlowTool_ClosedRoadOverridesSummary(t *testing.T) {
	tool := NewGetTrafficFlowTool(flowFunc(func(context.Context, schema.LatLon) (traffic.FlowSegment, error) {
		return traffic.FlowSegment{CurrentSpeed: 0, FreeFlowSpeed: 60, RoadClosed: true}, nil
	}))

	raw, err := tool.Execute(context.Background(), map[string]any{"lat": 52.52, "lon": 13.405})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		RoadClosed bool   `json:"roadClosed"`
		Summary    string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if !payload.RoadClosed {
		t.Error("expected roadClosed=true")
	}
	if !strings.Contains(payload.Summary, "closed") {
		t.Errorf("closure must dominate the summary: %q", payload.Summary)
	}
}

func TestGetTrafficFlowTool_UpstreamFailureBecomesPayload(t *testing.T) {
	tool := NewGetTrafficFlowTool(flowFunc(func(context.Context, schema.LatLon) (traffic.FlowSegment, error) {
		return traffic.FlowSegment{}, fmt.Errorf("upstream 503")
	}))

	raw, err := tool.Execute(context.Background(), map[string]any{"lat": 52.52, "lon": 13.405})
	if err != nil {
		t.Fatalf("upstream failures must not abort the session, got error: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("not a JSON payload: %v", err)
	}
	if !strings.Contains(payload["error"], "upstream 503") {
		t.Errorf("expected upstream error in payload, got %q", payload["error"])
	}
}

func TestGetTrafficFlowTool_MissingCoordinates(t *testing.T) {
	tool := NewGetTrafficFlowTool(flowFunc(func(context.Context, schema.LatLon) (traffic.FlowSegment, error) {
		t.Fatal("reader must not be called with bad arguments")
		return traffic.FlowSegment{}, nil
	}))

	raw, err := tool.Execute(context.Background(), map[string]any{"lat": 52.52})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(raw, "lon is required") {
		t.Errorf("expected missing-lon payload, got %q", raw)
	}
}
