package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/traffic"
)

// plannerByOffset fakes a RoutePlanner whose answer depends on the departure
// offset relative to now. A missing entry fails that offset.
func plannerByOffset(now time.Time, durationsMin map[int]int) plannerFunc {
	return func(_ context.Context, _, _ schema.LatLon, departAt time.Time) ([]traffic.Route, error) {
		offset := 0
		if !departAt.IsZero() {
			offset = int(departAt.Sub(now).Minutes())
		}
		min, ok := durationsMin[offset]
		if !ok {
			return nil, fmt.Errorf("offset %d unavailable", offset)
		}
		return []traffic.Route{{
			DurationSeconds: min * 60,
			ArriveAt:        now.Add(time.Duration(offset+min) * time.Minute),
		}}, nil
	}
}

var testOD = struct{ origin, dest schema.LatLon }{
	origin: schema.LatLon{Lat: 52.52, Lon: 13.405},
	dest:   schema.LatLon{Lat: 52.39, Lon: 13.06},
}

func TestCompareDepartures_PicksMinimumDuration(t *testing.T) {
	now := time.Now()
	planner := plannerByOffset(now, map[int]int{0: 40, 30: 35, 60: 45, 120: 50})

	cmp, err := CompareDepartures(context.Background(), planner, testOD.origin, testOD.dest, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmp.Options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(cmp.Options))
	}
	if cmp.BestOffsetMin != 30 {
		t.Errorf("expected best offset 30, got %d", cmp.BestOffsetMin)
	}
	if cmp.SavedMinutes != 5 {
		t.Errorf("expected 5 min saved, got %d", cmp.SavedMinutes)
	}
	for _, opt := range cmp.Options {
		if opt.IsBest != (opt.OffsetMinutes == 30) {
			t.Errorf("offset %d: isBest=%v", opt.OffsetMinutes, opt.IsBest)
		}
		if opt.ArriveAt == "" {
			t.Errorf("offset %d: missing arrival time", opt.OffsetMinutes)
		}
	}
	if !strings.Contains(cmp.Recommendation, "Leave in 30 min") {
		t.Errorf("unexpected recommendation: %q", cmp.Recommendation)
	}
}

func TestCompareDepartures_LeavingNowOptimal(t *testing.T) {
	now := time.Now()
	planner := plannerByOffset(now, map[int]int{0: 30, 30: 35, 60: 40, 120: 45})

	cmp, err := CompareDepartures(context.Background(), planner, testOD.origin, testOD.dest, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.BestOffsetMin != 0 {
		t.Errorf("expected best offset 0, got %d", cmp.BestOffsetMin)
	}
	if cmp.SavedMinutes != 0 {
		t.Errorf("expected 0 min saved, got %d", cmp.SavedMinutes)
	}
	if !strings.Contains(cmp.Recommendation, "Leaving now is optimal") {
		t.Errorf("unexpected recommendation: %q", cmp.Recommendation)
	}
}

func TestCompareDepartures_DropsFailedOffsets(t *testing.T) {
	now := time.Now()
	// The 30-minute offset fails; the remaining options survive.
	planner := plannerByOffset(now, map[int]int{0: 40, 60: 45, 120: 50})

	cmp, err := CompareDepartures(context.Background(), planner, testOD.origin, testOD.dest, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmp.Options) != 3 {
		t.Fatalf("expected 3 surviving options, got %d", len(cmp.Options))
	}
	for _, opt := range cmp.Options {
		if opt.OffsetMinutes == 30 {
			t.Error("failed offset should have been dropped")
		}
	}
	if cmp.BestOffsetMin != 0 {
		t.Errorf("expected best offset 0, got %d", cmp.BestOffsetMin)
	}
}

func TestCompareDepartures_SavingsUnknownWithoutNow(t *testing.T) {
	now := time.Now()
	// "Now" itself fails, so there is no baseline to compute savings against.
	planner := plannerByOffset(now, map[int]int{30: 35, 60: 45})

	cmp, err := CompareDepartures(context.Background(), planner, testOD.origin, testOD.dest, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.BestOffsetMin != 30 {
		t.Errorf("expected best offset 30, got %d", cmp.BestOffsetMin)
	}
	if cmp.SavedMinutes != 0 {
		t.Errorf("savings must be 0 when the now baseline is missing, got %d", cmp.SavedMinutes)
	}
	if strings.Contains(cmp.Recommendation, "save") {
		t.Errorf("recommendation must not claim savings: %q", cmp.Recommendation)
	}
}

func TestCompareDepartures_AllOffsetsFail(t *testing.T) {
	now := time.Now()
	planner := plannerByOffset(now, nil)

	_, err := CompareDepartures(context.Background(), planner, testOD.origin, testOD.dest, now)
	if err == nil {
		t.Fatal("expected error when every offset fails")
	}
}

// ─── GetDepartureTimesTool ──────────────────────────────────────────────────

func TestGetDepartureTimesTool_Execute(t *testing.T) {
	now := time.Now()
	tool := NewGetDepartureTimesTool(plannerByOffset(now, map[int]int{0: 40, 30: 35, 60: 45, 120: 50}))
	tool.now = func() time.Time { return now }

	raw, err := tool.Execute(context.Background(), map[string]any{
		"origin":      "52.5200,13.4050",
		"destination": "52.3906,13.0645",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var cmp DepartureComparison
	if err := json.Unmarshal([]byte(raw), &cmp); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if cmp.BestOffsetMin != 30 || cmp.SavedMinutes != 5 {
		t.Errorf("unexpected comparison: best=%d saved=%d", cmp.BestOffsetMin, cmp.SavedMinutes)
	}
}

func TestGetDepartureTimesTool_BadArguments(t *testing.T) {
	tool := NewGetDepartureTimesTool(plannerByOffset(time.Now(), nil))

	cases := []struct {
		name   string
		params map[string]any
		expect string
	}{
		{"missing origin", map[string]any{"destination": "52.39,13.06"}, "origin is required"},
		{"missing destination", map[string]any{"origin": "52.52,13.40"}, "destination is required"},
		{"place name as origin", map[string]any{"origin": "Berlin Hbf", "destination": "52.39,13.06"}, "search_place"},
	}
	for _, tc := range cases {
		raw, err := tool.Execute(context.Background(), tc.params)
		if err != nil {
			t.Fatalf("%s: executor must not return an error, got %v", tc.name, err)
		}
		var payload map[string]string
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			t.Fatalf("%s: not a JSON payload: %v", tc.name, err)
		}
		if !strings.Contains(payload["error"], tc.expect) {
			t.Errorf("%s: expected error containing %q, got %q", tc.name, tc.expect, payload["error"])
		}
	}
}
