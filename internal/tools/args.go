package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roadscout/roadscout/internal/schema"
)

// failResult builds the structured failure payload every executor returns in
// place of an error, so the model can apologise or retry with new arguments.
func failResult(format string, args ...any) string {
	out, _ := json.Marshal(map[string]any{"error": fmt.Sprintf(format, args...)})
	return string(out)
}

// stringArg extracts a string parameter. ok is false when absent or empty.
func stringArg(params map[string]any, key string) (string, bool) {
	s, _ := params[key].(string)
	return s, s != ""
}

// floatArg extracts a numeric parameter. JSON decoding yields float64, but
// models occasionally send numbers as strings; accept both.
func floatArg(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// wholeMinutes converts seconds to minutes, rounding to the nearest minute.
func wholeMinutes(seconds int) int {
	if seconds < 0 {
		return 0
	}
	return (seconds + 30) / 60
}

func formatKm(meters int) string {
	return strconv.FormatFloat(float64(meters)/1000, 'f', 1, 64)
}

// parsePoint parses a "lat,lon" string into a coordinate pair.
func parsePoint(s string) (schema.LatLon, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return schema.LatLon{}, fmt.Errorf("expected \"lat,lon\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return schema.LatLon{}, fmt.Errorf("invalid latitude in %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return schema.LatLon{}, fmt.Errorf("invalid longitude in %q", s)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return schema.LatLon{}, fmt.Errorf("coordinates out of range in %q", s)
	}
	return schema.LatLon{Lat: lat, Lon: lon}, nil
}
