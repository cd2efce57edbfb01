// Package traffic is the client for the upstream mapping and traffic data
// provider. It exposes place search, route calculation, point flow lookup,
// and bounding-box incident lookup as normalised Go types; no other package
// sees the provider's wire format.
package traffic

import "time"

// Place is one resolved location candidate.
type Place struct {
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Category string  `json:"category,omitempty"`
}

// Route is one route alternative with live-traffic weighting.
type Route struct {
	DurationSeconds     int       `json:"durationSeconds"`
	DistanceMeters      int       `json:"distanceMeters"`
	TrafficDelaySeconds int       `json:"trafficDelaySeconds"`
	DepartAt            time.Time `json:"departAt"`
	ArriveAt            time.Time `json:"arriveAt"`
}

// FlowSegment is the current traffic state at a point on the road network.
// Speeds are km/h. RoadClosed is reported separately from the speed figures.
type FlowSegment struct {
	CurrentSpeed  float64 `json:"currentSpeed"`
	FreeFlowSpeed float64 `json:"freeFlowSpeed"`
	Confidence    float64 `json:"confidence"`
	RoadClosed    bool    `json:"roadClosed"`
}

// Incident is one reported traffic incident.
// TypeCode and Magnitude are the provider's numeric codes; label mapping is
// owned by the consuming executor.
type Incident struct {
	TypeCode     int    `json:"typeCode"`
	Description  string `json:"description"`
	DelaySeconds int    `json:"delaySeconds"`
	Magnitude    int    `json:"magnitude"`
	RoadNumbers  string `json:"roadNumbers,omitempty"`
}

// BoundingBox is a lat/lon rectangle, min corner first.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}
