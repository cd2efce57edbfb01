package traffic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roadscout/roadscout/internal/schema"
)

const (
	defaultBaseURL      = "https://api.tomtom.com"
	defaultTimeout      = 10 * time.Second
	defaultSearchRadius = 50_000 // meters; ranking bias around the caller's position
)

// Client talks to the mapping/traffic provider over HTTP.
// All calls are synchronous request/response with the client timeout applied,
// so a stalled upstream can never hold a session longer than that.
type Client struct {
	apiKey       string
	baseURL      string
	searchRadius int
	httpClient   *http.Client
}

// NewClient creates a Client. baseURL may be "" for the production endpoint;
// timeout <= 0 selects the 10 s default.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		searchRadius: defaultSearchRadius,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// get performs a GET against path with query q and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("traffic provider request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("traffic provider HTTP %d: %s", resp.StatusCode, truncateBody(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncateBody(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// SearchPlaces resolves a free-text query to up to limit location candidates.
// A non-nil near biases ranking toward a 50 km radius around that point.
func (c *Client) SearchPlaces(ctx context.Context, query string, near *schema.LatLon, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 3
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if near != nil {
		q.Set("lat", formatCoord(near.Lat))
		q.Set("lon", formatCoord(near.Lon))
		q.Set("radius", fmt.Sprintf("%d", c.searchRadius))
	}

	var data struct {
		Results []struct {
			POI struct {
				Name       string   `json:"name"`
				Categories []string `json:"categories"`
			} `json:"poi"`
			Address struct {
				FreeformAddress string `json:"freeformAddress"`
			} `json:"address"`
			Position struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			} `json:"position"`
		} `json:"results"`
	}
	path := "/search/2/search/" + url.PathEscape(query) + ".json"
	if err := c.get(ctx, path, q, &data); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(data.Results))
	for _, r := range data.Results {
		name := r.POI.Name
		if name == "" {
			name = r.Address.FreeformAddress
		}
		category := ""
		if len(r.POI.Categories) > 0 {
			category = r.POI.Categories[0]
		}
		places = append(places, Place{
			Name:     name,
			Address:  r.Address.FreeformAddress,
			Lat:      r.Position.Lat,
			Lon:      r.Position.Lon,
			Category: category,
		})
	}
	return places, nil
}

// CalculateRoutes computes up to three route alternatives between origin and
// destination with live traffic weighting. A zero departAt means "now".
func (c *Client) CalculateRoutes(ctx context.Context, origin, destination schema.LatLon, departAt time.Time) ([]Route, error) {
	q := url.Values{}
	q.Set("maxAlternatives", "2")
	q.Set("traffic", "true")
	if !departAt.IsZero() {
		q.Set("departAt", departAt.Format(time.RFC3339))
	}

	var data struct {
		Routes []struct {
			Summary struct {
				LengthInMeters        int       `json:"lengthInMeters"`
				TravelTimeInSeconds   int       `json:"travelTimeInSeconds"`
				TrafficDelayInSeconds int       `json:"trafficDelayInSeconds"`
				DepartureTime         time.Time `json:"departureTime"`
				ArrivalTime           time.Time `json:"arrivalTime"`
			} `json:"summary"`
		} `json:"routes"`
	}
	locs := fmt.Sprintf("%s,%s:%s,%s",
		formatCoord(origin.Lat), formatCoord(origin.Lon),
		formatCoord(destination.Lat), formatCoord(destination.Lon))
	path := "/routing/1/calculateRoute/" + locs + "/json"
	if err := c.get(ctx, path, q, &data); err != nil {
		return nil, err
	}
	if len(data.Routes) == 0 {
		return nil, fmt.Errorf("no route found between %v and %v", origin, destination)
	}

	routes := make([]Route, 0, len(data.Routes))
	for _, r := range data.Routes {
		routes = append(routes, Route{
			DurationSeconds:     r.Summary.TravelTimeInSeconds,
			DistanceMeters:      r.Summary.LengthInMeters,
			TrafficDelaySeconds: r.Summary.TrafficDelayInSeconds,
			DepartAt:            r.Summary.DepartureTime,
			ArriveAt:            r.Summary.ArrivalTime,
		})
	}
	return routes, nil
}

// FlowAt returns the current traffic flow on the road segment nearest to point.
func (c *Client) FlowAt(ctx context.Context, point schema.LatLon) (FlowSegment, error) {
	q := url.Values{}
	q.Set("point", formatCoord(point.Lat)+","+formatCoord(point.Lon))

	var data struct {
		FlowSegmentData struct {
			CurrentSpeed  float64 `json:"currentSpeed"`
			FreeFlowSpeed float64 `json:"freeFlowSpeed"`
			Confidence    float64 `json:"confidence"`
			RoadClosure   bool    `json:"roadClosure"`
		} `json:"flowSegmentData"`
	}
	path := "/traffic/services/4/flowSegmentData/absolute/10/json"
	if err := c.get(ctx, path, q, &data); err != nil {
		return FlowSegment{}, err
	}

	return FlowSegment{
		CurrentSpeed:  data.FlowSegmentData.CurrentSpeed,
		FreeFlowSpeed: data.FlowSegmentData.FreeFlowSpeed,
		Confidence:    data.FlowSegmentData.Confidence,
		RoadClosed:    data.FlowSegmentData.RoadClosure,
	}, nil
}

// IncidentsIn returns incidents reported inside box.
func (c *Client) IncidentsIn(ctx context.Context, box BoundingBox) ([]Incident, error) {
	q := url.Values{}
	// bbox order per provider contract: minLon,minLat,maxLon,maxLat.
	q.Set("bbox", fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(box.MinLon), formatCoord(box.MinLat),
		formatCoord(box.MaxLon), formatCoord(box.MaxLat)))
	q.Set("fields", "{incidents{properties{iconCategory,magnitudeOfDelay,delay,roadNumbers,events{description}}}}")

	var data struct {
		Incidents []struct {
			Properties struct {
				IconCategory     int      `json:"iconCategory"`
				MagnitudeOfDelay int      `json:"magnitudeOfDelay"`
				Delay            int      `json:"delay"`
				RoadNumbers      []string `json:"roadNumbers"`
				Events           []struct {
					Description string `json:"description"`
				} `json:"events"`
			} `json:"properties"`
		} `json:"incidents"`
	}
	if err := c.get(ctx, "/traffic/services/5/incidentDetails", q, &data); err != nil {
		return nil, err
	}

	incidents := make([]Incident, 0, len(data.Incidents))
	for _, in := range data.Incidents {
		desc := ""
		if len(in.Properties.Events) > 0 {
			desc = in.Properties.Events[0].Description
		}
		incidents = append(incidents, Incident{
			TypeCode:     in.Properties.IconCategory,
			Description:  desc,
			DelaySeconds: in.Properties.Delay,
			Magnitude:    in.Properties.MagnitudeOfDelay,
			RoadNumbers:  strings.Join(in.Properties.RoadNumbers, ", "),
		})
	}
	return incidents, nil
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
