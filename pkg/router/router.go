// Package router implements the outbound client for the external
// road-routing engine (spec §6): an OSRM/Mapbox-Directions-style HTTP API
// that takes an ordered waypoint list and returns a single route's
// distance, duration, and polyline geometry.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/httpx"
	"github.com/loopcircuit/looproute/pkg/looperr"
	"github.com/loopcircuit/looproute/pkg/monitoring"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"
)

const (
	minWaypoints = 2
	maxWaypoints = 25
)

// AuthMode selects how the client authenticates with the router.
type AuthMode int

const (
	// AuthDirectToken sends the API key as an access_token query parameter.
	AuthDirectToken AuthMode = iota
	// AuthBearerHeader sends the API key as an Authorization: Bearer header,
	// the shape used by a proxying gateway in front of the real router.
	AuthBearerHeader
)

// Client talks to a single road-routing backend.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	authMode     AuthMode
	limiter      *rate.Limiter
	retryOptions httpx.RetryOptions
}

// Option customizes a Client built with New.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRetryOptions overrides the default retry/backoff behavior.
func WithRetryOptions(opts httpx.RetryOptions) Option {
	return func(cl *Client) { cl.retryOptions = opts }
}

// WithRateLimiter caps outbound requests per second, protecting the
// router's own rate limit (most hosted road-routing APIs enforce one).
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(cl *Client) { cl.limiter = limiter }
}

// New builds a Client. baseURL has no trailing slash, e.g.
// "https://api.mapbox.com/directions/v5/mapbox".
func New(apiKey, baseURL string, authMode AuthMode, opts ...Option) *Client {
	c := &Client{
		httpClient:   httpx.DefaultClient,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		authMode:     authMode,
		retryOptions: httpx.DefaultRetryOptions,
		limiter:      rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DirectionsResponse is the router's reply, reduced to what the
// route-generation pipeline needs.
type DirectionsResponse struct {
	DistanceMeters float64
	DurationSeconds float64
	// Geometry holds (lng, lat) points in the order the router returned
	// them, matching GeoJSON coordinate order.
	Geometry []orb.Point
}

// DistanceKm converts DistanceMeters.
func (d *DirectionsResponse) DistanceKm() float64 { return d.DistanceMeters / 1000.0 }

// DurationMinutes rounds DurationSeconds to the nearest minute.
func (d *DirectionsResponse) DurationMinutes() int { return int(d.DurationSeconds/60.0 + 0.5) }

// ToLocations converts the (lng, lat) geometry to geo.Location values,
// dropping any point whose coordinates fail validation rather than
// aborting the whole conversion.
func (d *DirectionsResponse) ToLocations() []geo.Location {
	out := make([]geo.Location, 0, len(d.Geometry))
	for _, p := range d.Geometry {
		loc, err := geo.NewLocation(p[1], p[0])
		if err != nil {
			continue
		}
		out = append(out, loc)
	}
	return out
}

type directionsAPIResponse struct {
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates []orb.Point `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
	Message string `json:"message"`
}

// GetDirections fetches a route through waypoints, in order, for mode.
// waypoints must have between 2 and 25 entries.
func (c *Client) GetDirections(ctx context.Context, waypoints []geo.Location, mode poi.TransportMode) (resp *DirectionsResponse, err error) {
	if len(waypoints) < minWaypoints {
		return nil, looperr.InvalidRequest("at least %d waypoints required, got %d", minWaypoints, len(waypoints))
	}
	if len(waypoints) > maxWaypoints {
		return nil, looperr.InvalidRequest("at most %d waypoints allowed, got %d", maxWaypoints, len(waypoints))
	}

	profile, err := mode.RouterProfile()
	if err != nil {
		return nil, looperr.InvalidRequest("invalid transport mode: %v", err)
	}

	start := time.Now()
	defer func() { monitoring.RecordRouterRequest(profile, time.Since(start), err) }()

	coordParts := make([]string, len(waypoints))
	for i, wp := range waypoints {
		coordParts[i] = fmt.Sprintf("%f,%f", wp.Longitude, wp.Latitude)
	}
	path := fmt.Sprintf("%s/%s/%s", c.baseURL, profile, strings.Join(coordParts, ";"))

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, looperr.Timeout(err, "rate limiter wait aborted")
		}
	}

	factory := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		q := url.Values{}
		q.Set("geometries", "geojson")
		q.Set("overview", "full")
		q.Set("steps", "false")

		switch c.authMode {
		case AuthDirectToken:
			q.Set("access_token", c.apiKey)
		case AuthBearerHeader:
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	}

	httpResp, err := httpx.DoWithRetry(ctx, factory, c.httpClient, c.retryOptions)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var parsed directionsAPIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, looperr.Router(err, "failed to decode road-router response")
	}

	if len(parsed.Routes) == 0 {
		msg := parsed.Message
		if msg == "" {
			msg = "no routes found"
		}
		return nil, looperr.Router(nil, "road-router returned zero routes: %s", msg)
	}

	route := parsed.Routes[0]
	return &DirectionsResponse{
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
		Geometry:        route.Geometry.Coordinates,
	}, nil
}
