package geoloop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/httpx"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/loopcircuit/looproute/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestWaypointsProducesNumWaypointsPoints(t *testing.T) {
	start := geo.Location{Latitude: 48.8566, Longitude: 2.3522}
	points := Waypoints(start, 5.0)
	assert.Len(t, points, NumWaypoints)
}

func TestWaypointsIsDeterministicForSameInput(t *testing.T) {
	start := geo.Location{Latitude: 48.8566, Longitude: 2.3522}
	a := Waypoints(start, 5.0)
	b := Waypoints(start, 5.0)
	assert.Equal(t, a, b)
}

func TestWaypointsDiffersForDifferentTargetDistance(t *testing.T) {
	start := geo.Location{Latitude: 48.8566, Longitude: 2.3522}
	a := Waypoints(start, 5.0)
	b := Waypoints(start, 8.0)
	assert.NotEqual(t, a, b)
}

func TestWaypointsStayRoughlyAtExpectedRadius(t *testing.T) {
	start := geo.Location{Latitude: 48.8566, Longitude: 2.3522}
	targetKm := 6.0
	points := Waypoints(start, targetKm)

	expectedRadiusKm := targetKm / (2 * 3.141592653589793)
	for _, p := range points {
		loc := geo.Location{Latitude: p.Latitude, Longitude: p.Longitude}
		distKm := start.DistanceTo(loc)
		// jitter is bounded at +/-15%, allow a little slack for the
		// longitude-scaling approximation near non-equatorial latitudes.
		assert.InDelta(t, expectedRadiusKm, distKm, expectedRadiusKm*0.35)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *router.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return router.New("test-key", server.URL, router.AuthDirectToken,
		router.WithHTTPClient(server.Client()),
		router.WithRateLimiter(rate.NewLimiter(rate.Inf, 1)),
		router.WithRetryOptions(httpx.RetryOptions{MaxAttempts: 1}),
	)
}

func TestGenerateBuildsRouteWithNoWaypointPOIs(t *testing.T) {
	var gotWaypointCount int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotWaypointCount = len(strings.Split(path.Base(r.URL.Path), ";"))
		resp := map[string]any{
			"routes": []map[string]any{
				{
					"distance": 5000.0,
					"duration": 3000.0,
					"geometry": map[string]any{
						"coordinates": [][2]float64{{2.3522, 48.8566}, {2.3376, 48.8606}, {2.3522, 48.8566}},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	start := geo.Location{Latitude: 48.8566, Longitude: 2.3522}
	r, err := Generate(context.Background(), client, start, 5.0, poi.ModeWalk, 0)
	require.NoError(t, err)
	assert.Empty(t, r.POIs)
	assert.Equal(t, 5.0, r.DistanceKm)
	assert.NotNil(t, r.Metrics)
	assert.Equal(t, NumWaypoints+2, gotWaypointCount)
}

func TestGeneratePropagatesRouterError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	start := geo.Location{Latitude: 48.8566, Longitude: 2.3522}
	_, err := Generate(context.Background(), client, start, 5.0, poi.ModeWalk, 0)
	require.Error(t, err)
}
