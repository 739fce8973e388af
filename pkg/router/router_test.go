package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/httpx"
	"github.com/loopcircuit/looproute/pkg/looperr"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func waypoints() []geo.Location {
	return []geo.Location{
		{Latitude: 48.8566, Longitude: 2.3522},
		{Latitude: 48.8606, Longitude: 2.3376},
		{Latitude: 48.8566, Longitude: 2.3522},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, authMode AuthMode) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("test-key", server.URL, authMode,
		WithHTTPClient(server.Client()),
		WithRateLimiter(rate.NewLimiter(rate.Inf, 1)),
		WithRetryOptions(httpx.RetryOptions{MaxAttempts: 1}),
	)
}

func TestGetDirectionsRejectsTooFewWaypoints(t *testing.T) {
	c := New("key", "http://example.invalid", AuthDirectToken)
	_, err := c.GetDirections(context.Background(), []geo.Location{{}}, poi.ModeWalk)
	require.Error(t, err)
	assert.True(t, looperr.Is(err, looperr.KindInvalidRequest))
}

func TestGetDirectionsParsesSuccessResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		assert.Equal(t, "test-key", r.URL.Query().Get("access_token"))

		resp := map[string]any{
			"routes": []map[string]any{
				{
					"distance": 4200.0,
					"duration": 3100.0,
					"geometry": map[string]any{
						"coordinates": [][2]float64{{2.3522, 48.8566}, {2.3376, 48.8606}},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}, AuthDirectToken)

	result, err := c.GetDirections(context.Background(), waypoints(), poi.ModeWalk)
	require.NoError(t, err)
	assert.InDelta(t, 4.2, result.DistanceKm(), 0.001)
	assert.Equal(t, 52, result.DurationMinutes())
	assert.Len(t, result.ToLocations(), 2)
}

func TestGetDirectionsUsesBearerHeaderWhenConfigured(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		resp := map[string]any{
			"routes": []map[string]any{
				{"distance": 1000.0, "duration": 600.0, "geometry": map[string]any{"coordinates": [][2]float64{}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}, AuthBearerHeader)

	_, err := c.GetDirections(context.Background(), waypoints(), poi.ModeBike)
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestGetDirectionsErrorsOnZeroRoutes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"routes": []map[string]any{}, "message": "no route found"})
	}, AuthDirectToken)

	_, err := c.GetDirections(context.Background(), waypoints(), poi.ModeWalk)
	require.Error(t, err)
	assert.True(t, looperr.Is(err, looperr.KindRouter))
}
