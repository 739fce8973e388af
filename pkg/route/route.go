// Package route assembles a finished Route from a road-router reply and
// the POIs that produced it, then scores it (spec §4.8). It depends on
// pkg/quality for the metrics attached to every assembled route, and on
// pkg/snapping to discover POIs near the final polyline that were never
// sent to the router as explicit waypoints.
package route

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/loopcircuit/looproute/pkg/quality"
	"github.com/loopcircuit/looproute/pkg/router"
	"github.com/loopcircuit/looproute/pkg/snapping"
)

// RoutePoi is a POI used as an explicit waypoint, with its position along
// the assembled route.
type RoutePoi struct {
	POI                 poi.POI
	OrderInRoute        int
	DistanceFromStartKm float64
}

// Route is a complete, scored loop route ready to return to a caller.
type Route struct {
	ID                       uuid.UUID
	DistanceKm               float64
	EstimatedDurationMinutes int
	Path                     []geo.Location
	POIs                     []RoutePoi
	SnappedPOIs              []snapping.SnappedPOI
	Score                    float64
	Metrics                  *quality.Metrics
}

// BuildInput bundles everything Build needs to assemble and score a route
// from a single road-router reply.
type BuildInput struct {
	Directions       *router.DirectionsResponse
	WaypointPOIs     []poi.POI
	Snapper          *snapping.Service
	SnapRadiusMeters float64
	Categories       []poi.Category
	AreaPOICount     int
	TargetDistanceKm float64
	HiddenGems       bool
}

// Build assembles a Route from a road-router reply, per spec §4.8.
// distance_from_start_km for waypoint i of N is approximated as
// distance_km * (i+1)/(N+1); the true value would need per-segment
// integration along the returned polyline, which the router reply doesn't
// expose. Snapping and metrics failures never prevent a Route from being
// returned (spec §7's "partial results must never prevent returning a
// Route"): a snapping error is logged and the route is assembled with no
// snapped POIs.
func Build(ctx context.Context, in BuildInput, logger *slog.Logger) (*Route, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path := in.Directions.ToLocations()
	distanceKm := in.Directions.DistanceKm()
	n := len(in.WaypointPOIs)

	routePOIs := make([]RoutePoi, n)
	for i, p := range in.WaypointPOIs {
		routePOIs[i] = RoutePoi{
			POI:                 p,
			OrderInRoute:        i + 1,
			DistanceFromStartKm: distanceKm * float64(i+1) / float64(n+1),
		}
	}

	var snappedPOIs []snapping.SnappedPOI
	if in.Snapper != nil {
		radius := in.SnapRadiusMeters
		if radius <= 0 {
			radius = snapping.DefaultSnapRadiusMeters
		}
		found, err := in.Snapper.FindSnappedPois(ctx, path, in.WaypointPOIs, radius, in.Categories)
		if err != nil {
			logger.Warn("snapping failed during route assembly, continuing without snapped POIs", "error", err)
		} else {
			snappedPOIs = found
		}
	}

	waypointCategoryPOIs := in.WaypointPOIs
	snappedCategoryPOIs := make([]poi.POI, len(snappedPOIs))
	for i, sp := range snappedPOIs {
		snappedCategoryPOIs[i] = sp.POI
	}

	metrics := quality.Compute(quality.Input{
		Path:         path,
		WaypointPOIs: waypointCategoryPOIs,
		SnappedPOIs:  snappedCategoryPOIs,
		DistanceKm:   distanceKm,
		AreaPOICount: in.AreaPOICount,
	})

	r := &Route{
		ID:                       uuid.New(),
		DistanceKm:               distanceKm,
		EstimatedDurationMinutes: in.Directions.DurationMinutes(),
		Path:                     path,
		POIs:                     routePOIs,
		SnappedPOIs:              snappedPOIs,
		Metrics:                  &metrics,
	}
	r.Score = Score(r, in.TargetDistanceKm, in.HiddenGems)
	return r, nil
}
