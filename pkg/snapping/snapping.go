// Package snapping implements the path-snapping service: given a polyline
// and the POIs already used as explicit waypoints, find nearby POIs that
// were not sent to the road router but sit close enough to the returned
// road to be worth reporting.
package snapping

import (
	"context"
	"log/slog"
	"sort"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/loopcircuit/looproute/pkg/poirepo"
)

// DefaultSnapRadiusMeters is the default radius used to associate nearby
// POIs with a route path.
const DefaultSnapRadiusMeters = 100.0

// bboxQueryLimit bounds the candidate pool pulled from the repository
// before the precise distance-to-linestring filter runs.
const bboxQueryLimit = 500

// SnappedPOI is a POI found near a route's polyline but not used as an
// explicit waypoint.
type SnappedPOI struct {
	POI                poi.POI
	DistanceFromStartKm float64
	DistanceFromPathM   float64
}

// Service finds POIs near an already-built route's polyline.
type Service struct {
	repo   poirepo.Repository
	logger *slog.Logger
}

// NewService constructs a snapping service over repo.
func NewService(repo poirepo.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// FindSnappedPois implements the algorithm from spec §4.3: bbox pre-filter
// with a buffer, exclude waypoint POIs by id, keep candidates within
// snapRadiusMeters of the polyline (measured via distance-to-linestring),
// sorted ascending by cumulative distance along the path.
//
// Snapping never aborts route assembly: on any error, the caller should log
// and proceed with no snapped POIs (spec §4.3 "Failure semantics").
func (s *Service) FindSnappedPois(ctx context.Context, path []geo.Location, waypointPOIs []poi.POI, snapRadiusMeters float64, categories []poi.Category) ([]SnappedPOI, error) {
	if len(path) < 2 {
		return nil, nil
	}

	box, ok := geo.BoundingBoxFromPathWithBuffer(path, snapRadiusMeters)
	if !ok {
		return nil, nil
	}

	candidates, err := s.repo.FindInBBox(ctx, box, categories, bboxQueryLimit)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(waypointPOIs))
	for _, wp := range waypointPOIs {
		excluded[wp.ID.String()] = struct{}{}
	}

	snapRadiusKm := snapRadiusMeters / 1000

	var snapped []SnappedPOI
	for _, candidate := range candidates {
		if _, skip := excluded[candidate.ID.String()]; skip {
			continue
		}

		distKm, _, cumulativeKm, ok := candidate.Coordinates.DistanceToLineString(path)
		if !ok {
			continue
		}
		if distKm > snapRadiusKm {
			continue
		}

		snapped = append(snapped, SnappedPOI{
			POI:                 candidate,
			DistanceFromStartKm: cumulativeKm,
			DistanceFromPathM:   distKm * 1000,
		})
	}

	sort.Slice(snapped, func(i, j int) bool { return snapped[i].DistanceFromStartKm < snapped[j].DistanceFromStartKm })
	return snapped, nil
}
