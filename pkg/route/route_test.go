package route

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/loopcircuit/looproute/pkg/poirepo"
	"github.com/loopcircuit/looproute/pkg/router"
	"github.com/loopcircuit/looproute/pkg/snapping"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func circleGeometry(centerLat, centerLng, radiusDeg float64, n int) []orb.Point {
	points := make([]orb.Point, 0, n+1)
	for i := 0; i <= n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		lat := centerLat + radiusDeg*math.Cos(angle)
		lng := centerLng + radiusDeg*math.Sin(angle)
		points = append(points, orb.Point{lng, lat})
	}
	return points
}

func makeWaypointPOI(category poi.Category, popularity float64) poi.POI {
	return poi.New(uuid.Nil, "waypoint", category, geo.Location{Latitude: 48.856, Longitude: 2.352}, popularity)
}

func TestBuildAssemblesRouteWithApproximateWaypointDistances(t *testing.T) {
	directions := &router.DirectionsResponse{
		DistanceMeters:  5000,
		DurationSeconds: 3000,
		Geometry:        circleGeometry(48.85, 2.35, 0.01, 50),
	}
	waypoints := []poi.POI{
		makeWaypointPOI(poi.CategoryMonument, 80),
		makeWaypointPOI(poi.CategoryPark, 60),
	}
	repo := poirepo.NewMemory()
	snapper := snapping.NewService(repo, nil)

	r, err := Build(context.Background(), BuildInput{
		Directions:       directions,
		WaypointPOIs:     waypoints,
		Snapper:          snapper,
		TargetDistanceKm: 5.0,
		AreaPOICount:     10,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 5.0, r.DistanceKm)
	assert.Equal(t, 50, r.EstimatedDurationMinutes)
	require.Len(t, r.POIs, 2)
	assert.Equal(t, 1, r.POIs[0].OrderInRoute)
	assert.InDelta(t, 5.0*1.0/3.0, r.POIs[0].DistanceFromStartKm, 1e-9)
	assert.Equal(t, 2, r.POIs[1].OrderInRoute)
	assert.InDelta(t, 5.0*2.0/3.0, r.POIs[1].DistanceFromStartKm, 1e-9)
	assert.NotNil(t, r.Metrics)
	assert.Greater(t, r.Score, 0.0)
}

func TestBuildSucceedsWithoutSnapperOrWaypoints(t *testing.T) {
	directions := &router.DirectionsResponse{
		DistanceMeters:  3000,
		DurationSeconds: 1800,
		Geometry:        circleGeometry(47.5, -8.0, 0.005, 20),
	}

	r, err := Build(context.Background(), BuildInput{
		Directions:       directions,
		TargetDistanceKm: 3.0,
		AreaPOICount:     0,
	}, nil)

	require.NoError(t, err)
	assert.Empty(t, r.POIs)
	assert.Empty(t, r.SnappedPOIs)
	assert.NotNil(t, r.Metrics)
}

func TestScoreDistanceAccuracyPerfectMatch(t *testing.T) {
	r := &Route{DistanceKm: 5.0}
	assert.InDelta(t, 3.0, distanceAccuracyScore(r.DistanceKm, 5.0), 1e-9)
}

func TestScoreDistanceAccuracyClampsBeyondFullError(t *testing.T) {
	assert.Equal(t, 0.0, distanceAccuracyScore(20.0, 5.0))
}

func TestScorePoiCountCapsAtThree(t *testing.T) {
	assert.Equal(t, 3.0, poiCountScore(5))
	assert.Equal(t, 2.0, poiCountScore(2))
}

func TestScoreCategoryDiversityCapsAtThreeDistinctCategories(t *testing.T) {
	pois := []RoutePoi{
		{POI: makeWaypointPOI(poi.CategoryMonument, 50)},
		{POI: makeWaypointPOI(poi.CategoryPark, 50)},
		{POI: makeWaypointPOI(poi.CategoryMuseum, 50)},
		{POI: makeWaypointPOI(poi.CategoryCafe, 50)},
	}
	assert.Equal(t, 2.0, categoryDiversityScore(pois))
}

func TestScorePoiQualityUsesHiddenGemsComplement(t *testing.T) {
	pois := []RoutePoi{{POI: makeWaypointPOI(poi.CategoryMonument, 80)}}
	assert.InDelta(t, 1.6, poiQualityScore(pois, false), 1e-9)
	assert.InDelta(t, 0.4, poiQualityScore(pois, true), 1e-9)
}

func TestScoreOverallIsClampedToTenPoints(t *testing.T) {
	r := &Route{
		DistanceKm: 5.0,
		POIs: []RoutePoi{
			{POI: makeWaypointPOI(poi.CategoryMonument, 100)},
			{POI: makeWaypointPOI(poi.CategoryPark, 100)},
			{POI: makeWaypointPOI(poi.CategoryMuseum, 100)},
		},
	}
	score := Score(r, 5.0, false)
	assert.LessOrEqual(t, score, 10.0)
	assert.Greater(t, score, 9.0)
}
