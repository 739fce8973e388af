package quality

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/stretchr/testify/assert"
)

func makeCirclePath(centerLat, centerLng, radiusDeg float64, n int) []geo.Location {
	path := make([]geo.Location, 0, n+1)
	for i := 0; i <= n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		path = append(path, geo.Location{
			Latitude:  centerLat + radiusDeg*math.Cos(angle),
			Longitude: centerLng + radiusDeg*math.Sin(angle),
		})
	}
	return path
}

func makeOutAndBackPath() []geo.Location {
	var path []geo.Location
	for i := 0; i < 20; i++ {
		path = append(path, geo.Location{Latitude: 48.85 + float64(i)*0.001, Longitude: 2.35})
	}
	for i := 19; i >= 0; i-- {
		path = append(path, geo.Location{Latitude: 48.85 + float64(i)*0.001, Longitude: 2.35001})
	}
	return path
}

func makeFigure8Path() []geo.Location {
	const n = 40
	var path []geo.Location
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		path = append(path, geo.Location{Latitude: 48.86 + 0.005*math.Cos(angle), Longitude: 2.35 + 0.005*math.Sin(angle)})
	}
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		path = append(path, geo.Location{Latitude: 48.85 + 0.005*math.Cos(angle), Longitude: 2.35 + 0.005*math.Sin(angle)})
	}
	return path
}

func makePOI(category poi.Category, popularity float64) poi.POI {
	return poi.New(uuid.Nil, "test", category, geo.Location{Latitude: 48.856, Longitude: 2.352}, popularity)
}

func TestCircularityPerfectCircle(t *testing.T) {
	path := makeCirclePath(48.85, 2.35, 0.01, 100)
	assert.Greater(t, computeCircularity(path), 0.9)
}

func TestCircularityOutAndBack(t *testing.T) {
	path := makeOutAndBackPath()
	assert.Less(t, computeCircularity(path), 0.1)
}

func TestCircularityDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, computeCircularity(nil))
	assert.Equal(t, 0.0, computeCircularity([]geo.Location{{Latitude: 48.85, Longitude: 2.35}}))
	assert.Equal(t, 0.0, computeCircularity([]geo.Location{
		{Latitude: 48.85, Longitude: 2.35},
		{Latitude: 48.86, Longitude: 2.36},
	}))
}

func TestConvexityCircle(t *testing.T) {
	path := makeCirclePath(48.85, 2.35, 0.01, 100)
	assert.Greater(t, computeConvexity(path), 0.9)
}

func TestConvexityFigure8(t *testing.T) {
	path := makeFigure8Path()
	assert.Less(t, computeConvexity(path), 0.95)
}

func TestPathOverlapNoOverlapForCircle(t *testing.T) {
	path := makeCirclePath(48.85, 2.35, 0.01, 50)
	assert.Less(t, computePathOverlap(path, 25.0), 0.05)
}

func TestPathOverlapHighForOutAndBack(t *testing.T) {
	path := makeOutAndBackPath()
	assert.Greater(t, computePathOverlap(path, 25.0), 0.5)
}

func TestComputePOIDensity(t *testing.T) {
	assert.Equal(t, 2.0, computePOIDensity(10, 5.0))
	assert.Equal(t, 0.0, computePOIDensity(0, 5.0))
	assert.Equal(t, 0.0, computePOIDensity(5, 0.0))
}

func TestCategoryEntropySingleCategory(t *testing.T) {
	waypoints := []poi.POI{
		makePOI(poi.CategoryMonument, 80),
		makePOI(poi.CategoryMonument, 70),
	}
	assert.Equal(t, 0.0, computeCategoryEntropy(waypoints, nil))
}

func TestCategoryEntropyDiverseIsNearOne(t *testing.T) {
	waypoints := []poi.POI{
		makePOI(poi.CategoryMonument, 80),
		makePOI(poi.CategoryPark, 70),
		makePOI(poi.CategoryMuseum, 60),
	}
	entropy := computeCategoryEntropy(waypoints, nil)
	assert.InDelta(t, 1.0, entropy, 0.01)
}

func TestLandmarkCoverage(t *testing.T) {
	waypoints := []poi.POI{
		makePOI(poi.CategoryMonument, 80),
		makePOI(poi.CategoryPark, 60),
	}
	assert.InDelta(t, 0.7, computeLandmarkCoverage(waypoints), 0.01)
}

func TestLandmarkCoverageEmpty(t *testing.T) {
	assert.Equal(t, 0.0, computeLandmarkCoverage(nil))
}

func TestDensityContextFromCount(t *testing.T) {
	assert.Equal(t, DensityGeometric, DensityContextFromCount(0))
	assert.Equal(t, DensityGeometric, DensityContextFromCount(1))
	assert.Equal(t, DensitySparse, DensityContextFromCount(5))
	assert.Equal(t, DensityModerate, DensityContextFromCount(10))
	assert.Equal(t, DensityDense, DensityContextFromCount(25))
}

func TestComputeFullMetrics(t *testing.T) {
	path := makeCirclePath(48.85, 2.35, 0.01, 50)
	waypoints := []poi.POI{
		makePOI(poi.CategoryMonument, 80),
		makePOI(poi.CategoryPark, 60),
	}
	snapped := []poi.POI{makePOI(poi.CategoryCafe, 50)}

	metrics := Compute(Input{
		Path:         path,
		WaypointPOIs: waypoints,
		SnappedPOIs:  snapped,
		DistanceKm:   5.0,
		AreaPOICount: 15,
	})

	assert.Greater(t, metrics.Circularity, 0.5)
	assert.Greater(t, metrics.Convexity, 0.5)
	assert.Less(t, metrics.PathOverlapPct, 0.1)
	assert.Greater(t, metrics.POIDensityPerKm, 0.0)
	assert.Greater(t, metrics.CategoryEntropy, 0.0)
	assert.Greater(t, metrics.LandmarkCoverage, 0.0)
	assert.Equal(t, DensityModerate, metrics.DensityContext)
}
