package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceScoreShortRouteLenientBlend(t *testing.T) {
	// route_km=3 => blend factor for the 12/3 schedule is 0, pure lenient.
	scoreIdeal := distanceScore(1.0, 1.0, 3.0, 12.0, 3.0)
	assert.Greater(t, scoreIdeal, 0.9)

	scoreClose := distanceScore(0.75, 1.0, 3.0, 12.0, 3.0)
	assert.InDelta(t, 0.8, scoreClose, 0.01)

	scoreHalf := distanceScore(0.5, 1.0, 3.0, 12.0, 3.0)
	assert.InDelta(t, 0.6, scoreHalf, 0.01)
}

func TestDistanceScoreLongRouteStrictQuadratic(t *testing.T) {
	// route_km=15 => blend factor is 1, pure quadratic.
	scoreClose := distanceScore(2.8125, 3.75, 15.0, 12.0, 3.0)
	assert.InDelta(t, 0.5625, scoreClose, 0.01)

	scoreFarBelow := distanceScore(1.0, 3.75, 15.0, 12.0, 3.0)
	assert.Less(t, scoreFarBelow, 0.1)
}

func TestDistanceScoreBeyondTargetDecaysGradually(t *testing.T) {
	score := distanceScore(4.0, 2.0, 6.0, 12.0, 3.0)
	assert.Less(t, score, 0.6)
	assert.GreaterOrEqual(t, score, 0.2) // clamped at 1 - 0.8
}

func poiAt(name string, lat, lng float64, popularity float64) poi.POI {
	return poi.New(uuid.New(), name, poi.CategoryCafe, geo.Location{Latitude: lat, Longitude: lng}, popularity)
}

func TestSimpleStrategyFiltersOutOfBandCandidates(t *testing.T) {
	strategy := NewSimpleStrategy(DefaultConfig())
	start := geo.Location{Latitude: 0, Longitude: 0}

	tooClose := poiAt("too-close", 0.0001, 0, 50)
	tooFar := poiAt("too-far", 10, 10, 50)
	good := poiAt("good", 0.01, 0, 50)

	ctx := Context{Start: start, TargetWaypointDistKm: 1.0, TargetDistanceKm: 4.0, AttemptSeed: 1}
	scored := strategy.Score([]poi.POI{tooClose, tooFar, good}, ctx)

	require.Len(t, scored, 1)
	assert.Equal(t, "good", scored[0].POI.Name)
}

func TestAdvancedStrategyRewardsAngularDiversity(t *testing.T) {
	strategy := NewAdvancedStrategy(DefaultConfig())
	start := geo.Location{Latitude: 0, Longitude: 0}

	alreadySelected := []poi.POI{poiAt("east", 0, 0.01, 50)}
	opposite := poiAt("west", 0, -0.01, 50)
	sameDirection := poiAt("east-too", 0.0001, 0.0101, 50)

	ctx := Context{
		Start:                start,
		TargetWaypointDistKm: 1.0,
		TargetDistanceKm:     4.0,
		AttemptSeed:          0,
		AlreadySelected:      alreadySelected,
	}

	scored := strategy.Score([]poi.POI{opposite, sameDirection}, ctx)
	require.Len(t, scored, 2)

	var oppositeScore, sameScore float64
	for _, s := range scored {
		if s.POI.Name == "west" {
			oppositeScore = s.Score
		} else {
			sameScore = s.Score
		}
	}
	assert.Greater(t, oppositeScore, sameScore)
}

func TestClusterPenaltyPenalizesNearbyPOIs(t *testing.T) {
	candidate := poiAt("candidate", 0, 0.001, 50)
	selected := []poi.POI{poiAt("selected", 0, 0.0011, 50)}

	penalty := clusterPenalty(candidate, selected, 1.0)
	assert.Greater(t, penalty, 0.0)

	noPenalty := clusterPenalty(candidate, nil, 1.0)
	assert.Equal(t, 0.0, noPenalty)
}

func TestLoopShapeScoreNeutralForFirstSelection(t *testing.T) {
	start := geo.Location{Latitude: 0, Longitude: 0}
	candidate := poiAt("first", 0, 0.01, 50)
	assert.Equal(t, 0.5, loopShapeScore(start, candidate, nil))
}
