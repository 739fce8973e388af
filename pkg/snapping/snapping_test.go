package snapping

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/loopcircuit/looproute/pkg/poirepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSnappedPoisTooShortPath(t *testing.T) {
	svc := NewService(poirepo.NewMemory(), nil)
	result, err := svc.FindSnappedPois(context.Background(), []geo.Location{{Latitude: 0, Longitude: 0}}, nil, DefaultSnapRadiusMeters, nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestFindSnappedPoisExcludesWaypointsAndSortsByCumulativeDistance(t *testing.T) {
	repo := poirepo.NewMemory()
	ctx := context.Background()

	path := []geo.Location{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 0.01},
		{Latitude: 0, Longitude: 0.02},
	}

	waypoint := poi.New(uuid.New(), "waypoint", poi.CategoryPark, path[2], 50)
	near2 := poi.New(uuid.New(), "near-end", poi.CategoryCafe, geo.Location{Latitude: 0.00005, Longitude: 0.015}, 50)
	near1 := poi.New(uuid.New(), "near-start", poi.CategoryCafe, geo.Location{Latitude: 0.00005, Longitude: 0.005}, 50)
	far := poi.New(uuid.New(), "far", poi.CategoryCafe, geo.Location{Latitude: 5, Longitude: 5}, 50)

	for _, p := range []poi.POI{waypoint, near1, near2, far} {
		require.NoError(t, repo.Insert(ctx, p))
	}

	svc := NewService(repo, nil)
	snapped, err := svc.FindSnappedPois(ctx, path, []poi.POI{waypoint}, 50, nil)
	require.NoError(t, err)
	require.Len(t, snapped, 2)

	assert.Equal(t, "near-start", snapped[0].POI.Name)
	assert.Equal(t, "near-end", snapped[1].POI.Name)
	assert.Less(t, snapped[0].DistanceFromStartKm, snapped[1].DistanceFromStartKm)
	for _, sp := range snapped {
		assert.LessOrEqual(t, sp.DistanceFromPathM, 50.0)
	}
}
