package poi

import (
	"testing"

	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategoryCaseInsensitive(t *testing.T) {
	c, err := ParseCategory("Museum")
	require.NoError(t, err)
	assert.Equal(t, CategoryMuseum, c)

	c, err = ParseCategory("NATURE_RESERVE")
	require.NoError(t, err)
	assert.Equal(t, CategoryNatureReserve, c)
}

func TestParseCategoryUnknown(t *testing.T) {
	_, err := ParseCategory("spaceport")
	assert.Error(t, err)
}

func TestAllCategoriesCount(t *testing.T) {
	assert.Len(t, AllCategories, 24)
}

func TestPOINewClampsPopularity(t *testing.T) {
	p := New(uuid.Nil, "Eiffel Tower", CategoryMonument, geo.Location{Latitude: 48.8584, Longitude: 2.2945}, 150)
	assert.Equal(t, 100.0, p.PopularityScore)
	assert.NotEqual(t, uuid.Nil, p.ID)

	p2 := New(uuid.Nil, "x", CategoryPark, geo.Location{}, -10)
	assert.Equal(t, 0.0, p2.PopularityScore)
}

func TestQualityScoreHiddenGems(t *testing.T) {
	p := New(uuid.Nil, "x", CategoryPark, geo.Location{}, 80)
	assert.Equal(t, 80.0, p.QualityScore(false))
	assert.Equal(t, 20.0, p.QualityScore(true))
}

func TestTransportModeRouterProfile(t *testing.T) {
	profile, err := ModeWalk.RouterProfile()
	require.NoError(t, err)
	assert.Equal(t, "walking", profile)

	profile, err = ModeBike.RouterProfile()
	require.NoError(t, err)
	assert.Equal(t, "cycling", profile)
}

func TestNewRoutePreferencesClampsAlternatives(t *testing.T) {
	p := NewRoutePreferences(nil, false, 1)
	assert.Equal(t, MinAlternatives, p.MaxAlternatives)

	p = NewRoutePreferences(nil, false, 100)
	assert.Equal(t, MaxAlternatives, p.MaxAlternatives)

	p = NewRoutePreferences(nil, false, 0)
	assert.Equal(t, DefaultMaxAlternatives, p.MaxAlternatives)
}

func TestRoutePreferencesAllowsCategory(t *testing.T) {
	p := NewRoutePreferences([]Category{CategoryPark, CategoryMuseum}, false, 3)
	assert.True(t, p.AllowsCategory(CategoryPark))
	assert.False(t, p.AllowsCategory(CategoryCafe))

	unrestricted := NewRoutePreferences(nil, false, 3)
	assert.True(t, unrestricted.AllowsCategory(CategoryCafe))
}
