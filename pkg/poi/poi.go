package poi

import (
	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
)

// POI is a point of interest with a stable identity.
type POI struct {
	ID                         uuid.UUID
	Name                       string
	Category                   Category
	Coordinates                geo.Location
	PopularityScore            float64
	Description                string
	EstimatedVisitDurationMins *int
	SourceMapID                string
}

// New constructs a POI, clamping PopularityScore to [0, 100] and assigning a
// fresh identity if id is the zero UUID.
func New(id uuid.UUID, name string, category Category, coords geo.Location, popularity float64) POI {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if popularity < 0 {
		popularity = 0
	} else if popularity > 100 {
		popularity = 100
	}
	return POI{
		ID:              id,
		Name:            name,
		Category:        category,
		Coordinates:     coords,
		PopularityScore: popularity,
	}
}

// QualityScore returns the popularity score, or its complement (100 -
// popularity) when hiddenGems is requested — surfacing lesser-known POIs
// instead of famous ones.
func (p POI) QualityScore(hiddenGems bool) float64 {
	if hiddenGems {
		return 100 - p.PopularityScore
	}
	return p.PopularityScore
}
