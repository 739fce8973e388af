// Package poirepo implements the spatial POI repository contract: radius
// queries (bbox pre-filter + haversine post-filter + sort), bbox queries,
// insert, and count. Two implementations satisfy the contract identically:
// an embedded in-process R-tree (Memory) and a server-side spatial
// extension backed by PostgreSQL/PostGIS (Postgres).
package poirepo

import (
	"context"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
)

// Repository is the spatial POI repository capability set (spec §4.2).
type Repository interface {
	// FindWithinRadius returns POIs within radiusMeters of center, optionally
	// filtered to categories, sorted ascending by haversine distance, and
	// truncated to limit.
	FindWithinRadius(ctx context.Context, center geo.Location, radiusMeters float64, categories []poi.Category, limit int) ([]poi.POI, error)
	// FindInBBox returns POIs within the bounding box, optionally filtered to
	// categories, in unspecified order, truncated to limit.
	FindInBBox(ctx context.Context, box geo.BoundingBox, categories []poi.Category, limit int) ([]poi.POI, error)
	// Insert adds p to the repository. It returns only an error; the id
	// the POI is stored under is not returned.
	Insert(ctx context.Context, p poi.POI) error
	// Count returns the total number of POIs in the repository.
	Count(ctx context.Context) (int64, error)
}

// categoryAllowed reports whether p's category passes the given allow-list
// (nil/empty means unrestricted).
func categoryAllowed(category poi.Category, categories []poi.Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
