package poirepo

import (
	"context"
	"sort"
	"sync"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/tidwall/rtree"
)

// Memory is an in-process spatial POI repository backed by an R-tree index
// over (lat, lng), the "embedded single-file spatial store" variant named in
// spec §4.2. Safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	tree rtree.RTreeG[poi.POI]
	byID map[string]poi.POI
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]poi.POI)}
}

// Insert adds p to the index, keyed by its own point (zero-area bounding
// box), matching the read-mostly/ingest-once lifecycle from spec §3.
func (m *Memory) Insert(_ context.Context, p poi.POI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	point := [2]float64{p.Coordinates.Latitude, p.Coordinates.Longitude}
	m.tree.Insert(point, point, p)
	m.byID[p.ID.String()] = p
	return nil
}

// Count returns the number of indexed POIs.
func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(m.tree.Len()), nil
}

// FindWithinRadius implements the radius-query algorithm from spec §4.2:
// bbox pre-filter via the R-tree, category filter in memory, haversine
// post-filter, ascending sort, limit truncation.
func (m *Memory) FindWithinRadius(_ context.Context, center geo.Location, radiusMeters float64, categories []poi.Category, limit int) ([]poi.POI, error) {
	box := geo.BoundingBoxFromRadius(center, radiusMeters)
	radiusKm := radiusMeters / 1000

	type scored struct {
		p    poi.POI
		dist float64
	}

	var candidates []scored

	m.mu.RLock()
	m.tree.Search(
		[2]float64{box.MinLat, box.MinLng},
		[2]float64{box.MaxLat, box.MaxLng},
		func(_, _ [2]float64, p poi.POI) bool {
			if !categoryAllowed(p.Category, categories) {
				return true
			}
			dist := center.DistanceTo(p.Coordinates)
			if dist <= radiusKm {
				candidates = append(candidates, scored{p: p, dist: dist})
			}
			return true
		},
	)
	m.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]poi.POI, len(candidates))
	for i, c := range candidates {
		out[i] = c.p
	}
	return out, nil
}

// FindInBBox implements the unordered bbox-query algorithm from spec §4.2.
func (m *Memory) FindInBBox(_ context.Context, box geo.BoundingBox, categories []poi.Category, limit int) ([]poi.POI, error) {
	var out []poi.POI

	m.mu.RLock()
	m.tree.Search(
		[2]float64{box.MinLat, box.MinLng},
		[2]float64{box.MaxLat, box.MaxLng},
		func(_, _ [2]float64, p poi.POI) bool {
			if !categoryAllowed(p.Category, categories) {
				return true
			}
			out = append(out, p)
			return limit <= 0 || len(out) < limit
		},
	)
	m.mu.RUnlock()

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
