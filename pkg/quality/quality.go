// Package quality computes the six-metric route-quality score (spec §4.9):
// circularity, convexity, path overlap, POI density, category entropy, and
// landmark coverage, plus a POI-density-context classification for the
// surrounding search area. It takes plain geometry and POI slices rather
// than a route.Route, so pkg/route can depend on pkg/quality without a
// cycle.
package quality

import (
	"math"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/loopgeom"
	"github.com/loopcircuit/looproute/pkg/poi"
)

// DefaultOverlapThresholdM is the distance below which two non-adjacent
// segments are considered to reuse the same street.
const DefaultOverlapThresholdM = 25.0

// overlapSkipNeighbors excludes this many segments on either side of a
// segment from its own overlap check, since consecutive segments on a
// path are always close to each other.
const overlapSkipNeighbors = 3

// gridCellSizeDeg sizes the spatial hash used to bound the overlap check
// to nearby segments instead of an all-pairs scan. ~50m at mid-latitudes.
const gridCellSizeDeg = 0.00045

// metersPerDegree approximates degree-to-meter conversion for the small
// offsets involved in overlap detection; it is not used for absolute
// distances.
const metersPerDegree = 111_000.0

// DensityContext classifies how many POIs exist in the search area around
// a route, independent of how many were actually used as waypoints.
type DensityContext string

const (
	DensityGeometric DensityContext = "geometric"
	DensitySparse    DensityContext = "sparse"
	DensityModerate  DensityContext = "moderate"
	DensityDense     DensityContext = "dense"
)

// DensityContextFromCount classifies an area POI count into a
// DensityContext: 0-1 geometric, 2-7 sparse, 8-19 moderate, 20+ dense.
func DensityContextFromCount(count int) DensityContext {
	switch {
	case count <= 1:
		return DensityGeometric
	case count <= 7:
		return DensitySparse
	case count <= 19:
		return DensityModerate
	default:
		return DensityDense
	}
}

// Metrics is the computed quality profile of a single route.
type Metrics struct {
	Circularity      float64
	Convexity        float64
	PathOverlapPct   float64
	POIDensityPerKm  float64
	CategoryEntropy  float64
	LandmarkCoverage float64
	DensityContext   DensityContext
}

// Input bundles everything Compute needs. WaypointPOIs are the POIs chosen
// as route anchors (they drive landmark coverage); SnappedPOIs are
// additional POIs discovered along the built path. Both feed category
// entropy and the POI-density-per-km metric. OverlapThresholdM <= 0 uses
// DefaultOverlapThresholdM.
type Input struct {
	Path              []geo.Location
	WaypointPOIs      []poi.POI
	SnappedPOIs       []poi.POI
	DistanceKm        float64
	AreaPOICount      int
	OverlapThresholdM float64
}

// Compute derives Metrics from a route's path geometry and POI mix.
func Compute(in Input) Metrics {
	threshold := in.OverlapThresholdM
	if threshold <= 0 {
		threshold = DefaultOverlapThresholdM
	}

	totalPOICount := len(in.WaypointPOIs) + len(in.SnappedPOIs)

	return Metrics{
		Circularity:      computeCircularity(in.Path),
		Convexity:        computeConvexity(in.Path),
		PathOverlapPct:   computePathOverlap(in.Path, threshold),
		POIDensityPerKm:  computePOIDensity(totalPOICount, in.DistanceKm),
		CategoryEntropy:  computeCategoryEntropy(in.WaypointPOIs, in.SnappedPOIs),
		LandmarkCoverage: computeLandmarkCoverage(in.WaypointPOIs),
		DensityContext:   DensityContextFromCount(in.AreaPOICount),
	}
}

// computeCircularity is the isoperimetric ratio 4*pi*area / perimeter^2,
// 1.0 for a perfect circle, near 0 for a thin sliver or out-and-back path.
func computeCircularity(path []geo.Location) float64 {
	if len(path) < 3 {
		return 0
	}

	area := math.Abs(loopgeom.ShoelaceArea(path))
	perimeter := loopgeom.PathLength(path)
	if perimeter < 1e-10 {
		return 0
	}

	ratio := (4 * math.Pi * area) / (perimeter * perimeter)
	return clamp01(ratio)
}

// computeConvexity is path polygon area divided by its convex hull area,
// 1.0 for a convex shape, lower for indentations like a figure-8.
func computeConvexity(path []geo.Location) float64 {
	if len(path) < 3 {
		return 0
	}

	pathArea := math.Abs(loopgeom.ShoelaceArea(path))
	if pathArea < 1e-10 {
		return 0
	}

	hull := loopgeom.ConvexHull(path)
	hullArea := math.Abs(loopgeom.ShoelaceArea(hull))
	if hullArea < 1e-10 {
		return 0
	}

	return clamp01(pathArea / hullArea)
}

type gridKey struct{ col, row int64 }

// computePathOverlap estimates the fraction of path length that retraces
// itself by bucketing segments into a spatial grid and, for each segment,
// checking only the segments sharing or neighboring its grid cell.
func computePathOverlap(path []geo.Location, thresholdM float64) float64 {
	if len(path) < 4 {
		return 0
	}

	thresholdDeg := thresholdM / metersPerDegree

	type segment struct{ a, b geo.Location }
	segments := make([]segment, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		segments = append(segments, segment{path[i], path[i+1]})
	}

	grid := make(map[gridKey][]int)
	for idx, seg := range segments {
		minLat := math.Min(seg.a.Latitude, seg.b.Latitude) - thresholdDeg
		maxLat := math.Max(seg.a.Latitude, seg.b.Latitude) + thresholdDeg
		minLng := math.Min(seg.a.Longitude, seg.b.Longitude) - thresholdDeg
		maxLng := math.Max(seg.a.Longitude, seg.b.Longitude) + thresholdDeg

		rowMin := int64(math.Floor(minLat / gridCellSizeDeg))
		rowMax := int64(math.Ceil(maxLat / gridCellSizeDeg))
		colMin := int64(math.Floor(minLng / gridCellSizeDeg))
		colMax := int64(math.Ceil(maxLng / gridCellSizeDeg))

		for row := rowMin; row <= rowMax; row++ {
			for col := colMin; col <= colMax; col++ {
				key := gridKey{col, row}
				grid[key] = append(grid[key], idx)
			}
		}
	}

	var overlappingLength, totalLength float64

	for idx, seg := range segments {
		segLen := loopgeom.SegmentLengthM(seg.a, seg.b)
		totalLength += segLen

		midLat := (seg.a.Latitude + seg.b.Latitude) / 2
		midLng := (seg.a.Longitude + seg.b.Longitude) / 2
		col := int64(math.Floor(midLng / gridCellSizeDeg))
		row := int64(math.Floor(midLat / gridCellSizeDeg))

		isOverlapping := false
	outer:
		for dRow := int64(-1); dRow <= 1; dRow++ {
			for dCol := int64(-1); dCol <= 1; dCol++ {
				nearby, ok := grid[gridKey{col + dCol, row + dRow}]
				if !ok {
					continue
				}
				for _, otherIdx := range nearby {
					if absDiff(idx, otherIdx) <= overlapSkipNeighbors {
						continue
					}
					other := segments[otherIdx]
					dist := loopgeom.MinSegmentDistance(seg.a, seg.b, other.a, other.b)
					distM := dist * metersPerDegree
					if distM < thresholdM {
						isOverlapping = true
						break outer
					}
				}
			}
		}

		if isOverlapping {
			overlappingLength += segLen
		}
	}

	if totalLength < 1e-10 {
		return 0
	}
	return clamp01(overlappingLength / totalLength)
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// computePOIDensity is POIs per kilometer of route length.
func computePOIDensity(poiCount int, distanceKm float64) float64 {
	if distanceKm < 0.01 {
		return 0
	}
	return float64(poiCount) / distanceKm
}

// computeCategoryEntropy is the normalized Shannon entropy of the category
// mix across waypoint and snapped POIs combined: 0 for a single category,
// approaching 1.0 as categories are represented in equal proportion.
func computeCategoryEntropy(waypointPOIs, snappedPOIs []poi.POI) float64 {
	counts := make(map[poi.Category]int)
	for _, p := range waypointPOIs {
		counts[p.Category]++
	}
	for _, p := range snappedPOIs {
		counts[p.Category]++
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	if total <= 1 || len(counts) <= 1 {
		return 0
	}

	var entropy float64
	for _, c := range counts {
		p := float64(c) / float64(total)
		if p > 0 {
			entropy += -p * math.Log(p)
		}
	}

	maxEntropy := math.Log(float64(len(counts)))
	if maxEntropy < 1e-10 {
		return 0
	}
	return clamp01(entropy / maxEntropy)
}

// computeLandmarkCoverage is the average popularity score of the waypoint
// POIs, normalized to [0, 1].
func computeLandmarkCoverage(waypointPOIs []poi.POI) float64 {
	if len(waypointPOIs) == 0 {
		return 0
	}

	var total float64
	for _, p := range waypointPOIs {
		total += p.PopularityScore
	}
	return clamp01(total / float64(len(waypointPOIs)) / 100)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
