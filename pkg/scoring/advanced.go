package scoring

import (
	"math"

	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/loopgeom"
	"github.com/loopcircuit/looproute/pkg/poi"
)

// AdvancedStrategy is the context-aware scorer: it blends distance fit,
// POI quality, angular diversity from already-selected waypoints, a loop
// shape predictor (does this candidate expand the route's convex hull),
// and a clustering penalty for POIs too close to ones already picked.
type AdvancedStrategy struct {
	Config Config
}

// NewAdvancedStrategy builds an AdvancedStrategy over cfg.
func NewAdvancedStrategy(cfg Config) *AdvancedStrategy {
	return &AdvancedStrategy{Config: cfg}
}

// Score implements Strategy.
func (s *AdvancedStrategy) Score(candidates []poi.POI, ctx Context) []Scored {
	maxDist := maxReasonableDistanceKm(ctx.TargetDistanceKm, s.Config)

	selectedAngles := make([]float64, len(ctx.AlreadySelected))
	for i, p := range ctx.AlreadySelected {
		selectedAngles[i] = loopgeom.AngleFromStart(ctx.Start, p.Coordinates)
	}

	var out []Scored
	for idx, candidate := range candidates {
		dist := ctx.Start.DistanceTo(candidate.Coordinates)
		if dist < s.Config.MinPOIDistanceKm || dist > maxDist {
			continue
		}

		score := 0.0

		distScore := distanceScore(dist, ctx.TargetWaypointDistKm, ctx.TargetDistanceKm, 5.0, 7.0)
		score += distScore * s.Config.WeightDistance

		qualityScore := candidate.QualityScore(ctx.Preferences.HiddenGems) / 100.0
		score += qualityScore * s.Config.WeightQuality

		angle := loopgeom.AngleFromStart(ctx.Start, candidate.Coordinates)
		angularHalf := s.Config.WeightAngular / 2.0
		score += angularDiversityScore(angle, selectedAngles) * angularHalf
		score += loopShapeScore(ctx.Start, candidate, ctx.AlreadySelected) * angularHalf

		clusterPenalty := clusterPenalty(candidate, ctx.AlreadySelected, s.Config.POIMinSeparationKm)
		score -= clusterPenalty * s.Config.WeightClustering

		score += variationOffset(idx, ctx.AttemptSeed) * s.Config.WeightVariation

		out = append(out, Scored{POI: candidate, Score: score})
	}
	return out
}

// angularDiversityScore rewards a candidate angle far from every
// already-selected angle (wrapped to the shorter way around the circle).
func angularDiversityScore(candidateAngle float64, selectedAngles []float64) float64 {
	if len(selectedAngles) == 0 {
		return 1.0
	}

	minDiff := math.MaxFloat64
	for _, angle := range selectedAngles {
		diff := math.Abs(candidateAngle - angle)
		if wrapped := 2*math.Pi - diff; wrapped < diff {
			diff = wrapped
		}
		if diff < minDiff {
			minDiff = diff
		}
	}
	return clamp01(minDiff / math.Pi)
}

// clusterPenalty returns the largest penalty incurred by candidate being
// within minSeparationKm of any already-selected POI, scaled to 0..100.
func clusterPenalty(candidate poi.POI, selected []poi.POI, minSeparationKm float64) float64 {
	maxPenalty := 0.0
	for _, p := range selected {
		dist := candidate.Coordinates.DistanceTo(p.Coordinates)
		if dist < minSeparationKm {
			penalty := (1 - dist/minSeparationKm) * 100
			if penalty > maxPenalty {
				maxPenalty = penalty
			}
		}
	}
	return maxPenalty
}

// loopShapeScore estimates whether adding candidate to the already-selected
// set expands the convex hull area relative to leaving it out, rewarding
// waypoints that push the loop's footprint outward.
func loopShapeScore(start geo.Location, candidate poi.POI, alreadySelected []poi.POI) float64 {
	if len(alreadySelected) == 0 {
		return 0.5
	}

	points := make([]geo.Location, 0, len(alreadySelected)+2)
	points = append(points, start)
	for _, p := range alreadySelected {
		points = append(points, p.Coordinates)
	}

	areaWithout := loopgeom.ConvexHullArea(points)
	points = append(points, candidate.Coordinates)
	areaWith := loopgeom.ConvexHullArea(points)

	if areaWithout < 1e-15 {
		if areaWith > 1e-15 {
			return 1.0
		}
		return 0.0
	}

	ratio := areaWith / areaWithout
	return clamp01(ratio - 1.0)
}
