package scoring

import "github.com/loopcircuit/looproute/pkg/poi"

// SimpleStrategy is the original distance-only scorer: a POI's score comes
// entirely from how close its distance from the start is to the ideal
// per-waypoint distance, plus an unweighted deterministic variation bonus
// of 0 to 4.95, which can outweigh the distance score (at most 1).
type SimpleStrategy struct {
	Config Config
}

// NewSimpleStrategy builds a SimpleStrategy over cfg.
func NewSimpleStrategy(cfg Config) *SimpleStrategy {
	return &SimpleStrategy{Config: cfg}
}

// Score implements Strategy. Blend factor goes from 0 (lenient, ratio*0.8+0.2)
// at or below a 12km route target to 1 (strict quadratic) at 15km and
// beyond.
func (s *SimpleStrategy) Score(candidates []poi.POI, ctx Context) []Scored {
	maxDist := maxReasonableDistanceKm(ctx.TargetDistanceKm, s.Config)

	var out []Scored
	for idx, candidate := range candidates {
		dist := ctx.Start.DistanceTo(candidate.Coordinates)
		if dist < s.Config.MinPOIDistanceKm || dist > maxDist {
			continue
		}

		score := distanceScore(dist, ctx.TargetWaypointDistKm, ctx.TargetDistanceKm, 12.0, 3.0)
		score += variationOffset(idx, ctx.AttemptSeed)

		out = append(out, Scored{POI: candidate, Score: score})
	}
	return out
}
