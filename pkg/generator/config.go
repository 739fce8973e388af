package generator

import (
	"github.com/loopcircuit/looproute/pkg/scoring"
	"github.com/loopcircuit/looproute/pkg/selector"
)

// Config holds the orchestrator's tuning knobs. Most default values come
// directly from spec numeric guidance; POISearchRadiusMultiplier and the
// candidate/POI pool bounds are this implementation's own choice, recorded
// as an Open Question decision in DESIGN.md since the original's
// equivalent config struct was never present in the retrieved sources.
type Config struct {
	// POISearchRadiusMultiplier scales target distance into a POI search
	// radius: search_radius_km = target_distance_km * multiplier.
	POISearchRadiusMultiplier float64
	// POILimitMin/Max bound the repository query limit, scaled with
	// target distance (20 POIs per km, clamped).
	POILimitMin, POILimitMax int
	// CandidateLimitMin/Max bound the scored candidate pool size, scaled
	// with target distance (10 POIs per km, clamped).
	CandidateLimitMin, CandidateLimitMax int
	// ToleranceLevelRelaxed and ToleranceLevelVeryRelaxed are the second
	// and third tolerance bands, as a fraction of target distance.
	ToleranceLevelRelaxed     float64
	ToleranceLevelVeryRelaxed float64
	// MaxRouteGenerationRetries bounds the per-attempt retry loop.
	MaxRouteGenerationRetries int
	// SnapRadiusMeters is passed through to the snapping service during
	// route assembly.
	SnapRadiusMeters float64

	SelectorConfig selector.Config
	ScoringConfig  scoring.Config
}

// DefaultConfig returns the orchestrator defaults: 1.5x search radius
// multiplier, 15%/30% relaxed tolerance bands, 5 retries per attempt, and
// the 100m default snap radius.
func DefaultConfig() Config {
	return Config{
		POISearchRadiusMultiplier: 1.5,
		POILimitMin:               50,
		POILimitMax:               500,
		CandidateLimitMin:         20,
		CandidateLimitMax:         100,
		ToleranceLevelRelaxed:     0.15,
		ToleranceLevelVeryRelaxed: 0.30,
		MaxRouteGenerationRetries: 5,
		SnapRadiusMeters:          100.0,
		SelectorConfig:            selector.DefaultConfig(),
		ScoringConfig:             scoring.DefaultConfig(),
	}
}

// clampInt clamps a float-derived count into [lo, hi].
func clampInt(v float64, lo, hi int) int {
	n := int(v)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// adjustedTargetDistance implements spec §4.6's piecewise retry schedule:
// retry 0 uses the honest target; retries 1-2 use target*(0.8+0.2*retry);
// retries 3+ use target*(0.6+0.15*retry). That gives multipliers 1.0, 1.0,
// 1.2, 1.05, 1.2 for retries 0-4, so the waypoint-selection target varies
// from retry to retry rather than repeating the same shot.
func adjustedTargetDistance(targetDistanceKm float64, retry int) float64 {
	switch {
	case retry == 0:
		return targetDistanceKm
	case retry <= 2:
		return targetDistanceKm * (0.8 + float64(retry)*0.2)
	default:
		return targetDistanceKm * (0.6 + float64(retry)*0.15)
	}
}
