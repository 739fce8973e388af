package scoring

import (
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
)

// Context carries the per-attempt state a strategy needs to score a pool
// of POI candidates against one selection step.
type Context struct {
	Start                 geo.Location
	TargetWaypointDistKm  float64
	TargetDistanceKm      float64
	AttemptSeed           int
	Preferences           poi.RoutePreferences
	AlreadySelected       []poi.POI
}

// Scored pairs a candidate POI with the score a Strategy assigned it.
type Scored struct {
	POI   poi.POI
	Score float64
}

// Strategy scores a pool of POI candidates for the next waypoint slot.
// Implementations filter out candidates outside the acceptable distance
// band and return the survivors in no particular order; the caller (the
// waypoint selector) is responsible for ranking and picking among them.
type Strategy interface {
	Score(candidates []poi.POI, ctx Context) []Scored
}

func distanceScore(actualDistKm, targetDistKm, targetDistanceKm, blendNumeratorOffset, blendDivisor float64) float64 {
	if actualDistKm < targetDistKm {
		ratio := actualDistKm / targetDistKm
		blend := clamp01((targetDistanceKm-blendNumeratorOffset)/blendDivisor)
		lenient := ratio*0.8 + 0.2
		strict := ratio * ratio
		return lenient*(1-blend) + strict*blend
	}
	excessRatio := (actualDistKm - targetDistKm) / targetDistKm
	penalty := excessRatio * 0.5
	if penalty > 0.8 {
		penalty = 0.8
	}
	return 1 - penalty
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
