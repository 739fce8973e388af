package selector

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/looperr"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/loopcircuit/looproute/pkg/scoring"
)

// spatialDistributionMinAngleTwoPoisRad and ThreePois are the base angular
// separation thresholds the loop-shape verifier starts from at retry 0.
const (
	spatialDistributionMinAngleTwoPoisRad   = 1.0
	spatialDistributionMinAngleThreePoisRad = 1.047
)

// Selector picks and orders the POI waypoints offered to the road router.
type Selector struct {
	config   Config
	strategy scoring.Strategy
	logger   *slog.Logger
}

// New builds a Selector over the given scoring strategy.
func New(config Config, strategy scoring.Strategy, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{config: config, strategy: strategy, logger: logger}
}

// SelectLoopWaypoints chooses up to WaypointsCountShort or
// WaypointsCountLong POIs (2 or 3 with DefaultConfig), and at least 2,
// around start, using attemptSeed to vary the selection across retries of
// the same request.
func (s *Selector) SelectLoopWaypoints(start geo.Location, targetDistanceKm float64, pois []poi.POI, attemptSeed int, preferences poi.RoutePreferences) ([]poi.POI, error) {
	if len(pois) < 2 {
		return nil, looperr.NoPOIsFound("not enough POIs to create route (found %d, need at least 2)", len(pois))
	}

	numWaypoints := s.calculateWaypointCount(targetDistanceKm, len(pois))
	targetWaypointDist := targetDistanceKm * s.config.WaypointDistanceMultiplier

	selected, err := s.selectPoisIteratively(start, pois, targetWaypointDist, targetDistanceKm, numWaypoints, attemptSeed, preferences)
	if err != nil {
		return nil, err
	}

	if len(selected) >= 2 && !areSpatiallyDistributed(start, selected) {
		s.logger.Debug("selected POIs not well distributed, using anyway")
	}

	return selected, nil
}

func (s *Selector) selectPoisIteratively(start geo.Location, pois []poi.POI, targetWaypointDist, targetDistanceKm float64, numWaypoints, attemptSeed int, preferences poi.RoutePreferences) ([]poi.POI, error) {
	var selected []poi.POI
	remaining := append([]poi.POI(nil), pois...)

	for iteration := 0; iteration < numWaypoints; iteration++ {
		if len(remaining) == 0 {
			break
		}

		ctx := scoring.Context{
			Start:                start,
			TargetWaypointDistKm: targetWaypointDist,
			TargetDistanceKm:     targetDistanceKm,
			AttemptSeed:          attemptSeed,
			Preferences:          preferences,
			AlreadySelected:      selected,
		}

		scored := s.strategy.Score(remaining, ctx)
		if len(scored) == 0 {
			s.logger.Warn("no POIs scored in iteration, using fallback")
			fb, err := s.fallbackScoreClosestPois(start, remaining)
			if err != nil {
				return nil, err
			}
			scored = fb
		}

		if len(scored) == 0 {
			s.logger.Warn("no POIs available after fallback", "selected", len(selected), "remaining", len(remaining))
			break
		}

		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

		poolSize := len(scored) / 3
		if poolSize < 1 {
			poolSize = 1
		}
		if poolSize > len(scored) {
			poolSize = len(scored)
		}

		rng := rand.New(rand.NewSource(int64(attemptSeed + len(selected))))
		pick := scored[rng.Intn(poolSize)].POI

		remaining = removePOI(remaining, pick.ID)
		selected = append(selected, pick)
	}

	if len(selected) < 2 {
		return nil, looperr.NoPOIsFound("could only select %d POI(s), need at least 2", len(selected))
	}
	return selected, nil
}

func removePOI(pois []poi.POI, id uuid.UUID) []poi.POI {
	out := pois[:0:0]
	for _, p := range pois {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// fallbackScoreClosestPois relaxes every scoring signal down to raw
// proximity when the active strategy rejects every candidate (e.g. a
// sparse area where nothing falls inside the ideal distance band).
func (s *Selector) fallbackScoreClosestPois(start geo.Location, pois []poi.POI) ([]scoring.Scored, error) {
	s.logger.Warn("using fallback proximity scoring, relaxing constraints")

	if len(pois) < 2 {
		return nil, looperr.NoPOIsFound("not enough POIs in area (found %d, need at least 2)", len(pois))
	}

	var out []scoring.Scored
	for idx, p := range pois {
		dist := start.DistanceTo(p.Coordinates)
		if dist < s.config.MinPOIDistanceKm {
			continue
		}
		score := 1.0/(dist+1.0) + float64(idx)*0.01
		out = append(out, scoring.Scored{POI: p, Score: score})
	}
	return out, nil
}

func (s *Selector) calculateWaypointCount(targetDistanceKm float64, poiCount int) int {
	if targetDistanceKm > s.config.LongRouteThresholdKm && poiCount >= s.config.POICountThresholdLong {
		return s.config.WaypointsCountLong
	}
	return s.config.WaypointsCountShort
}

// OrderClockwise orders selected POIs by ascending atan2(Δlat, Δlng) from
// start. The name follows the original's; the actual invariant is
// monotone angular order, not a true clockwise traversal.
func OrderClockwise(start geo.Location, pois []poi.POI) []poi.POI {
	if len(pois) <= 1 {
		return append([]poi.POI(nil), pois...)
	}

	type angled struct {
		angle float64
		poi   poi.POI
	}
	withAngles := make([]angled, len(pois))
	for i, p := range pois {
		dx := p.Coordinates.Longitude - start.Longitude
		dy := p.Coordinates.Latitude - start.Latitude
		withAngles[i] = angled{angle: math.Atan2(dy, dx), poi: p}
	}

	sort.SliceStable(withAngles, func(i, j int) bool { return withAngles[i].angle < withAngles[j].angle })

	out := make([]poi.POI, len(withAngles))
	for i, a := range withAngles {
		out[i] = a.poi
	}
	return out
}

// areSpatiallyDistributed is an informational-only distribution check
// (kept for logging, not gating); VerifyLoopShape is the real pre-router
// gate.
func areSpatiallyDistributed(start geo.Location, pois []poi.POI) bool {
	if len(pois) < 2 {
		return true
	}

	angles := make([]float64, len(pois))
	for i, p := range pois {
		dx := p.Coordinates.Longitude - start.Longitude
		dy := p.Coordinates.Latitude - start.Latitude
		angles[i] = math.Atan2(dy, dx)
	}

	minAngleDiff := spatialDistributionMinAngleThreePoisRad
	if len(pois) == 2 {
		minAngleDiff = spatialDistributionMinAngleTwoPoisRad
	}

	for i := 0; i < len(angles); i++ {
		for j := i + 1; j < len(angles); j++ {
			diff := math.Abs(angles[i] - angles[j])
			if diff > minAngleDiff && diff < (2*math.Pi-minAngleDiff) {
				return true
			}
		}
	}
	return false
}

// VerifyLoopShape gates waypoint selection before a road-router call is
// spent: every pairwise angular separation between waypoints, measured
// from start, must exceed the retry-relaxed threshold. retry widens the
// threshold's tolerance so sparse areas still make progress eventually
// (see DESIGN.md for the relaxation schedule, which has no surviving
// source and is this student's own choice).
func VerifyLoopShape(start geo.Location, pois []poi.POI, retry int) bool {
	if len(pois) < 2 {
		return true
	}

	base := spatialDistributionMinAngleThreePoisRad
	if len(pois) == 2 {
		base = spatialDistributionMinAngleTwoPoisRad
	}
	threshold := base * relaxationFactor(retry)

	angles := make([]float64, len(pois))
	for i, p := range pois {
		angles[i] = math.Atan2(p.Coordinates.Latitude-start.Latitude, p.Coordinates.Longitude-start.Longitude)
	}

	minSeparation := math.MaxFloat64
	for i := 0; i < len(angles); i++ {
		for j := i + 1; j < len(angles); j++ {
			diff := math.Abs(angles[i] - angles[j])
			if wrapped := 2*math.Pi - diff; wrapped < diff {
				diff = wrapped
			}
			if diff < minSeparation {
				minSeparation = diff
			}
		}
	}

	return minSeparation > threshold
}

// relaxationFactor shrinks the loop-shape threshold by 15% per retry,
// floored at 30% of the base threshold so the verifier never becomes a
// no-op.
func relaxationFactor(retry int) float64 {
	factor := 1.0 - 0.15*float64(retry)
	if factor < 0.3 {
		factor = 0.3
	}
	return factor
}
