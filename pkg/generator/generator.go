// Package generator implements the route-generation orchestrator (spec
// §4.6, §4.11): POI discovery, the three-tolerance-band retry driver, and
// the geometric-loop fallback, wired together behind a single
// GenerateLoop operation with cache-first lookup and singleflight
// collapsing of concurrent duplicate requests.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/loopcircuit/looproute/pkg/cache"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/geoloop"
	"github.com/loopcircuit/looproute/pkg/looperr"
	"github.com/loopcircuit/looproute/pkg/monitoring"
	"github.com/loopcircuit/looproute/pkg/poi"
	"github.com/loopcircuit/looproute/pkg/poirepo"
	"github.com/loopcircuit/looproute/pkg/route"
	"github.com/loopcircuit/looproute/pkg/router"
	"github.com/loopcircuit/looproute/pkg/scoring"
	"github.com/loopcircuit/looproute/pkg/selector"
	"github.com/loopcircuit/looproute/pkg/snapping"
	"golang.org/x/sync/singleflight"
)

// MinTargetDistanceKm and MaxTargetDistanceKm bound a valid request.
const (
	MinTargetDistanceKm = 0.5
	MaxTargetDistanceKm = 50.0
)

// toleranceLevel pairs a distance tolerance with its log-friendly name.
type toleranceLevel struct {
	toleranceKm float64
	name        string
}

// Generator is the route-generation orchestrator. It holds no per-request
// state; a single instance is safe to share across concurrent requests.
type Generator struct {
	repo     poirepo.Repository
	router   *router.Client
	snapper  *snapping.Service
	cache    cache.Cache
	config   Config
	strategy scoring.Strategy
	logger   *slog.Logger

	group singleflight.Group
}

// New constructs a Generator. cache may be nil to disable caching
// entirely; the pipeline still functions, just always generating cold.
func New(repo poirepo.Repository, routerClient *router.Client, snapper *snapping.Service, cacheBackend cache.Cache, config Config, strategy scoring.Strategy, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if strategy == nil {
		strategy = scoring.NewAdvancedStrategy(config.ScoringConfig)
	}
	return &Generator{
		repo:     repo,
		router:   routerClient,
		snapper:  snapper,
		cache:    cacheBackend,
		config:   config,
		strategy: strategy,
		logger:   logger,
	}
}

// GenerateLoop is the route-generation interface exposed by spec §6.
// It always returns at least one Route on success; never an empty slice.
func (g *Generator) GenerateLoop(ctx context.Context, start geo.Location, targetDistanceKm, toleranceKm float64, mode poi.TransportMode, prefs poi.RoutePreferences) ([]*route.Route, error) {
	requestStart := time.Now()
	if err := validateRequest(targetDistanceKm, toleranceKm); err != nil {
		monitoring.RecordError("generator", string(looperr.KindOf(err)))
		return nil, err
	}

	key := cache.Fingerprint(start, targetDistanceKm, mode, prefs.Categories, prefs.HiddenGems)
	backend := "none"
	if g.cache != nil {
		backend = g.cache.BackendName()
	}

	cacheHit := false
	result, err, _ := g.group.Do(key, func() (any, error) {
		if g.cache != nil {
			if routes, ok := g.readCache(ctx, key); ok {
				monitoring.RecordCacheHit(backend)
				cacheHit = true
				return routes, nil
			}
			monitoring.RecordCacheMiss(backend)
		}

		routes, err := g.generate(ctx, start, targetDistanceKm, toleranceKm, mode, prefs)
		if err != nil {
			return nil, err
		}

		if g.cache != nil {
			g.writeCache(ctx, key, routes)
		}
		return routes, nil
	})
	if err != nil {
		monitoring.RecordError("generator", string(looperr.KindOf(err)))
		monitoring.RecordRouteGeneration("error", time.Since(requestStart))
		return nil, err
	}

	outcome := "generated"
	if cacheHit {
		outcome = "cache_hit"
	}
	monitoring.RecordRouteGeneration(outcome, time.Since(requestStart))
	return result.([]*route.Route), nil
}

func validateRequest(targetDistanceKm, toleranceKm float64) error {
	if targetDistanceKm < MinTargetDistanceKm || targetDistanceKm > MaxTargetDistanceKm {
		return looperr.InvalidRequest("target_distance_km %.2f out of range [%.1f, %.1f]", targetDistanceKm, MinTargetDistanceKm, MaxTargetDistanceKm)
	}
	if toleranceKm <= 0 || toleranceKm > targetDistanceKm {
		return looperr.InvalidRequest("tolerance_km %.2f must be in (0, %.2f]", toleranceKm, targetDistanceKm)
	}
	return nil
}

func (g *Generator) readCache(ctx context.Context, key string) ([]*route.Route, bool) {
	raw, found, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("route cache read failed, generating cold", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var routes []*route.Route
	if err := json.Unmarshal(raw, &routes); err != nil {
		g.logger.Warn("route cache entry corrupt, generating cold", "error", err)
		return nil, false
	}
	return routes, true
}

func (g *Generator) writeCache(ctx context.Context, key string, routes []*route.Route) {
	raw, err := json.Marshal(routes)
	if err != nil {
		g.logger.Warn("failed to marshal routes for cache", "error", err)
		return
	}
	if err := g.cache.Put(ctx, key, raw, cache.DefaultTTL); err != nil {
		g.logger.Warn("route cache write failed", "error", err)
	}
}

// generate runs the actual pipeline: discover POIs, then try each
// tolerance band in turn, falling back to a geometric loop if every band
// comes up empty.
func (g *Generator) generate(ctx context.Context, start geo.Location, targetDistanceKm, toleranceKm float64, mode poi.TransportMode, prefs poi.RoutePreferences) ([]*route.Route, error) {
	searchRadiusKm := targetDistanceKm * g.config.POISearchRadiusMultiplier
	poiLimit := clampInt(targetDistanceKm*20, g.config.POILimitMin, g.config.POILimitMax)

	discoveryStart := time.Now()
	rawPOIs, err := g.repo.FindWithinRadius(ctx, start, searchRadiusKm*1000, prefs.Categories, poiLimit)
	monitoring.POIDiscoveryDuration.Observe(time.Since(discoveryStart).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, looperr.Timeout(err, "POI discovery deadline exceeded")
		}
		return nil, looperr.Storage(err, "POI discovery failed")
	}

	if len(rawPOIs) == 0 {
		g.logger.Warn("no POIs found within search radius, attempting geometric fallback",
			"search_radius_km", searchRadiusKm, "poi_limit", poiLimit)
		return g.fallbackToGeometricLoop(ctx, start, targetDistanceKm, mode, 0, "no_pois_found")
	}

	candidateLimit := clampInt(targetDistanceKm*10, g.config.CandidateLimitMin, g.config.CandidateLimitMax)
	candidates := scoreAndFilterPOIs(rawPOIs, prefs.HiddenGems, candidateLimit)

	sel := selector.New(g.config.SelectorConfig, g.strategy, g.logger)

	maxAlternatives := prefs.MaxAlternatives
	levels := []toleranceLevel{
		{toleranceKm, "normal"},
		{targetDistanceKm * g.config.ToleranceLevelRelaxed, "relaxed"},
		{targetDistanceKm * g.config.ToleranceLevelVeryRelaxed, "very_relaxed"},
	}

	for levelIndex, level := range levels {
		seedOffset := levelIndex * maxAlternatives
		routes := g.tryGenerateRoutesWithTolerance(ctx, start, targetDistanceKm, level.toleranceKm, mode, candidates, prefs, seedOffset, sel, len(rawPOIs), level.name)
		if len(routes) > 0 {
			if level.name != "normal" {
				g.logger.Info("succeeded with relaxed tolerance", "tolerance_name", level.name)
			}
			return routes, nil
		}
		g.logger.Warn("tolerance level exhausted, trying next", "tolerance_name", level.name)
		monitoring.RecordToleranceBandExhausted(level.name)
	}

	g.logger.Warn("all tolerance levels exhausted, falling back to geometric loop", "candidates", len(candidates))
	return g.fallbackToGeometricLoop(ctx, start, targetDistanceKm, mode, len(rawPOIs), "tolerance_bands_exhausted")
}

func (g *Generator) fallbackToGeometricLoop(ctx context.Context, start geo.Location, targetDistanceKm float64, mode poi.TransportMode, areaPOICount int, reason string) ([]*route.Route, error) {
	monitoring.RecordGeometricFallback(reason)
	r, err := geoloop.Generate(ctx, g.router, start, targetDistanceKm, mode, areaPOICount)
	if err != nil {
		return nil, looperr.Exhausted("geometric-loop fallback failed: %v", err)
	}
	return []*route.Route{r}, nil
}

// tryGenerateRoutesWithTolerance runs maxAlternatives independent attempts
// at a single tolerance band, scoring and ranking whatever succeeds.
func (g *Generator) tryGenerateRoutesWithTolerance(ctx context.Context, start geo.Location, targetDistanceKm, toleranceKm float64, mode poi.TransportMode, candidates []poi.POI, prefs poi.RoutePreferences, seedOffset int, sel *selector.Selector, areaPOICount int, bandName string) []*route.Route {
	maxAlternatives := prefs.MaxAlternatives
	routes := make([]*route.Route, 0, maxAlternatives)

	for attempt := 0; attempt < maxAlternatives; attempt++ {
		attemptSeed := attempt + seedOffset
		r, err := g.tryGenerateLoop(ctx, start, targetDistanceKm, toleranceKm, mode, candidates, attemptSeed, prefs, sel, areaPOICount)
		monitoring.RecordToleranceBandAttempt(bandName, err == nil)
		if err != nil {
			g.logger.Debug("route alternative failed", "attempt", attempt+1, "error", err)
			continue
		}
		routes = append(routes, r)
	}

	if len(routes) == 0 {
		return nil
	}

	sortRoutesDeterministically(routes)
	return routes
}

// tryGenerateLoop runs the per-attempt retry loop: select waypoints,
// verify loop shape, call the road router, and accept on tolerance match.
// A router failure propagates immediately (the attempt is abandoned, not
// retried); a selection or shape failure just continues to the next
// retry.
func (g *Generator) tryGenerateLoop(ctx context.Context, start geo.Location, targetDistanceKm, toleranceKm float64, mode poi.TransportMode, candidates []poi.POI, attemptSeed int, prefs poi.RoutePreferences, sel *selector.Selector, areaPOICount int) (*route.Route, error) {
	minDistance := targetDistanceKm - toleranceKm
	maxDistance := targetDistanceKm + toleranceKm

	for retry := 0; retry < g.config.MaxRouteGenerationRetries; retry++ {
		adjustedTarget := adjustedTargetDistance(targetDistanceKm, retry)

		seed := attemptSeed*g.config.MaxRouteGenerationRetries + retry
		selected, err := sel.SelectLoopWaypoints(start, adjustedTarget, candidates, seed, prefs)
		if err != nil {
			continue
		}

		ordered := selector.OrderClockwise(start, selected)
		if !selector.VerifyLoopShape(start, ordered, retry) {
			g.logger.Debug("retry skipped: poor loop shape", "retry", retry+1, "waypoint_count", len(ordered))
			continue
		}

		waypoints := buildLoopWaypoints(start, ordered)
		directions, err := g.router.GetDirections(ctx, waypoints, mode)
		if err != nil {
			return nil, err
		}

		distanceKm := directions.DistanceKm()
		if distanceKm >= minDistance && distanceKm <= maxDistance {
			return route.Build(ctx, route.BuildInput{
				Directions:       directions,
				WaypointPOIs:     ordered,
				Snapper:          g.snapper,
				SnapRadiusMeters: g.config.SnapRadiusMeters,
				Categories:       prefs.Categories,
				AreaPOICount:     areaPOICount,
				TargetDistanceKm: targetDistanceKm,
				HiddenGems:       prefs.HiddenGems,
			}, g.logger)
		}

		errorPct := abs(distanceKm-targetDistanceKm) / targetDistanceKm * 100
		g.logger.Debug("retry outside tolerance", "retry", retry+1, "achieved_km", distanceKm, "error_pct", errorPct)
	}

	return nil, looperr.Exhausted("could not achieve target distance after %d retries with %d candidates", g.config.MaxRouteGenerationRetries, len(candidates))
}

func buildLoopWaypoints(start geo.Location, selected []poi.POI) []geo.Location {
	waypoints := make([]geo.Location, 0, len(selected)+2)
	waypoints = append(waypoints, start)
	for _, p := range selected {
		waypoints = append(waypoints, p.Coordinates)
	}
	waypoints = append(waypoints, start)
	return waypoints
}

// scoreAndFilterPOIs ranks raw POIs by quality score and keeps the top
// maxCount, shrinking the candidate pool before the more expensive
// per-attempt scoring strategies run over it.
func scoreAndFilterPOIs(pois []poi.POI, hiddenGems bool, maxCount int) []poi.POI {
	sorted := make([]poi.POI, len(pois))
	copy(sorted, pois)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QualityScore(hiddenGems) > sorted[j].QualityScore(hiddenGems)
	})
	if len(sorted) > maxCount {
		sorted = sorted[:maxCount]
	}
	return sorted
}

// sortRoutesDeterministically ranks routes by score descending, breaking
// ties on the ascending waypoint-POI-id tuple so routes with equal scores
// always come out in the same order. Attempts run sequentially.
func sortRoutesDeterministically(routes []*route.Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Score != routes[j].Score {
			return routes[i].Score > routes[j].Score
		}
		return waypointIDKey(routes[i]) < waypointIDKey(routes[j])
	})
}

func waypointIDKey(r *route.Route) string {
	key := ""
	for _, rp := range r.POIs {
		key += rp.POI.ID.String()
	}
	return key
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
