package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for route-generation operations.
const (
	// Request-level attributes.
	AttrStartLat        = "loop.start.lat"
	AttrStartLng        = "loop.start.lng"
	AttrTargetKm        = "loop.target_km"
	AttrToleranceKm     = "loop.tolerance_km"
	AttrMode            = "loop.mode"
	AttrFingerprint     = "loop.fingerprint"
	AttrToleranceBand   = "loop.tolerance_band"
	AttrAttemptSeed     = "loop.attempt_seed"
	AttrRetry           = "loop.retry"
	AttrWaypointCount   = "loop.waypoint_count"
	AttrRouteScore      = "loop.route.score"
	AttrRouteDistanceKm = "loop.route.distance_km"
	AttrFallback        = "loop.fallback"

	// External service attributes.
	AttrServiceName      = "loop.service.name"
	AttrServiceOperation = "loop.service.operation"
	AttrServiceURL       = "loop.service.url"
	AttrServiceStatus    = "loop.service.status"

	// Cache attributes.
	AttrCacheType = "loop.cache.type"
	AttrCacheHit  = "loop.cache.hit"
	AttrCacheKey  = "loop.cache.key"

	// HTTP transport attributes (road-router client).
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"

	// Error attributes.
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Service names.
const (
	ServiceRoadRouter = "road_router"
	ServicePOIRepo    = "poi_repository"
)

// Cache types.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// ServiceAttributes returns attributes for external service calls.
func ServiceAttributes(service, operation, url string, status int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrServiceName, service),
		attribute.String(AttrServiceOperation, operation),
		attribute.String(AttrServiceURL, url),
		attribute.Int(AttrServiceStatus, status),
	}
}

// CacheAttributes returns attributes for cache operations.
func CacheAttributes(cacheType string, hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheType, cacheType),
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ErrorAttributes returns attributes for errors.
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
