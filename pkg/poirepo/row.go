package poirepo

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/poi"
)

// RawRow is the shape a row takes coming out of an untrusted external store
// (columns stored as plain strings/numbers) before being defensively parsed
// into a poi.POI. Grounded in the original's RawPoiRow::into_poi, which
// never rejects a row outright — it degrades individual fields and logs.
type RawRow struct {
	ID                         uuid.UUID
	Name                       string
	Category                   string
	Lat                        float64
	Lng                        float64
	PopularityScore            float64
	Description                string
	EstimatedVisitDurationMins *int
	SourceMapID                string
}

// IntoPOI defensively converts a RawRow into a poi.POI:
//   - an unrecognized category falls back to CategoryHistoric with a warning;
//   - out-of-range coordinates fall back to (0,0) with an error log, rather
//     than aborting the whole query;
//   - a negative estimated-visit-duration is dropped (set to nil) with a
//     warning, rather than propagated.
func (r RawRow) IntoPOI(logger *slog.Logger) poi.POI {
	if logger == nil {
		logger = slog.Default()
	}

	category, err := poi.ParseCategory(r.Category)
	if err != nil {
		logger.Warn("unrecognized POI category, defaulting to historic", "raw_category", r.Category, "poi_id", r.ID)
		category = poi.CategoryHistoric
	}

	coords, err := geo.NewLocation(r.Lat, r.Lng)
	if err != nil {
		logger.Error("invalid POI coordinates, defaulting to (0,0)", "error", err, "poi_id", r.ID)
		coords = geo.Location{}
	}

	duration := r.EstimatedVisitDurationMins
	if duration != nil && *duration < 0 {
		logger.Warn("negative estimated visit duration dropped", "poi_id", r.ID, "value", *duration)
		duration = nil
	}

	p := poi.New(r.ID, r.Name, category, coords, r.PopularityScore)
	p.Description = r.Description
	p.EstimatedVisitDurationMins = duration
	p.SourceMapID = r.SourceMapID
	return p
}
