package poirepo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loopcircuit/looproute/pkg/geo"
	"github.com/loopcircuit/looproute/pkg/looperr"
	"github.com/loopcircuit/looproute/pkg/poi"
)

// Postgres is a POI repository backed by a PostGIS-enabled PostgreSQL
// database — the "server-side spatial extension" variant from spec §4.2.
// It expects a table with a geography(Point, 4326) column and relies on
// ST_DWithin/the bounding-box operator for the spatial pre-filter, same as
// the in-process R-tree variant relies on the tree's bbox search.
type Postgres struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewPostgres wraps an existing pool. table defaults to "pois".
func NewPostgres(pool *pgxpool.Pool, table string, logger *slog.Logger) *Postgres {
	if table == "" {
		table = "pois"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, table: table, logger: logger}
}

func categoryPlaceholders(categories []poi.Category, startAt int) (string, []any) {
	if len(categories) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(categories))
	args := make([]any, len(categories))
	for i, c := range categories {
		placeholders[i] = fmt.Sprintf("$%d", startAt+i)
		args[i] = string(c)
	}
	return " AND category = ANY(ARRAY[" + strings.Join(placeholders, ",") + "])", args
}

// FindWithinRadius queries via ST_DWithin on the geography column (meters,
// geodesic — PostGIS does the haversine-equivalent work the in-memory
// variant does by hand), then sorts ascending by distance.
func (p *Postgres) FindWithinRadius(ctx context.Context, center geo.Location, radiusMeters float64, categories []poi.Category, limit int) ([]poi.POI, error) {
	query := fmt.Sprintf(`
		SELECT id, name, category, ST_Y(location::geometry), ST_X(location::geometry),
		       popularity_score, description, estimated_visit_duration_minutes, osm_id
		FROM %s
		WHERE ST_DWithin(location, ST_MakePoint($2, $1)::geography, $3)`, p.table)

	args := []any{center.Latitude, center.Longitude, radiusMeters}
	if clause, catArgs := categoryPlaceholders(categories, len(args)+1); clause != "" {
		query += clause
		args = append(args, catArgs...)
	}
	query += fmt.Sprintf(" ORDER BY location <-> ST_MakePoint($2, $1)::geography LIMIT %d", limitOrDefault(limit))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, looperr.Storage(err, "find_within_radius query failed")
	}
	defer rows.Close()

	return p.scanRows(rows)
}

// FindInBBox queries via the geometry's bounding box (&& operator), honoring
// the spatial-index pre-filter contract the in-memory variant implements
// with its R-tree.
func (p *Postgres) FindInBBox(ctx context.Context, box geo.BoundingBox, categories []poi.Category, limit int) ([]poi.POI, error) {
	query := fmt.Sprintf(`
		SELECT id, name, category, ST_Y(location::geometry), ST_X(location::geometry),
		       popularity_score, description, estimated_visit_duration_minutes, osm_id
		FROM %s
		WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)`, p.table)

	args := []any{box.MinLng, box.MinLat, box.MaxLng, box.MaxLat}
	if clause, catArgs := categoryPlaceholders(categories, len(args)+1); clause != "" {
		query += clause
		args = append(args, catArgs...)
	}
	query += fmt.Sprintf(" LIMIT %d", limitOrDefault(limit))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, looperr.Storage(err, "find_in_bbox query failed")
	}
	defer rows.Close()

	return p.scanRows(rows)
}

func (p *Postgres) scanRows(rows pgx.Rows) ([]poi.POI, error) {
	var out []poi.POI
	for rows.Next() {
		var raw RawRow
		if err := rows.Scan(&raw.ID, &raw.Name, &raw.Category, &raw.Lat, &raw.Lng,
			&raw.PopularityScore, &raw.Description, &raw.EstimatedVisitDurationMins, &raw.SourceMapID); err != nil {
			return nil, looperr.Storage(err, "scanning poi row")
		}
		out = append(out, raw.IntoPOI(p.logger))
	}
	if err := rows.Err(); err != nil {
		return nil, looperr.Storage(err, "iterating poi rows")
	}
	return out, nil
}

// Insert upserts a POI using PostGIS's geography constructor.
func (p *Postgres) Insert(ctx context.Context, poi poi.POI) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, category, location, popularity_score, description, estimated_visit_duration_minutes, osm_id)
		VALUES ($1, $2, $3, ST_GeogFromText($4), $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category, location = EXCLUDED.location,
			popularity_score = EXCLUDED.popularity_score, description = EXCLUDED.description,
			estimated_visit_duration_minutes = EXCLUDED.estimated_visit_duration_minutes, osm_id = EXCLUDED.osm_id`, p.table)

	point := fmt.Sprintf("POINT(%f %f)", poi.Coordinates.Longitude, poi.Coordinates.Latitude)
	id := poi.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := p.pool.Exec(ctx, query, id, poi.Name, string(poi.Category), point,
		poi.PopularityScore, poi.Description, poi.EstimatedVisitDurationMins, poi.SourceMapID)
	if err != nil {
		return looperr.Storage(err, "inserting poi")
	}
	return nil
}

// Count returns the total row count.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", p.table)
	if err := p.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, looperr.Storage(err, "counting pois")
	}
	return count, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 500
	}
	return limit
}
