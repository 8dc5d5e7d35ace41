package amenities

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

// PointDoc is a normalized point feature addressed by its dedup key.
type PointDoc struct {
	Key        string
	Geometry   *geojson.Geometry
	Properties map[string]interface{}
}

// ZoneDoc is a normalized non-point feature addressed by its natural
// (amenity_type, name) pair.
type ZoneDoc struct {
	AmenityType string
	Name        string
	Geometry    map[string]interface{}
	Properties  map[string]interface{}
}

// TypeCount is one row of the category-count aggregation.
type TypeCount struct {
	AmenityType string `json:"amenity_type" bson:"_id"`
	Count       int    `json:"count" bson:"count"`
}

// SpatialStore persists normalized features. Upserts are independent per
// key; implementations must not abort a batch on a single key's failure.
type SpatialStore interface {
	UpsertPoints(ctx context.Context, docs []PointDoc) (inserted, updated int, err error)
	UpsertZones(ctx context.Context, docs []ZoneDoc) (inserted, updated int, err error)
	Nearby(ctx context.Context, lon, lat float64, maxDistanceMeters int, amenityType string, limit int) ([]*geojson.Feature, error)
	CountsByType(ctx context.Context) ([]TypeCount, error)
}

// IngestResult reports the per-batch outcome. Dropped features failed
// geometry validation and were never written; they are not errors.
type IngestResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Dropped  int `json:"dropped"`
}

// Pipeline normalizes raw features, derives dedup keys and issues
// idempotent upserts into the spatial store.
type Pipeline struct {
	store  SpatialStore
	logger *logrus.Logger
}

func NewPipeline(store SpatialStore, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{store: store, logger: logger}
}

// Ingest processes one batch. sourceLabel names the batch's origin (used for
// amenity-type inference and the fallback name); features may mix point and
// non-point geometries. Writes are best-effort: a partial write failure is
// returned alongside the counts accumulated so far.
func (p *Pipeline) Ingest(ctx context.Context, features []RawFeature, sourceLabel string) (IngestResult, error) {
	var result IngestResult

	defaultType := DetectAmenityType(sourceLabel)
	defaultName := strings.TrimSpace(sourceLabel)
	if defaultName == "" {
		defaultName = "UNKNOWN"
	}

	var points []PointDoc
	var zones []ZoneDoc
	for _, raw := range features {
		f := Normalize(raw, defaultType, defaultName)
		if f == nil {
			result.Dropped++
			continue
		}
		if f.IsPoint() {
			points = append(points, PointDoc{
				Key:        PointKey(f.AmenityType, f.Name, f.Lon, f.Lat),
				Geometry:   geojson.NewGeometry(orb.Point{f.Lon, f.Lat}),
				Properties: f.Properties,
			})
		} else {
			zones = append(zones, ZoneDoc{
				AmenityType: f.AmenityType,
				Name:        f.Name,
				Geometry: map[string]interface{}{
					"type":        f.GeometryType,
					"coordinates": f.Coordinates,
				},
				Properties: f.Properties,
			})
		}
	}

	// Both collections get their writes regardless of the other's outcome;
	// a point-side failure must not block the batch's zones or vice versa.
	var errs []error
	if len(points) > 0 {
		inserted, updated, err := p.store.UpsertPoints(ctx, points)
		result.Inserted += inserted
		result.Updated += updated
		if err != nil {
			errs = append(errs, fmt.Errorf("point upserts failed: %w", err))
		}
	}
	if len(zones) > 0 {
		inserted, updated, err := p.store.UpsertZones(ctx, zones)
		result.Inserted += inserted
		result.Updated += updated
		if err != nil {
			errs = append(errs, fmt.Errorf("zone upserts failed: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return result, err
	}

	p.logger.WithFields(logrus.Fields{
		"source":   sourceLabel,
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"dropped":  result.Dropped,
	}).Info("Ingested amenity batch")
	return result, nil
}

// Nearby returns amenities around a point, ascending by distance, capped at
// limit. amenityType is optional.
func (p *Pipeline) Nearby(ctx context.Context, lon, lat float64, maxDistanceMeters int, amenityType string, limit int) ([]*geojson.Feature, error) {
	if limit <= 0 {
		limit = 50
	}
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = 1000
	}
	if amenityType != "" {
		amenityType = strings.TrimSpace(strings.ToUpper(amenityType))
	}
	return p.store.Nearby(ctx, lon, lat, maxDistanceMeters, amenityType, limit)
}

// CountsByType returns the global per-category counts, descending.
func (p *Pipeline) CountsByType(ctx context.Context) ([]TypeCount, error) {
	return p.store.CountsByType(ctx)
}

// StatsForTown reshapes the global counts into the per-town stats view. The
// per-town split is approximate: amenities carry no town field, so the
// counts are global regardless of the requested town.
func (p *Pipeline) StatsForTown(ctx context.Context, town string) (map[string]interface{}, error) {
	counts, err := p.CountsByType(ctx)
	if err != nil {
		return nil, err
	}
	if town == "" {
		town = "ALL"
	}

	total := 0
	stats := map[string]interface{}{"town": town}
	for _, c := range counts {
		total += c.Count
		key := "other_count"
		if c.AmenityType != "" {
			key = strings.ToLower(c.AmenityType) + "_count"
		}
		stats[key] = c.Count
	}
	stats["total_amenities"] = total
	return stats, nil
}

// PointKey derives the deterministic dedup key for a point feature. Identity
// is positional and typed: the same amenity at the same spot hashes to the
// same key, a moved or renamed one produces a new key.
func PointKey(amenityType, name string, lon, lat float64) string {
	s := fmt.Sprintf("%s|%s|%s|%s",
		amenityType, NormalizeName(name), formatCoord(lon), formatCoord(lat))
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NormalizeName collapses interior whitespace and uppercases.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// formatCoord rounds to 5 decimal places (about a metre) before formatting,
// so float noise below that never changes a key.
func formatCoord(v float64) string {
	rounded := math.Round(v*1e5) / 1e5
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
