package amenities

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
)

// memoryStore is an in-memory SpatialStore with upsert semantics matching
// the real store: points keyed by dedup key, zones by (amenity_type, name).
type memoryStore struct {
	points map[string]PointDoc
	zones  map[[2]string]ZoneDoc
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		points: make(map[string]PointDoc),
		zones:  make(map[[2]string]ZoneDoc),
	}
}

func (s *memoryStore) UpsertPoints(_ context.Context, docs []PointDoc) (int, int, error) {
	inserted, updated := 0, 0
	for _, d := range docs {
		if _, ok := s.points[d.Key]; ok {
			updated++
		} else {
			inserted++
		}
		s.points[d.Key] = d
	}
	return inserted, updated, nil
}

func (s *memoryStore) UpsertZones(_ context.Context, docs []ZoneDoc) (int, int, error) {
	inserted, updated := 0, 0
	for _, d := range docs {
		k := [2]string{d.AmenityType, d.Name}
		if _, ok := s.zones[k]; ok {
			updated++
		} else {
			inserted++
		}
		s.zones[k] = d
	}
	return inserted, updated, nil
}

func (s *memoryStore) Nearby(_ context.Context, _, _ float64, _ int, _ string, _ int) ([]*geojson.Feature, error) {
	return nil, nil
}

func (s *memoryStore) CountsByType(_ context.Context) ([]TypeCount, error) {
	counts := map[string]int{}
	for _, d := range s.points {
		counts[d.Properties["amenity_type"].(string)]++
	}
	out := make([]TypeCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, TypeCount{AmenityType: k, Count: v})
	}
	return out, nil
}

func TestIngest_SplitsPointsAndZones(t *testing.T) {
	store := newMemoryStore()
	pipeline := NewPipeline(store, nil)

	features := []RawFeature{
		pointFeature(103.8, 1.3, map[string]interface{}{"name": "Station A"}),
		{
			Type: "Feature",
			Geometry: &RawGeometry{
				Type: "Polygon",
				Coordinates: []interface{}{[]interface{}{
					[]interface{}{103.8, 1.3},
					[]interface{}{103.9, 1.3},
					[]interface{}{103.8, 1.3},
				}},
			},
			Properties: map[string]interface{}{"name": "Zone A"},
		},
	}

	result, err := pipeline.Ingest(context.Background(), features, "mrt_stations")
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Dropped)
	assert.Len(t, store.points, 1)
	assert.Len(t, store.zones, 1)
}

func TestIngest_Idempotent(t *testing.T) {
	store := newMemoryStore()
	pipeline := NewPipeline(store, nil)

	features := []RawFeature{
		pointFeature(103.85, 1.29, map[string]interface{}{"name": "Bishan Station"}),
	}

	first, err := pipeline.Ingest(context.Background(), features, "mrt_stations")
	assert.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, 0, first.Updated)

	// Re-ingesting the identical feature matches the existing key.
	second, err := pipeline.Ingest(context.Background(), features, "mrt_stations")
	assert.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Updated)
	assert.Len(t, store.points, 1)
}

func TestIngest_CountsDropped(t *testing.T) {
	store := newMemoryStore()
	pipeline := NewPipeline(store, nil)

	features := []RawFeature{
		pointFeature(103.8, 1.3, nil),
		{Type: "Feature", Geometry: &RawGeometry{Type: "Point", Coordinates: []interface{}{103.8}}},
		{Type: "NotAFeature"},
	}

	result, err := pipeline.Ingest(context.Background(), features, "upload")
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 2, result.Dropped)
}

func TestIngest_ZonesCollapseOnNaturalKey(t *testing.T) {
	store := newMemoryStore()
	pipeline := NewPipeline(store, nil)

	zone := func(name string, lat float64) RawFeature {
		return RawFeature{
			Type: "Feature",
			Geometry: &RawGeometry{
				Type: "Polygon",
				Coordinates: []interface{}{[]interface{}{
					[]interface{}{103.8, lat},
					[]interface{}{103.9, lat},
					[]interface{}{103.8, lat},
				}},
			},
			Properties: map[string]interface{}{"name": name},
		}
	}

	// Two same-named zones with different geometry share a natural key,
	// so the second write lands on the first document.
	result, err := pipeline.Ingest(context.Background(),
		[]RawFeature{zone("Zone A", 1.3), zone("Zone A", 1.4)}, "school_zones")

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)
	assert.Len(t, store.zones, 1)
}

// faultyStore fails one side of the split while the other keeps working.
type faultyStore struct {
	*memoryStore
	pointErr error
	zoneErr  error
}

func (s *faultyStore) UpsertPoints(ctx context.Context, docs []PointDoc) (int, int, error) {
	if s.pointErr != nil {
		return 0, 0, s.pointErr
	}
	return s.memoryStore.UpsertPoints(ctx, docs)
}

func (s *faultyStore) UpsertZones(ctx context.Context, docs []ZoneDoc) (int, int, error) {
	if s.zoneErr != nil {
		return 0, 0, s.zoneErr
	}
	return s.memoryStore.UpsertZones(ctx, docs)
}

func TestIngest_PointFailureDoesNotBlockZones(t *testing.T) {
	store := &faultyStore{memoryStore: newMemoryStore(), pointErr: errors.New("index build in progress")}
	pipeline := NewPipeline(store, nil)

	features := []RawFeature{
		pointFeature(103.8, 1.3, map[string]interface{}{"name": "Station A"}),
		{
			Type: "Feature",
			Geometry: &RawGeometry{
				Type: "Polygon",
				Coordinates: []interface{}{[]interface{}{
					[]interface{}{103.8, 1.3},
					[]interface{}{103.9, 1.3},
					[]interface{}{103.8, 1.3},
				}},
			},
			Properties: map[string]interface{}{"name": "Zone A"},
		},
	}

	result, err := pipeline.Ingest(context.Background(), features, "mrt_stations")

	// The zone write still happens and its counts are reported.
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "point upserts failed")
	assert.Equal(t, 1, result.Inserted)
	assert.Len(t, store.zones, 1)
	assert.Empty(t, store.points)
}

func TestIngest_BothSidesFailingReportsBoth(t *testing.T) {
	store := &faultyStore{
		memoryStore: newMemoryStore(),
		pointErr:    errors.New("points down"),
		zoneErr:     errors.New("zones down"),
	}
	pipeline := NewPipeline(store, nil)

	features := []RawFeature{
		pointFeature(103.8, 1.3, nil),
		{
			Type: "Feature",
			Geometry: &RawGeometry{
				Type: "Polygon",
				Coordinates: []interface{}{[]interface{}{
					[]interface{}{103.8, 1.3},
					[]interface{}{103.9, 1.3},
					[]interface{}{103.8, 1.3},
				}},
			},
			Properties: map[string]interface{}{"name": "Zone A"},
		},
	}

	result, err := pipeline.Ingest(context.Background(), features, "upload")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "point upserts failed")
	assert.Contains(t, err.Error(), "zone upserts failed")
	assert.Equal(t, 0, result.Inserted)
}

func TestStatsForTown(t *testing.T) {
	store := newMemoryStore()
	pipeline := NewPipeline(store, nil)

	_, err := pipeline.Ingest(context.Background(), []RawFeature{
		pointFeature(103.80, 1.30, map[string]interface{}{"name": "Station A"}),
		pointFeature(103.81, 1.31, map[string]interface{}{"name": "Station B"}),
		pointFeature(103.82, 1.32, map[string]interface{}{"name": "Clinic A", "amenity_type": "CLINIC"}),
	}, "mrt_stations")
	assert.NoError(t, err)

	stats, err := pipeline.StatsForTown(context.Background(), "BISHAN")
	assert.NoError(t, err)
	assert.Equal(t, "BISHAN", stats["town"])
	assert.Equal(t, 2, stats["mrt_count"])
	assert.Equal(t, 1, stats["clinic_count"])
	assert.Equal(t, 3, stats["total_amenities"])

	stats, err = pipeline.StatsForTown(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, "ALL", stats["town"])
}
