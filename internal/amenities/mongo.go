package amenities

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	pointsCollection = "amenities"
	zonesCollection  = "amenity_zones"
)

// MongoStore implements SpatialStore on MongoDB. Point features live in the
// amenities collection keyed by amenity_key; non-point features live in
// amenity_zones keyed by the (amenity_type, name) pair.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the geospatial and uniqueness indexes. Safe to call
// on every startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	points := s.db.Collection(pointsCollection)
	_, err := points.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "geometry", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "properties.amenity_type", Value: 1}}},
		{Keys: bson.D{{Key: "properties.name", Value: 1}}},
		{
			Keys:    bson.D{{Key: "amenity_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create point indexes: %w", err)
	}

	zones := s.db.Collection(zonesCollection)
	_, err = zones.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "geometry", Value: "2dsphere"}}},
		{
			Keys: bson.D{
				{Key: "properties.amenity_type", Value: 1},
				{Key: "properties.name", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create zone indexes: %w", err)
	}
	return nil
}

type storedDoc struct {
	Type       string                 `bson:"type"`
	Geometry   *geojson.Geometry      `bson:"geometry"`
	Properties map[string]interface{} `bson:"properties"`
	AmenityKey string                 `bson:"amenity_key,omitempty"`
}

// UpsertPoints writes each point as an independent upsert on its dedup key.
// The bulk write is unordered, so one key's failure does not block the rest;
// counts cover the writes that did apply.
func (s *MongoStore) UpsertPoints(ctx context.Context, docs []PointDoc) (int, int, error) {
	if len(docs) == 0 {
		return 0, 0, nil
	}

	now := time.Now().UTC()
	ops := make([]mongo.WriteModel, 0, len(docs))
	for _, d := range docs {
		doc := bson.M{
			"type":        "Feature",
			"geometry":    d.Geometry,
			"properties":  d.Properties,
			"amenity_key": d.Key,
			"meta":        bson.M{"loaded_at": now},
		}
		ops = append(ops, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"amenity_key": d.Key}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	res, err := s.db.Collection(pointsCollection).
		BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	return bulkCounts(res, err)
}

// UpsertZones writes non-point features keyed by (amenity_type, name). Two
// same-named, same-typed zones from different sources collapse into one
// record; that collapse is the documented natural-key behaviour.
func (s *MongoStore) UpsertZones(ctx context.Context, docs []ZoneDoc) (int, int, error) {
	if len(docs) == 0 {
		return 0, 0, nil
	}

	now := time.Now().UTC()
	ops := make([]mongo.WriteModel, 0, len(docs))
	for _, d := range docs {
		doc := bson.M{
			"type":       "Feature",
			"geometry":   d.Geometry,
			"properties": d.Properties,
			"meta":       bson.M{"loaded_at": now},
		}
		ops = append(ops, mongo.NewUpdateOneModel().
			SetFilter(bson.M{
				"properties.amenity_type": d.AmenityType,
				"properties.name":         d.Name,
			}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	res, err := s.db.Collection(zonesCollection).
		BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	return bulkCounts(res, err)
}

// bulkCounts maps a bulk-write result onto (inserted, updated). Updated is
// the modified count, not the matched count; every upsert rewrites
// meta.loaded_at so a matched document is always modified, but the modified
// count is what the batch report promises.
func bulkCounts(res *mongo.BulkWriteResult, err error) (int, int, error) {
	var inserted, updated int
	if res != nil {
		inserted = int(res.UpsertedCount)
		updated = int(res.ModifiedCount)
	}
	if err != nil {
		return inserted, updated, fmt.Errorf("bulk write: %w", err)
	}
	return inserted, updated, nil
}

// Nearby runs a $near query against the 2dsphere index; results come back
// ascending by distance.
func (s *MongoStore) Nearby(ctx context.Context, lon, lat float64, maxDistanceMeters int, amenityType string, limit int) ([]*geojson.Feature, error) {
	filter := bson.M{
		"geometry": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": bson.A{lon, lat},
				},
				"$maxDistance": maxDistanceMeters,
			},
		},
	}
	if amenityType != "" {
		filter["properties.amenity_type"] = amenityType
	}

	cur, err := s.db.Collection(pointsCollection).
		Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby amenities: %w", err)
	}
	defer cur.Close(ctx)

	var features []*geojson.Feature
	for cur.Next(ctx) {
		var doc storedDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode amenity: %w", err)
		}
		if doc.Geometry == nil {
			continue
		}
		f := geojson.NewFeature(doc.Geometry.Geometry())
		f.Properties = doc.Properties
		features = append(features, f)
	}
	return features, cur.Err()
}

// CountsByType aggregates point amenities per category, descending.
func (s *MongoStore) CountsByType(ctx context.Context) ([]TypeCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$properties.amenity_type",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
	}

	cur, err := s.db.Collection(pointsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate amenity counts: %w", err)
	}
	defer cur.Close(ctx)

	var counts []TypeCount
	if err := cur.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode amenity counts: %w", err)
	}
	return counts, nil
}

// AllPointsOfType streams every stored point of one category. Used by the
// boundary-view endpoint to hull a category's points.
func (s *MongoStore) AllPointsOfType(ctx context.Context, amenityType string) ([]*geojson.Feature, error) {
	filter := bson.M{}
	if amenityType != "" {
		filter["properties.amenity_type"] = amenityType
	}

	cur, err := s.db.Collection(pointsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query amenities: %w", err)
	}
	defer cur.Close(ctx)

	var features []*geojson.Feature
	for cur.Next(ctx) {
		var doc storedDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode amenity: %w", err)
		}
		if doc.Geometry == nil {
			continue
		}
		f := geojson.NewFeature(doc.Geometry.Geometry())
		f.Properties = doc.Properties
		features = append(features, f)
	}
	return features, cur.Err()
}
