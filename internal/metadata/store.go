// Package metadata serves optional per-town enrichment records.
package metadata

import (
	"context"
	"fmt"
	"time"

	"homefinder/server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collection = "town_metadata"

type Store struct {
	db *mongo.Database
	// Lookup timeout; enrichment must never stall a comparison.
	timeout time.Duration
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db, timeout: 5 * time.Second}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "town_name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "region", Value: 1}}},
		{Keys: bson.D{{Key: "maturity", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create town metadata indexes: %w", err)
	}
	return nil
}

// Lookup returns the metadata for a town, or nil when none is recorded.
func (s *Store) Lookup(town string) (*models.TownMetadata, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var meta models.TownMetadata
	err := s.db.Collection(collection).
		FindOne(ctx, bson.M{"town_name": town}).Decode(&meta)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up town metadata: %w", err)
	}
	return &meta, nil
}

// All lists metadata records, optionally filtered by region or maturity.
func (s *Store) All(ctx context.Context, region, maturity string) ([]models.TownMetadata, error) {
	filter := bson.M{}
	if region != "" {
		filter["region"] = region
	}
	if maturity != "" {
		filter["maturity"] = maturity
	}

	cur, err := s.db.Collection(collection).
		Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "town_name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query town metadata: %w", err)
	}
	defer cur.Close(ctx)

	var all []models.TownMetadata
	if err := cur.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("failed to decode town metadata: %w", err)
	}
	return all, nil
}

// Seed upserts reference records by town name. Existing records win nothing;
// the seed always reflects the supplied table.
func (s *Store) Seed(ctx context.Context, records []models.TownMetadata) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	ops := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		rec.UpdatedAt = now
		ops = append(ops, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"town_name": rec.TownName}).
			SetUpdate(bson.M{"$set": rec}).
			SetUpsert(true))
	}

	_, err := s.db.Collection(collection).
		BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to seed town metadata: %w", err)
	}
	return nil
}
