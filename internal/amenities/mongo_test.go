package amenities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestBulkCounts(t *testing.T) {
	tests := []struct {
		name             string
		res              *mongo.BulkWriteResult
		err              error
		expectedInserted int
		expectedUpdated  int
		expectError      bool
	}{
		{
			name:             "Upserts count as inserts, modifications as updates",
			res:              &mongo.BulkWriteResult{UpsertedCount: 2, MatchedCount: 3, ModifiedCount: 3},
			expectedInserted: 2,
			expectedUpdated:  3,
		},
		{
			name:            "Matched but unmodified documents are not updates",
			res:             &mongo.BulkWriteResult{MatchedCount: 4, ModifiedCount: 1},
			expectedUpdated: 1,
		},
		{
			name:             "Partial result with an error keeps its counts",
			res:              &mongo.BulkWriteResult{UpsertedCount: 1, ModifiedCount: 1},
			err:              errors.New("duplicate key"),
			expectedInserted: 1,
			expectedUpdated:  1,
			expectError:      true,
		},
		{
			name:        "Nil result",
			err:         errors.New("connection reset"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inserted, updated, err := bulkCounts(tt.res, tt.err)

			assert.Equal(t, tt.expectedInserted, inserted)
			assert.Equal(t, tt.expectedUpdated, updated)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
