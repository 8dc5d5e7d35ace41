package analytics

import (
	"errors"
	"testing"

	"homefinder/server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTransactionStore is a mock implementation of the TransactionStore interface
type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) QueryTransactions(filter models.TransactionFilter) ([]models.Transaction, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func tx(town, month string, price, area float64) models.Transaction {
	return models.Transaction{
		Town:         town,
		Month:        month,
		FlatType:     "4 ROOM",
		ResalePrice:  price,
		FloorAreaSqm: area,
	}
}

func TestComputeTrends_MedianRankBased(t *testing.T) {
	tests := []struct {
		name           string
		transactions   []models.Transaction
		expectedMedian float64
	}{
		{
			name: "Even count takes mean of two middle values",
			transactions: []models.Transaction{
				tx("TAMPINES", "2024-01", 100, 1),
				tx("TAMPINES", "2024-01", 110, 1),
				tx("TAMPINES", "2024-01", 120, 1),
				tx("TAMPINES", "2024-01", 130, 1),
			},
			expectedMedian: 115,
		},
		{
			name: "Odd count takes the middle value",
			transactions: []models.Transaction{
				tx("TAMPINES", "2024-01", 90, 1),
				tx("TAMPINES", "2024-01", 100, 1),
				tx("TAMPINES", "2024-01", 110, 1),
			},
			expectedMedian: 100,
		},
		{
			name: "Single transaction is its own median",
			transactions: []models.Transaction{
				tx("TAMPINES", "2024-01", 450000, 90),
			},
			expectedMedian: 5000,
		},
		{
			name: "Tied values do not skew the rank",
			transactions: []models.Transaction{
				tx("TAMPINES", "2024-01", 100, 1),
				tx("TAMPINES", "2024-01", 100, 1),
				tx("TAMPINES", "2024-01", 200, 1),
			},
			expectedMedian: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockTransactionStore{}
			store.On("QueryTransactions", mock.Anything).Return(tt.transactions, nil)

			agg := NewTrendAggregator(store)
			rows, err := agg.ComputeTrends("TAMPINES", "4 ROOM", "2024-01", "2024-01")

			assert.NoError(t, err)
			assert.Len(t, rows, 1)
			assert.Equal(t, tt.expectedMedian, rows[0].MedianPSM)
			store.AssertExpectations(t)
		})
	}
}

func TestComputeTrends_MonthPartitioning(t *testing.T) {
	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.Anything).Return([]models.Transaction{
		tx("BEDOK", "2024-02", 500000, 100),
		tx("BEDOK", "2024-01", 400000, 100),
		tx("BEDOK", "2024-01", 440000, 100),
	}, nil)

	agg := NewTrendAggregator(store)
	rows, err := agg.ComputeTrends("BEDOK", "4 ROOM", "2024-01", "2024-02")

	assert.NoError(t, err)
	assert.Len(t, rows, 2)

	// Rows come back in ascending month order.
	assert.Equal(t, "2024-01", rows[0].Month)
	assert.Equal(t, 2, rows[0].Count)
	assert.Equal(t, 4200.0, rows[0].MedianPSM)
	assert.Equal(t, 4200.0, rows[0].AvgPSM)
	assert.Equal(t, 400000.0, rows[0].MinPrice)
	assert.Equal(t, 440000.0, rows[0].MaxPrice)

	assert.Equal(t, "2024-02", rows[1].Month)
	assert.Equal(t, 1, rows[1].Count)
	assert.Equal(t, 5000.0, rows[1].MedianPSM)
}

func TestComputeTrends_SkipsZeroFloorArea(t *testing.T) {
	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.Anything).Return([]models.Transaction{
		tx("BEDOK", "2024-01", 400000, 100),
		tx("BEDOK", "2024-01", 999999, 0),
	}, nil)

	agg := NewTrendAggregator(store)
	rows, err := agg.ComputeTrends("BEDOK", "4 ROOM", "2024-01", "2024-01")

	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Count)
	assert.Equal(t, 4000.0, rows[0].MedianPSM)
}

func TestComputeTrends_Validation(t *testing.T) {
	tests := []struct {
		name       string
		startMonth string
		endMonth   string
	}{
		{name: "Missing start month", startMonth: "", endMonth: "2024-01"},
		{name: "Missing end month", startMonth: "2024-01", endMonth: ""},
		{name: "Inverted range", startMonth: "2024-06", endMonth: "2024-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewTrendAggregator(&MockTransactionStore{})
			rows, err := agg.ComputeTrends("BEDOK", "4 ROOM", tt.startMonth, tt.endMonth)

			assert.Nil(t, rows)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestComputeTrends_EmptyMatch(t *testing.T) {
	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.Anything).Return([]models.Transaction{}, nil)

	agg := NewTrendAggregator(store)
	rows, err := agg.ComputeTrends("PUNGGOL", "5 ROOM", "2024-01", "2024-06")

	assert.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestComputeTrends_StoreError(t *testing.T) {
	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.Anything).Return([]models.Transaction(nil), errors.New("disk I/O error"))

	agg := NewTrendAggregator(store)
	_, err := agg.ComputeTrends("BEDOK", "4 ROOM", "2024-01", "2024-01")

	assert.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}
