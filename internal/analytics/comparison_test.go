package analytics

import (
	"errors"
	"fmt"
	"testing"

	"homefinder/server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockMetadataStore is a mock implementation of the MetadataStore interface
type MockMetadataStore struct {
	mock.Mock
}

func (m *MockMetadataStore) Lookup(town string) (*models.TownMetadata, error) {
	args := m.Called(town)
	meta, _ := args.Get(0).(*models.TownMetadata)
	return meta, args.Error(1)
}

// MockIncomeSource is a mock implementation of the IncomeSource interface
type MockIncomeSource struct {
	mock.Mock
}

func (m *MockIncomeSource) LatestHouseholdIncome() (*models.HouseholdIncome, error) {
	args := m.Called()
	inc, _ := args.Get(0).(*models.HouseholdIncome)
	return inc, args.Error(1)
}

func newRanker(store TransactionStore, meta MetadataStore, income IncomeSource) *ComparisonRanker {
	return NewComparisonRanker(store, meta, income, nil)
}

func noMetadata() *MockMetadataStore {
	meta := &MockMetadataStore{}
	meta.On("Lookup", mock.Anything).Return(nil, nil)
	return meta
}

func noIncome() *MockIncomeSource {
	income := &MockIncomeSource{}
	income.On("LatestHouseholdIncome").Return(nil, nil)
	return income
}

func TestCompare_EmptyTownSet(t *testing.T) {
	ranker := newRanker(&MockTransactionStore{}, noMetadata(), noIncome())

	rows, err := ranker.Compare(nil, "4 ROOM", "2024-12", false)
	assert.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	rows, err = ranker.Compare([]string{"", ""}, "4 ROOM", "2024-12", false)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCompare_RanksByMedianPSM(t *testing.T) {
	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.Anything).Return([]models.Transaction{
		tx("BEDOK", "2024-12", 400000, 100),
		tx("QUEENSTOWN", "2024-12", 700000, 100),
		tx("PUNGGOL", "2024-12", 550000, 100),
	}, nil)

	ranker := newRanker(store, noMetadata(), noIncome())
	rows, err := ranker.Compare([]string{"BEDOK", "QUEENSTOWN", "PUNGGOL"}, "4 ROOM", "2024-12", false)

	assert.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "QUEENSTOWN", rows[0].Town)
	assert.Equal(t, "PUNGGOL", rows[1].Town)
	assert.Equal(t, "BEDOK", rows[2].Town)
	assert.Equal(t, 7000.0, *rows[0].MedianPSM)
}

func TestCompare_EmptyTownHandling(t *testing.T) {
	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.Anything).Return([]models.Transaction{
		tx("BEDOK", "2024-12", 400000, 100),
	}, nil)

	ranker := newRanker(store, noMetadata(), noIncome())

	// Omitted by default.
	rows, err := ranker.Compare([]string{"BEDOK", "YISHUN"}, "4 ROOM", "2024-12", false)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "BEDOK", rows[0].Town)

	// Included with nil statistics when asked, and sorted last.
	rows, err = ranker.Compare([]string{"YISHUN", "BEDOK"}, "4 ROOM", "2024-12", true)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "BEDOK", rows[0].Town)
	assert.Equal(t, "YISHUN", rows[1].Town)
	assert.Nil(t, rows[1].MedianPSM)
	assert.Nil(t, rows[1].AvgPrice)
	assert.Equal(t, 0, rows[1].Transactions)
	assert.Equal(t, 5.0, rows[1].AffordabilityScore)
}

func TestCompare_TrailingWindow(t *testing.T) {
	// 13 distinct months of data; the oldest must fall out of the window.
	transactions := []models.Transaction{tx("BEDOK", "2023-12", 400000, 100)}
	for m := 1; m <= 12; m++ {
		month := fmt.Sprintf("2024-%02d", m)
		transactions = append(transactions, tx("BEDOK", month, 400000, 100))
	}

	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.Anything).Return(transactions, nil)

	ranker := newRanker(store, noMetadata(), noIncome())
	rows, err := ranker.Compare([]string{"BEDOK"}, "4 ROOM", "2024-12", false)

	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 12, rows[0].Transactions)
}

func TestCompare_AffordabilityScore(t *testing.T) {
	medianIncome := 10000.0

	tests := []struct {
		name          string
		price         float64 // per sqm after the 100sqm division below
		income        *models.HouseholdIncome
		expectedScore float64
	}{
		{
			// 10000*300 / (5000*90) = 6.667; *3 = 20 clamps to 10.
			name:          "Cheap town clamps to 10",
			price:         500000,
			income:        &models.HouseholdIncome{ResidentMedian: &medianIncome},
			expectedScore: 10,
		},
		{
			// 10000*300 / (40000*90) = 0.833; *3 = 2.5.
			name:          "Expensive town scores low",
			price:         4000000,
			income:        &models.HouseholdIncome{ResidentMedian: &medianIncome},
			expectedScore: 2.5,
		},
		{
			name:          "No reference income defaults to neutral",
			price:         500000,
			income:        nil,
			expectedScore: 5.0,
		},
		{
			name:          "Income row without a median defaults to neutral",
			price:         500000,
			income:        &models.HouseholdIncome{},
			expectedScore: 5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockTransactionStore{}
			store.On("QueryTransactions", mock.Anything).Return([]models.Transaction{
				tx("BEDOK", "2024-12", tt.price, 100),
			}, nil)

			income := &MockIncomeSource{}
			income.On("LatestHouseholdIncome").Return(tt.income, nil)

			ranker := newRanker(store, noMetadata(), income)
			rows, err := ranker.Compare([]string{"BEDOK"}, "4 ROOM", "2024-12", false)

			assert.NoError(t, err)
			assert.Len(t, rows, 1)
			assert.Equal(t, tt.expectedScore, rows[0].AffordabilityScore)
		})
	}
}

func TestCompare_MetadataEnrichment(t *testing.T) {
	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.Anything).Return([]models.Transaction{
		tx("BEDOK", "2024-12", 400000, 100),
		tx("YISHUN", "2024-12", 380000, 100),
	}, nil)

	meta := &MockMetadataStore{}
	meta.On("Lookup", "BEDOK").Return(&models.TownMetadata{
		TownName:        "BEDOK",
		Region:          "East",
		Maturity:        "Mature",
		Characteristics: []string{"Coastal"},
		Centroid:        []float64{103.93, 1.324},
	}, nil)
	meta.On("Lookup", "YISHUN").Return(nil, errors.New("connection reset"))

	ranker := newRanker(store, meta, noIncome())
	rows, err := ranker.Compare([]string{"BEDOK", "YISHUN"}, "4 ROOM", "2024-12", false)

	assert.NoError(t, err)
	assert.Len(t, rows, 2)

	byTown := map[string]models.ComparisonRow{}
	for _, row := range rows {
		byTown[row.Town] = row
	}
	assert.Equal(t, "East", byTown["BEDOK"].Region)
	assert.Equal(t, "Mature", byTown["BEDOK"].Maturity)
	assert.Equal(t, []string{"Coastal"}, byTown["BEDOK"].Characteristics)

	// A metadata failure degrades to defaults instead of failing.
	assert.Equal(t, "Unknown", byTown["YISHUN"].Region)
	assert.Equal(t, "Unknown", byTown["YISHUN"].Maturity)
	assert.Empty(t, byTown["YISHUN"].Characteristics)
	meta.AssertExpectations(t)
}

func TestCompare_DeduplicatesTowns(t *testing.T) {
	store := &MockTransactionStore{}
	store.On("QueryTransactions", mock.MatchedBy(func(f models.TransactionFilter) bool {
		return len(f.Towns) == 1 && f.Towns[0] == "BEDOK"
	})).Return([]models.Transaction{
		tx("BEDOK", "2024-12", 400000, 100),
	}, nil)

	ranker := newRanker(store, noMetadata(), noIncome())
	rows, err := ranker.Compare([]string{"BEDOK", "BEDOK"}, "4 ROOM", "2024-12", false)

	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	store.AssertExpectations(t)
}
