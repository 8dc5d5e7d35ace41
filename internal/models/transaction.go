package models

import "time"

// Transaction is a single resale record. Rows are externally owned and
// treated as immutable once imported.
type Transaction struct {
	ID             int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Town           string  `json:"town" gorm:"index:idx_transactions_town_type;uniqueIndex:idx_transactions_natural"`
	FlatType       string  `json:"flat_type" gorm:"index:idx_transactions_town_type;uniqueIndex:idx_transactions_natural"`
	Block          string  `json:"block" gorm:"uniqueIndex:idx_transactions_natural"`
	StreetName     string  `json:"street_name" gorm:"uniqueIndex:idx_transactions_natural"`
	StoreyRange    string  `json:"storey_range" gorm:"uniqueIndex:idx_transactions_natural"`
	FloorAreaSqm   float64 `json:"floor_area_sqm"`
	FlatModel      string  `json:"flat_model"`
	LeaseStartYear *int    `json:"lease_commence_date"`
	RemainingLease string  `json:"remaining_lease"`
	ResalePrice    float64 `json:"resale_price"`
	Month          string  `json:"month" gorm:"index;uniqueIndex:idx_transactions_natural"` // YYYY-MM bucket
}

// TransactionFilter narrows QueryTransactions. Empty string / nil fields
// mean "no restriction"; months are inclusive on both ends.
type TransactionFilter struct {
	Towns      []string
	FlatType   string
	StartMonth string
	EndMonth   string
	Limit      int
}

// PeriodStat is one month's aggregate for a town+flat-type filter.
// Derived per query, never persisted.
type PeriodStat struct {
	Month     string  `json:"month"`
	MedianPSM float64 `json:"median_psm"`
	AvgPSM    float64 `json:"avg_psm"`
	Count     int     `json:"count"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
}

// ComparisonRow is one town's entry in a multi-town comparison. The stats
// pointers are nil for towns with no matching transactions when the caller
// asked for empty towns to be reported.
type ComparisonRow struct {
	Town               string      `json:"town"`
	Transactions       int         `json:"transactions"`
	MedianPSM          *float64    `json:"median_psm"`
	AvgPrice           *float64    `json:"avg_price"`
	MinPrice           *float64    `json:"min_price"`
	MaxPrice           *float64    `json:"max_price"`
	AffordabilityScore float64     `json:"affordability_score"`
	Region             string      `json:"region"`
	Maturity           string      `json:"maturity"`
	Characteristics    []string    `json:"characteristics"`
	Centroid           []float64   `json:"centroid,omitempty"`
	Geometry           interface{} `json:"geometry,omitempty"`
}

// MarketStatistics summarises the whole transaction store.
type MarketStatistics struct {
	TotalTransactions int     `json:"total_transactions"`
	TotalTowns        int     `json:"total_towns"`
	TotalFlatTypes    int     `json:"total_flat_types"`
	EarliestMonth     string  `json:"earliest_month"`
	LatestMonth       string  `json:"latest_month"`
	AvgPrice          float64 `json:"avg_price"`
	AvgPSM            float64 `json:"avg_psm"`
}

// TownMetadata is the optional enrichment record for a town.
type TownMetadata struct {
	TownName        string      `json:"town_name" bson:"town_name"`
	Region          string      `json:"region" bson:"region"`
	Maturity        string      `json:"maturity" bson:"maturity"`
	Characteristics []string    `json:"characteristics" bson:"characteristics"`
	Centroid        []float64   `json:"centroid,omitempty" bson:"centroid,omitempty"`
	Geometry        interface{} `json:"geometry,omitempty" bson:"geometry,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at" bson:"updated_at"`
}
