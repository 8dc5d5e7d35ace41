package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"homefinder/server/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrPolicyUnavailable marks a failed policy lookup (rates, rules, income).
// Empty tables fall back to the documented defaults instead; only real store
// failures surface this error.
var ErrPolicyUnavailable = errors.New("policy store unavailable")

type Database struct {
	db   *sql.DB
	gorm *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm handle: %w", err)
	}

	return &Database{db: db, gorm: gdb}, nil
}

// QueryTransactions returns resale records matching the filter. Records with
// a non-positive floor area are excluded so price-per-sqm is always defined
// downstream.
func (d *Database) QueryTransactions(filter models.TransactionFilter) ([]models.Transaction, error) {
	query := `
        SELECT id, town, flat_type, block, street_name, storey_range,
               floor_area_sqm, flat_model,
               lease_start_year, COALESCE(remaining_lease, '') as remaining_lease,
               resale_price, month
        FROM transactions
        WHERE floor_area_sqm > 0
    `
	var args []interface{}

	if len(filter.Towns) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Towns))
		query += " AND town IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, town := range filter.Towns {
			args = append(args, town)
		}
	}
	if filter.FlatType != "" {
		query += " AND flat_type = ?"
		args = append(args, filter.FlatType)
	}
	if filter.StartMonth != "" {
		query += " AND month >= ?"
		args = append(args, filter.StartMonth)
	}
	if filter.EndMonth != "" {
		query += " AND month <= ?"
		args = append(args, filter.EndMonth)
	}

	query += " ORDER BY month DESC, resale_price DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var leaseStart sql.NullInt64
		err := rows.Scan(
			&t.ID, &t.Town, &t.FlatType, &t.Block, &t.StreetName,
			&t.StoreyRange, &t.FloorAreaSqm, &t.FlatModel,
			&leaseStart, &t.RemainingLease, &t.ResalePrice, &t.Month,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if leaseStart.Valid {
			ls := int(leaseStart.Int64)
			t.LeaseStartYear = &ls
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// GetTowns returns all towns present in the transaction store.
func (d *Database) GetTowns() ([]string, error) {
	rows, err := d.db.Query(`
		SELECT DISTINCT town
		FROM transactions
		WHERE town IS NOT NULL AND town != ''
		ORDER BY town
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query towns: %w", err)
	}
	defer rows.Close()

	var towns []string
	for rows.Next() {
		var town string
		if err := rows.Scan(&town); err != nil {
			return nil, fmt.Errorf("failed to scan town: %w", err)
		}
		towns = append(towns, town)
	}
	return towns, rows.Err()
}

// GetFlatTypes returns the flat types present in the store, in room-count
// order rather than alphabetical.
func (d *Database) GetFlatTypes() ([]string, error) {
	rows, err := d.db.Query(`
		SELECT DISTINCT flat_type
		FROM transactions
		WHERE flat_type IS NOT NULL AND flat_type != ''
		ORDER BY
			CASE flat_type
				WHEN '1 ROOM' THEN 1
				WHEN '2 ROOM' THEN 2
				WHEN '3 ROOM' THEN 3
				WHEN '4 ROOM' THEN 4
				WHEN '5 ROOM' THEN 5
				WHEN 'EXECUTIVE' THEN 6
				WHEN 'MULTI-GENERATION' THEN 7
				ELSE 8
			END
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flat types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var ft string
		if err := rows.Scan(&ft); err != nil {
			return nil, fmt.Errorf("failed to scan flat type: %w", err)
		}
		types = append(types, ft)
	}
	return types, rows.Err()
}

// GetMonths returns the available transaction months, most recent first.
func (d *Database) GetMonths() ([]string, error) {
	rows, err := d.db.Query(`
		SELECT DISTINCT month
		FROM transactions
		WHERE month IS NOT NULL AND month != ''
		ORDER BY month DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// LatestMonth returns the most recent month with data, or "" when the store
// is empty. Callers use it as the anchor for trailing-window comparisons.
func (d *Database) LatestMonth() (string, error) {
	var month sql.NullString
	err := d.db.QueryRow(`SELECT MAX(month) FROM transactions`).Scan(&month)
	if err != nil {
		return "", fmt.Errorf("failed to query latest month: %w", err)
	}
	if !month.Valid {
		return "", nil
	}
	return month.String, nil
}

// MarketStatistics returns store-wide totals.
func (d *Database) MarketStatistics() (models.MarketStatistics, error) {
	var stats models.MarketStatistics
	var earliest, latest sql.NullString
	err := d.db.QueryRow(`
		SELECT
			COUNT(*) as total_transactions,
			COUNT(DISTINCT town) as total_towns,
			COUNT(DISTINCT flat_type) as total_flat_types,
			MIN(month) as earliest_month,
			MAX(month) as latest_month,
			COALESCE(ROUND(AVG(resale_price), 0), 0) as avg_price,
			COALESCE(ROUND(AVG(resale_price / floor_area_sqm), 2), 0) as avg_psm
		FROM transactions
		WHERE floor_area_sqm > 0
	`).Scan(
		&stats.TotalTransactions, &stats.TotalTowns, &stats.TotalFlatTypes,
		&earliest, &latest, &stats.AvgPrice, &stats.AvgPSM,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to query market statistics: %w", err)
	}
	if earliest.Valid {
		stats.EarliestMonth = earliest.String
	}
	if latest.Valid {
		stats.LatestMonth = latest.String
	}
	return stats, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}
