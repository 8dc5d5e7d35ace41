// Package analytics computes price statistics over resale transaction
// snapshots. All computations are pure functions of the queried data and are
// safe to run concurrently across requests.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"homefinder/server/internal/models"
)

// TransactionStore is the read-only row source the aggregators consume.
type TransactionStore interface {
	QueryTransactions(filter models.TransactionFilter) ([]models.Transaction, error)
}

// ValidationError rejects a malformed request before any computation runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TrendAggregator computes per-month price statistics for one town and flat
// type over an inclusive month range.
type TrendAggregator struct {
	store TransactionStore
}

func NewTrendAggregator(store TransactionStore) *TrendAggregator {
	return &TrendAggregator{store: store}
}

// ComputeTrends partitions matching transactions by month and returns one
// PeriodStat per month, ascending. An empty match is an empty slice, not an
// error.
func (a *TrendAggregator) ComputeTrends(town, flatType, startMonth, endMonth string) ([]models.PeriodStat, error) {
	if startMonth == "" || endMonth == "" {
		return nil, &ValidationError{Field: "month range", Reason: "start and end months are required"}
	}
	if startMonth > endMonth {
		return nil, &ValidationError{Field: "month range", Reason: fmt.Sprintf("start %s is after end %s", startMonth, endMonth)}
	}

	filter := models.TransactionFilter{
		FlatType:   flatType,
		StartMonth: startMonth,
		EndMonth:   endMonth,
	}
	if town != "" {
		filter.Towns = []string{town}
	}

	transactions, err := a.store.QueryTransactions(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	byMonth := make(map[string][]models.Transaction)
	for _, t := range transactions {
		if t.FloorAreaSqm <= 0 {
			continue
		}
		byMonth[t.Month] = append(byMonth[t.Month], t)
	}

	stats := make([]models.PeriodStat, 0, len(byMonth))
	for month, part := range byMonth {
		stats = append(stats, monthStat(month, part))
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Month < stats[j].Month })
	return stats, nil
}

func monthStat(month string, part []models.Transaction) models.PeriodStat {
	psm := make([]float64, 0, len(part))
	stat := models.PeriodStat{
		Month:    month,
		Count:    len(part),
		MinPrice: part[0].ResalePrice,
		MaxPrice: part[0].ResalePrice,
	}

	var sum float64
	for _, t := range part {
		v := round2(t.ResalePrice / t.FloorAreaSqm)
		psm = append(psm, v)
		sum += v
		if t.ResalePrice < stat.MinPrice {
			stat.MinPrice = t.ResalePrice
		}
		if t.ResalePrice > stat.MaxPrice {
			stat.MaxPrice = t.ResalePrice
		}
	}

	stat.AvgPSM = round2(sum / float64(len(part)))
	if m, ok := median(psm); ok {
		stat.MedianPSM = round2(m)
	} else {
		// Degenerate partition: fall back to the average.
		stat.MedianPSM = stat.AvgPSM
	}
	return stat
}

// median computes the rank-based median: the middle value for odd counts,
// the mean of the two middle values for even counts. Ties in value do not
// affect the result.
func median(values []float64) (float64, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2], true
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
