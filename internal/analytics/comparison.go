package analytics

import (
	"fmt"
	"sort"

	"homefinder/server/internal/models"

	"github.com/sirupsen/logrus"
)

// MetadataStore resolves optional per-town enrichment. A missing town is
// (nil, nil); only store failures return an error, and the ranker degrades
// to defaults rather than failing the comparison.
type MetadataStore interface {
	Lookup(town string) (*models.TownMetadata, error)
}

// IncomeSource supplies the reference income used by the affordability
// score. Nil income means no reference is available.
type IncomeSource interface {
	LatestHouseholdIncome() (*models.HouseholdIncome, error)
}

// comparisonWindow is the number of trailing months of data a comparison
// considers, counted over months actually present for the filter.
const comparisonWindow = 12

// referenceFlatSizeSqm is the typical four-room flat size used to turn a
// per-sqm price into an estimated whole-flat price.
const referenceFlatSizeSqm = 90.0

// ComparisonRanker computes per-town statistics over the trailing window and
// enriches each row with metadata and an affordability score.
type ComparisonRanker struct {
	store    TransactionStore
	metadata MetadataStore
	income   IncomeSource
	logger   *logrus.Logger
}

func NewComparisonRanker(store TransactionStore, metadata MetadataStore, income IncomeSource, logger *logrus.Logger) *ComparisonRanker {
	if logger == nil {
		logger = logrus.New()
	}
	return &ComparisonRanker{store: store, metadata: metadata, income: income, logger: logger}
}

// Compare ranks the given towns by median price per sqm over the last
// comparisonWindow months present at or before anchor. Towns without
// matching transactions are omitted unless includeEmpty is set, in which
// case they appear with nil statistics. An empty town set yields an empty
// result.
func (r *ComparisonRanker) Compare(towns []string, flatType, anchor string, includeEmpty bool) ([]models.ComparisonRow, error) {
	towns = dedupe(towns)
	if len(towns) == 0 {
		return []models.ComparisonRow{}, nil
	}

	transactions, err := r.store.QueryTransactions(models.TransactionFilter{
		Towns:    towns,
		FlatType: flatType,
		EndMonth: anchor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	transactions = trailingWindow(transactions, comparisonWindow)

	byTown := make(map[string][]models.Transaction)
	for _, t := range transactions {
		byTown[t.Town] = append(byTown[t.Town], t)
	}

	refIncome := r.referenceMedianIncome()

	rows := make([]models.ComparisonRow, 0, len(towns))
	for _, town := range towns {
		part := byTown[town]
		if len(part) == 0 && !includeEmpty {
			continue
		}
		row := r.townRow(town, part, refIncome)
		rows = append(rows, row)
	}

	// Descending by median PSM; towns without data sort last.
	sort.SliceStable(rows, func(i, j int) bool {
		mi, mj := rows[i].MedianPSM, rows[j].MedianPSM
		if mi == nil {
			return false
		}
		if mj == nil {
			return true
		}
		return *mi > *mj
	})
	return rows, nil
}

func (r *ComparisonRanker) townRow(town string, part []models.Transaction, refIncome *float64) models.ComparisonRow {
	row := models.ComparisonRow{
		Town:            town,
		Transactions:    len(part),
		Region:          "Unknown",
		Maturity:        "Unknown",
		Characteristics: []string{},
	}

	if len(part) > 0 {
		psm := make([]float64, 0, len(part))
		var priceSum float64
		minPrice, maxPrice := part[0].ResalePrice, part[0].ResalePrice
		for _, t := range part {
			psm = append(psm, round2(t.ResalePrice/t.FloorAreaSqm))
			priceSum += t.ResalePrice
			if t.ResalePrice < minPrice {
				minPrice = t.ResalePrice
			}
			if t.ResalePrice > maxPrice {
				maxPrice = t.ResalePrice
			}
		}
		m, _ := median(psm)
		medianPSM := round2(m)
		avgPrice := round2(priceSum / float64(len(part)))
		row.MedianPSM = &medianPSM
		row.AvgPrice = &avgPrice
		row.MinPrice = &minPrice
		row.MaxPrice = &maxPrice
	}

	row.AffordabilityScore = affordabilityScore(row.MedianPSM, refIncome)

	meta, err := r.metadata.Lookup(town)
	if err != nil {
		r.logger.WithError(err).WithField("town", town).Warn("Metadata lookup failed, using defaults")
	} else if meta != nil {
		if meta.Region != "" {
			row.Region = meta.Region
		}
		if meta.Maturity != "" {
			row.Maturity = meta.Maturity
		}
		if len(meta.Characteristics) > 0 {
			row.Characteristics = meta.Characteristics
		}
		row.Centroid = meta.Centroid
		row.Geometry = meta.Geometry
	}
	return row
}

// affordabilityScore maps a town's median PSM against the reference median
// income onto a 1..10 scale; 5.0 is the neutral default when either side of
// the ratio is unknown.
func affordabilityScore(medianPSM, refIncome *float64) float64 {
	if medianPSM == nil || *medianPSM <= 0 || refIncome == nil || *refIncome == 0 {
		return 5.0
	}
	estimatedPrice := *medianPSM * referenceFlatSizeSqm
	var ratio float64
	if estimatedPrice > 0 {
		ratio = (*refIncome * 300) / estimatedPrice
	}
	score := ratio * 3
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return round1(score)
}

func (r *ComparisonRanker) referenceMedianIncome() *float64 {
	if r.income == nil {
		return nil
	}
	inc, err := r.income.LatestHouseholdIncome()
	if err != nil {
		r.logger.WithError(err).Warn("Reference income lookup failed, scores default to neutral")
		return nil
	}
	if inc == nil {
		return nil
	}
	return inc.ResidentMedian
}

// trailingWindow keeps transactions belonging to the most recent n distinct
// months present in the slice.
func trailingWindow(transactions []models.Transaction, n int) []models.Transaction {
	seen := make(map[string]struct{})
	for _, t := range transactions {
		seen[t.Month] = struct{}{}
	}
	if len(seen) <= n {
		return transactions
	}

	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Strings(months)
	cutoff := months[len(months)-n]

	kept := transactions[:0]
	for _, t := range transactions {
		if t.Month >= cutoff {
			kept = append(kept, t)
		}
	}
	return kept
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
