package engine

import (
	"math"
	"sort"

	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// ApplyFilters narrows an already-scored leaked set to the ranked table and
// recomputes the table-scoped aggregates. Scores are threshold-independent
// once computed, so callers holding a leaked slice can re-filter on
// MinSpending/RiskLevel changes without rescoring.
//
// Returns the ranked, capped slice, the unrounded lost-revenue sum over the
// narrowed set, and the leak velocity. totalRevenue is the whole-population
// revenue; zero guards the velocity division and yields 0.
func ApplyFilters(leaked []model.LeakedCustomer, totalRevenue float64, opts model.FilterOptions) ([]model.LeakedCustomer, float64, float64) {
	kept := make([]model.LeakedCustomer, 0, len(leaked))
	for _, lc := range leaked {
		if lc.TotalRevenue < opts.MinSpending {
			continue
		}
		if !opts.RiskLevel.Keeps(lc.RiskLevel) {
			continue
		}
		kept = append(kept, lc)
	}

	// Stable: equal scores keep their original input order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].LeakScore > kept[j].LeakScore
	})

	var lostRevenue float64
	for _, lc := range kept {
		lostRevenue += lc.EstimatedLostRevenue
	}

	velocity := 0.0
	if totalRevenue > 0 {
		velocity = math.Min(10, lostRevenue/totalRevenue*20)
	}

	if len(kept) > TopCustomerCap {
		kept = kept[:TopCustomerCap]
	}

	return kept, lostRevenue, velocity
}
