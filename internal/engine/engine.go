// Package engine implements the leak scoring engine: a pure transformation
// from customer records and filter options to a ranked analysis result.
// It performs no I/O and holds no state; every invocation is independent.
package engine

import (
	"math"
	"time"

	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// Score weights. They sum to 1.0: revenue dominates because the point of the
// ranking is value recovery, not raw churn detection.
const (
	weightRecency   = 0.3
	weightRevenue   = 0.5
	weightFrequency = 0.2
)

const (
	// recencySaturationDays is where the recency sub-score flattens at 100.
	// Urgency stops growing once a customer has been gone half a year.
	recencySaturationDays = 180

	// neutralFrequencyScore stands in when purchase counts are unknown.
	// Missing data scores as average, never as zero activity.
	neutralFrequencyScore = 50.0

	// purchaseCadenceMonths is the assumed baseline of one purchase every
	// two months when estimating missed purchases.
	purchaseCadenceMonths = 2.0

	// TopCustomerCap bounds the ranked table regardless of input size.
	TopCustomerCap = 50
)

// Analyze classifies, scores, filters, ranks, and aggregates.
//
// The result is nil for empty input: the caller renders an onboarding/empty
// state rather than a zero-valued report. now is sampled once by the caller
// so every customer in one result is evaluated against the same instant.
//
// Classification uses opts.ThresholdDays only. The narrowing filters
// (MinSpending, RiskLevel) decide which leaked customers populate
// TopLeakedCustomers and contribute to LostRevenue and LeakVelocity, but
// never change LeakedCustomers or LeakRate: the aggregate health metrics
// describe the whole leaked population, the table describes a chosen slice.
func Analyze(customers []model.Customer, opts model.FilterOptions, now time.Time) *model.AnalysisResult {
	if len(customers) == 0 {
		return nil
	}

	// Population maxima span the entire input, active customers included:
	// one high-spending active customer raises the bar for everyone.
	var maxRevenue float64
	var maxPurchaseCount int
	var totalRevenue float64
	for _, c := range customers {
		totalRevenue += c.TotalRevenue
		if c.TotalRevenue > maxRevenue {
			maxRevenue = c.TotalRevenue
		}
		if c.PurchaseCount != nil && *c.PurchaseCount > maxPurchaseCount {
			maxPurchaseCount = *c.PurchaseCount
		}
	}

	var leaked []model.LeakedCustomer
	for _, c := range customers {
		days := daysSince(c.LastPurchaseDate, now)
		if days <= opts.ThresholdDays {
			continue
		}

		score := leakScore(c, days, maxRevenue, maxPurchaseCount)
		leaked = append(leaked, model.LeakedCustomer{
			Customer:              c,
			DaysSinceLastPurchase: days,
			LeakScore:             score,
			EstimatedLostRevenue:  estimateLostRevenue(c, days),
			RiskLevel:             model.RiskFromScore(score),
		})
	}

	top, lostRevenue, velocity := ApplyFilters(leaked, totalRevenue, opts)

	leakRate := float64(len(leaked)) / float64(len(customers)) * 100

	return &model.AnalysisResult{
		TotalCustomers:     len(customers),
		ActiveCustomers:    len(customers) - len(leaked),
		LeakedCustomers:    len(leaked),
		LeakRate:           math.Round(leakRate*10) / 10,
		TotalRevenue:       totalRevenue,
		LostRevenue:        math.Round(lostRevenue),
		BucketHealth:       bucketHealth(leakRate),
		LeakVelocity:       velocity,
		TopLeakedCustomers: top,
	}
}

// daysSince returns the whole days between then and now, rounded up.
// The difference is taken by magnitude: a future-dated purchase counts as
// its distance from now rather than going negative.
func daysSince(then, now time.Time) int {
	diff := now.Sub(then)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// leakScore combines the three normalized sub-scores into a 0-100 integer.
func leakScore(c model.Customer, days int, maxRevenue float64, maxPurchaseCount int) int {
	recency := 100.0
	if days < recencySaturationDays {
		recency = math.Min(100, float64(days)/recencySaturationDays*100)
	}

	revenue := 0.0
	if maxRevenue > 0 {
		revenue = c.TotalRevenue / maxRevenue * 100
	}

	frequency := neutralFrequencyScore
	if maxPurchaseCount > 0 && c.PurchaseCount != nil && *c.PurchaseCount > 0 {
		frequency = float64(*c.PurchaseCount) / float64(maxPurchaseCount) * 100
	}

	return int(math.Round(recency*weightRecency + revenue*weightRevenue + frequency*weightFrequency))
}

// estimateLostRevenue projects what the customer would have spent while
// inactive. With a known purchase history the estimate assumes the baseline
// cadence; otherwise it extrapolates the lifetime total onto a year.
// The per-customer value stays unrounded; only the aggregate is rounded.
func estimateLostRevenue(c model.Customer, days int) float64 {
	monthsInactive := float64(days) / 30

	if c.PurchaseCount != nil && *c.PurchaseCount > 1 {
		avgPerPurchase := c.TotalRevenue / float64(*c.PurchaseCount)
		missedPurchases := math.Floor(monthsInactive / purchaseCadenceMonths)
		return avgPerPurchase * missedPurchases
	}

	return c.TotalRevenue * (monthsInactive / 12)
}

// bucketHealth turns the raw (unrounded) leak rate into the 0-100 inverse
// health indicator. The 1.2 amplification degrades health faster than the
// raw rate so risk surfaces earlier.
func bucketHealth(leakRate float64) int {
	health := 100 - leakRate*1.2
	if health < 0 {
		health = 0
	}
	if health > 100 {
		health = 100
	}
	return int(math.Round(health))
}
