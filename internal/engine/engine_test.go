package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakstopper/leakstopper-cli/internal/model"
)

// analysisNow is the fixed "now" used across engine tests so results are
// reproducible.
var analysisNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func intPtr(n int) *int {
	return &n
}

// customerAgo builds a customer whose last purchase was daysAgo days before
// analysisNow.
func customerAgo(id string, daysAgo int, revenue float64, purchaseCount *int) model.Customer {
	return model.Customer{
		ID:               id,
		Name:             "Customer " + id,
		Email:            id + "@example.com",
		LastPurchaseDate: analysisNow.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		TotalRevenue:     revenue,
		PurchaseCount:    purchaseCount,
	}
}

func TestAnalyze_EmptyInputReturnsAbsence(t *testing.T) {
	assert.Nil(t, Analyze(nil, model.DefaultFilters(), analysisNow))
	assert.Nil(t, Analyze([]model.Customer{}, model.DefaultFilters(), analysisNow))
}

func TestAnalyze_Deterministic(t *testing.T) {
	customers := []model.Customer{
		customerAgo("a", 200, 1200, intPtr(4)),
		customerAgo("b", 10, 2400, intPtr(8)),
		customerAgo("c", 400, 800, nil),
	}

	first := Analyze(customers, model.DefaultFilters(), analysisNow)
	second := Analyze(customers, model.DefaultFilters(), analysisNow)

	require.NotNil(t, first)
	assert.Equal(t, first, second)
}

func TestAnalyze_ScenarioA_ScoreComposition(t *testing.T) {
	// Leaked customer at 200 days with revenue 1200 and 4 purchases, against
	// a population max of 2400 revenue and 8 purchases.
	customers := []model.Customer{
		customerAgo("target", 200, 1200, intPtr(4)),
		customerAgo("whale", 10, 2400, intPtr(8)), // active; still sets the maxima
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)
	require.Len(t, result.TopLeakedCustomers, 1)

	target := result.TopLeakedCustomers[0]
	assert.Equal(t, "target", target.ID)
	assert.Equal(t, 200, target.DaysSinceLastPurchase)
	// recency capped at 100 (>180d), revenue 1200/2400=50, frequency 4/8=50:
	// round(100*0.3 + 50*0.5 + 50*0.2) = 65.
	assert.Equal(t, 65, target.LeakScore)
	assert.Equal(t, model.RiskHigh, target.RiskLevel)
}

func TestAnalyze_ScenarioB_LostRevenueWithPurchaseHistory(t *testing.T) {
	customers := []model.Customer{
		customerAgo("target", 200, 1200, intPtr(4)),
		customerAgo("whale", 10, 2400, intPtr(8)),
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)
	require.Len(t, result.TopLeakedCustomers, 1)

	// avg 300/purchase, ~6.67 months inactive, floor(6.67/2)=3 missed: 900.
	assert.InDelta(t, 900.0, result.TopLeakedCustomers[0].EstimatedLostRevenue, 0.001)
}

func TestAnalyze_LostRevenueWithoutPurchaseHistory(t *testing.T) {
	// Single or unknown purchase count falls back to straight-line
	// annualized extrapolation: 1200 * (12 months inactive / 12) = 1200.
	customers := []model.Customer{
		customerAgo("target", 360, 1200, nil),
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)
	require.Len(t, result.TopLeakedCustomers, 1)
	assert.InDelta(t, 1200.0, result.TopLeakedCustomers[0].EstimatedLostRevenue, 0.001)
}

func TestAnalyze_ScenarioC_CountAsymmetry(t *testing.T) {
	// 10 leaked customers, only 2 at or above the 5000 spending floor.
	var customers []model.Customer
	for i := 0; i < 10; i++ {
		revenue := 1000.0
		if i < 2 {
			revenue = 6000.0
		}
		customers = append(customers, customerAgo(fmt.Sprintf("c%d", i), 120, revenue, intPtr(2)))
	}

	opts := model.DefaultFilters()
	opts.MinSpending = 5000

	result := Analyze(customers, opts, analysisNow)
	require.NotNil(t, result)

	// The spending filter narrows the table but never changes the counts.
	assert.Len(t, result.TopLeakedCustomers, 2)
	assert.Equal(t, 10, result.LeakedCustomers)
	assert.Equal(t, 100.0, result.LeakRate)

	unfiltered := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, unfiltered)
	assert.Equal(t, unfiltered.LeakedCustomers, result.LeakedCustomers)
	assert.Equal(t, unfiltered.LeakRate, result.LeakRate)
	assert.NotEqual(t, unfiltered.LostRevenue, result.LostRevenue)
}

func TestAnalyze_ScenarioD_AllActive(t *testing.T) {
	customers := []model.Customer{
		customerAgo("a", 5, 1000, intPtr(3)),
		customerAgo("b", 30, 2000, intPtr(1)),
		customerAgo("c", 89, 500, nil),
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)

	assert.Equal(t, 0, result.LeakedCustomers)
	assert.Equal(t, 3, result.ActiveCustomers)
	assert.Equal(t, 100, result.BucketHealth)
	assert.Equal(t, 0.0, result.LostRevenue)
	assert.Equal(t, 0.0, result.LeakVelocity)
	assert.Empty(t, result.TopLeakedCustomers)
}

func TestAnalyze_TopListCappedAtFifty(t *testing.T) {
	var customers []model.Customer
	for i := 0; i < 1000; i++ {
		customers = append(customers, customerAgo(fmt.Sprintf("c%d", i), 100+i%200, float64(100+i), intPtr(i%10+1)))
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)

	assert.LessOrEqual(t, len(result.TopLeakedCustomers), TopCustomerCap)
	assert.Len(t, result.TopLeakedCustomers, TopCustomerCap)
	assert.Greater(t, result.LeakedCustomers, TopCustomerCap)
}

func TestAnalyze_ScoreBoundsAndOrdering(t *testing.T) {
	var customers []model.Customer
	for i := 0; i < 200; i++ {
		var pc *int
		if i%3 != 0 {
			pc = intPtr(i % 17)
		}
		customers = append(customers, customerAgo(fmt.Sprintf("c%d", i), i*4, float64(i*137%9000), pc))
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)
	require.NotEmpty(t, result.TopLeakedCustomers)

	for i, lc := range result.TopLeakedCustomers {
		assert.GreaterOrEqual(t, lc.LeakScore, 0)
		assert.LessOrEqual(t, lc.LeakScore, 100)
		if i > 0 {
			assert.LessOrEqual(t, lc.LeakScore, result.TopLeakedCustomers[i-1].LeakScore)
		}
	}
}

func TestAnalyze_StableTieBreakPreservesInputOrder(t *testing.T) {
	// Identical attributes produce identical scores; input order must hold.
	customers := []model.Customer{
		customerAgo("first", 150, 1000, intPtr(2)),
		customerAgo("second", 150, 1000, intPtr(2)),
		customerAgo("third", 150, 1000, intPtr(2)),
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)
	require.Len(t, result.TopLeakedCustomers, 3)

	assert.Equal(t, "first", result.TopLeakedCustomers[0].ID)
	assert.Equal(t, "second", result.TopLeakedCustomers[1].ID)
	assert.Equal(t, "third", result.TopLeakedCustomers[2].ID)
}

func TestAnalyze_FutureDatedPurchaseUsesMagnitude(t *testing.T) {
	// A purchase dated 200 days in the future classifies by its distance
	// from now, not as a negative difference.
	future := model.Customer{
		ID:               "future",
		Name:             "Future Customer",
		LastPurchaseDate: analysisNow.Add(200 * 24 * time.Hour),
		TotalRevenue:     500,
	}

	result := Analyze([]model.Customer{future}, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)
	require.Len(t, result.TopLeakedCustomers, 1)
	assert.Equal(t, 200, result.TopLeakedCustomers[0].DaysSinceLastPurchase)
}

func TestAnalyze_EpochSentinelClassifiesAsLeaked(t *testing.T) {
	never := model.Customer{
		ID:           "never",
		Name:         "No Purchase Date",
		TotalRevenue: 900,
	}
	require.False(t, never.HasPurchased())

	result := Analyze([]model.Customer{never}, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)
	require.Len(t, result.TopLeakedCustomers, 1)
	// Unknown date reads as maximally stale: recency saturates.
	assert.Greater(t, result.TopLeakedCustomers[0].DaysSinceLastPurchase, recencySaturationDays)
}

func TestAnalyze_ZeroRevenuePopulation(t *testing.T) {
	customers := []model.Customer{
		customerAgo("a", 200, 0, nil),
		customerAgo("b", 250, 0, nil),
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)

	// Division guards: revenue sub-score 0, velocity 0.
	assert.Equal(t, 0.0, result.LeakVelocity)
	for _, lc := range result.TopLeakedCustomers {
		// recency 100*0.3 + revenue 0*0.5 + neutral frequency 50*0.2 = 40.
		assert.Equal(t, 40, lc.LeakScore)
	}
}

func TestAnalyze_LeakRateRoundedToOneDecimal(t *testing.T) {
	customers := []model.Customer{
		customerAgo("leaked", 120, 100, nil),
		customerAgo("active1", 10, 100, nil),
		customerAgo("active2", 20, 100, nil),
	}

	result := Analyze(customers, model.DefaultFilters(), analysisNow)
	require.NotNil(t, result)
	assert.Equal(t, 33.3, result.LeakRate)
	// Health from the unrounded rate: round(100 - 33.33*1.2) = 60.
	assert.Equal(t, 60, result.BucketHealth)
}

func TestAnalyze_DoesNotMutateInput(t *testing.T) {
	customers := []model.Customer{
		customerAgo("a", 200, 1200, intPtr(4)),
		customerAgo("b", 10, 2400, intPtr(8)),
	}
	snapshot := make([]model.Customer, len(customers))
	copy(snapshot, customers)

	_ = Analyze(customers, model.DefaultFilters(), analysisNow)
	assert.Equal(t, snapshot, customers)
}
