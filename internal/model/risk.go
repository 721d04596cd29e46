package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// RiskLevel is the coarse severity bucket derived from a leak score.
type RiskLevel string

// Risk levels, most severe first.
const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// RiskFromScore maps a leak score to its risk level.
func RiskFromScore(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Rank returns the severity rank of a risk level; higher is more severe.
// Unknown levels rank below low.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// RiskFilter is the minimum-severity filter applied to the ranked table.
// "all" keeps every risk level; any other value keeps that level and
// everything more severe.
type RiskFilter string

// RiskFilterAll disables risk filtering.
const RiskFilterAll RiskFilter = "all"

// ParseRiskFilter validates a risk filter from flag or config input.
// Low is not a valid filter value: it would be equivalent to all.
func ParseRiskFilter(s string) (RiskFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return RiskFilterAll, nil
	case "critical":
		return RiskFilter(RiskCritical), nil
	case "high":
		return RiskFilter(RiskHigh), nil
	case "medium":
		return RiskFilter(RiskMedium), nil
	default:
		return "", eris.Errorf("model: invalid risk filter %q (want all, critical, high, or medium)", s)
	}
}

// Keeps reports whether a customer at the given risk level survives the
// filter. Non-"all" filters are minimum-severity, not exact-match.
func (f RiskFilter) Keeps(level RiskLevel) bool {
	if f == RiskFilterAll || f == "" {
		return true
	}
	return level.Rank() >= RiskLevel(f).Rank()
}

// FilterOptions narrows which leaked customers appear in the ranked table.
// ThresholdDays alone decides classification; MinSpending and RiskLevel only
// narrow the table and its aggregates, never the leak counts.
type FilterOptions struct {
	ThresholdDays int        `json:"threshold_days"`
	MinSpending   float64    `json:"min_spending"`
	RiskLevel     RiskFilter `json:"risk_level"`
}

// DefaultFilters returns the standard filter settings: 90-day threshold,
// no spending floor, all risk levels.
func DefaultFilters() FilterOptions {
	return FilterOptions{
		ThresholdDays: 90,
		MinSpending:   0,
		RiskLevel:     RiskFilterAll,
	}
}
