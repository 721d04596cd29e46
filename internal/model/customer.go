// Package model defines the domain types shared across the analysis pipeline.
package model

import "time"

// Customer is a single ingested customer record. Records are immutable once
// parsed; the engine never mutates them.
type Customer struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	CompanyName      string    `json:"company_name,omitempty"`
	LastPurchaseDate time.Time `json:"last_purchase_date"`
	TotalRevenue     float64   `json:"total_revenue"`
	FavoriteProduct  string    `json:"favorite_product,omitempty"`
	// PurchaseCount is nil when the export had no purchase-count column.
	// Absence is distinct from zero: unknown frequency scores neutrally.
	PurchaseCount *int `json:"purchase_count,omitempty"`
}

// HasPurchased reports whether the record carries a real last-purchase date.
// The zero time is the "unknown/never" sentinel used by the CSV parser.
func (c Customer) HasPurchased() bool {
	return !c.LastPurchaseDate.IsZero()
}

// LeakedCustomer is a Customer classified as leaked, augmented with the
// per-analysis derived fields. Computed fresh on every engine run.
type LeakedCustomer struct {
	Customer
	DaysSinceLastPurchase int       `json:"days_since_last_purchase"`
	LeakScore             int       `json:"leak_score"`
	EstimatedLostRevenue  float64   `json:"estimated_lost_revenue"`
	RiskLevel             RiskLevel `json:"risk_level"`
}

// AnalysisResult is the full output of one engine run. A nil result is the
// explicit absence state for empty input; callers must branch on it rather
// than treat zero customers as a valid numeric result.
type AnalysisResult struct {
	TotalCustomers     int              `json:"total_customers"`
	ActiveCustomers    int              `json:"active_customers"`
	LeakedCustomers    int              `json:"leaked_customers"`
	LeakRate           float64          `json:"leak_rate"`
	TotalRevenue       float64          `json:"total_revenue"`
	LostRevenue        float64          `json:"lost_revenue"`
	BucketHealth       int              `json:"bucket_health"`
	LeakVelocity       float64          `json:"leak_velocity"`
	TopLeakedCustomers []LeakedCustomer `json:"top_leaked_customers"`
}
