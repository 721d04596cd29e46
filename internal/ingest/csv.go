// Package ingest parses customer transaction exports (CSV) into typed
// customer records, resolving arbitrary column names through heuristic or
// AI-assisted mapping.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leakstopper/leakstopper-cli/internal/model"
	"github.com/leakstopper/leakstopper-cli/pkg/anthropic"
)

// sampleRowLimit is how many data rows are sent to the model for
// AI-assisted column mapping.
const sampleRowLimit = 5

// ParseOptions configures CSV parsing.
type ParseOptions struct {
	// AI enables AI-assisted column mapping when non-nil. Mapping falls
	// back to the regex heuristics if the model call fails.
	AI    anthropic.Client
	Model string
}

// ParseResult is the outcome of parsing one export.
type ParseResult struct {
	Customers []model.Customer
	Mapping   ColumnMapping
	RowCount  int
	Skipped   int
}

// ParseCustomerCSV reads a customer export and returns typed records.
// Rows with neither a name nor an email are dropped.
func ParseCustomerCSV(ctx context.Context, path string, opts ParseOptions) (*ParseResult, error) {
	header, rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("ingest: csv has no data rows")
	}

	mapping := resolveMapping(ctx, header, rows, opts)

	customers, skipped := MapCustomers(header, rows, mapping)
	if len(customers) == 0 {
		return nil, eris.New("ingest: no valid customers found in csv")
	}

	zap.L().Info("parsed customer csv",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
		zap.Int("customers", len(customers)),
		zap.Int("skipped", skipped),
	)

	return &ParseResult{
		Customers: customers,
		Mapping:   mapping,
		RowCount:  len(rows),
		Skipped:   skipped,
	}, nil
}

// resolveMapping picks AI-assisted mapping when available, falling back to
// the regex heuristics on any failure.
func resolveMapping(ctx context.Context, header []string, rows [][]string, opts ParseOptions) ColumnMapping {
	if opts.AI == nil {
		return FallbackMapping(header)
	}

	mapping, err := SmartMapping(ctx, opts.AI, opts.Model, header, sampleRows(header, rows, sampleRowLimit))
	if err != nil {
		zap.L().Warn("smart column mapping failed, using heuristics", zap.Error(err))
		return FallbackMapping(header)
	}
	return mapping
}

// ReadRows reads the whole CSV and splits off the header row.
func ReadRows(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read csv")
	}
	if len(records) < 2 {
		return nil, nil, eris.New("ingest: csv has no data rows")
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.TrimSpace(col)
	}

	return header, records[1:], nil
}

// MapCustomers converts raw rows to typed customers using the column
// mapping. Returns the customers and the number of rows skipped for having
// neither a name nor an email.
func MapCustomers(header []string, rows [][]string, mapping ColumnMapping) ([]model.Customer, int) {
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}

	get := func(row []string, col string) string {
		idx, ok := colIdx[col]
		if !ok || col == "" || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var customers []model.Customer
	skipped := 0

	for i, row := range rows {
		name := get(row, mapping.Name)
		email := get(row, mapping.Email)
		if name == "" && email == "" {
			skipped++
			continue
		}
		if name == "" {
			// Email-only records stay included under a placeholder name.
			name = "Unknown"
		}

		c := model.Customer{
			ID:               fmt.Sprintf("customer-%d", i+1),
			Name:             name,
			Email:            email,
			Phone:            get(row, mapping.Phone),
			CompanyName:      get(row, mapping.CompanyName),
			LastPurchaseDate: parseDate(get(row, mapping.LastPurchaseDate)),
			TotalRevenue:     parseAmount(get(row, mapping.TotalRevenue)),
			FavoriteProduct:  get(row, mapping.FavoriteProduct),
		}

		if mapping.PurchaseCount != "" {
			if n, ok := parseCount(get(row, mapping.PurchaseCount)); ok {
				c.PurchaseCount = &n
			}
		}

		customers = append(customers, c)
	}

	return customers, skipped
}

// sampleRows returns up to limit rows as column-name keyed maps.
func sampleRows(header []string, rows [][]string, limit int) []map[string]string {
	if len(rows) < limit {
		limit = len(rows)
	}

	out := make([]map[string]string, 0, limit)
	for _, row := range rows[:limit] {
		m := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}
