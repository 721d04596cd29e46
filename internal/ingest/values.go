package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoLayouts are tried first for date values.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// dmyPattern matches DD/MM/YYYY, DD.MM.YYYY and DD-MM-YYYY, with 2- or
// 4-digit years.
var dmyPattern = regexp.MustCompile(`(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2,4})`)

// parseDate parses a date value in the formats customer exports actually
// contain. Unparseable or empty values return the zero time, the
// "unknown/never" sentinel the engine treats as maximally stale.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	if m := dmyPattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		}
	}

	return time.Time{}
}

// amountCleaner strips currency symbols and whitespace.
var amountCleaner = strings.NewReplacer("₺", "", "$", "", "€", "", "£", "", " ", "", " ", "")

// parseAmount parses a monetary value. Handles both 1,234.56 and the
// Turkish/European 1.234,56 convention; unparseable values become 0.
func parseAmount(s string) float64 {
	s = amountCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastDot < 0 && lastComma >= 0 && (strings.Count(s, ",") > 1 || len(s)-lastComma == 4):
		// "1,200" and "1,200,300" style: commas are thousands separators.
		s = strings.ReplaceAll(s, ",", "")
	case lastComma > lastDot:
		// Comma is the decimal separator; dots are thousands.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && lastComma < 0 && len(s)-lastDot == 4 && strings.Count(s, ".") >= 1:
		// "1.200" style: a lone dot followed by exactly three digits is a
		// thousands separator, not a decimal point.
		s = strings.ReplaceAll(s, ".", "")
	default:
		// Dot is the decimal separator (or no separators at all).
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseCount parses a purchase count. The second return is false when the
// value is absent or malformed, which callers treat as "unknown" rather
// than zero.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
