package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leakstopper/leakstopper-cli/pkg/anthropic"
)

// ColumnMapping names the CSV column backing each customer field. Empty
// means the export has no such column.
type ColumnMapping struct {
	Name             string `json:"name,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	CompanyName      string `json:"company_name,omitempty"`
	LastPurchaseDate string `json:"last_purchase_date,omitempty"`
	TotalRevenue     string `json:"total_revenue,omitempty"`
	FavoriteProduct  string `json:"favorite_product,omitempty"`
	PurchaseCount    string `json:"purchase_count,omitempty"`
}

// fieldPatterns maps each customer field to the column-name patterns that
// identify it. Columns are normalized (lowercased, separators stripped)
// before matching. Covers both English and Turkish export conventions.
var fieldPatterns = []struct {
	field    string
	patterns []*regexp.Regexp
}{
	{"name", compilePatterns(`^(müşteri|musteri|customer|isim|name|adsoyad|adı?$|adi$|fullname|client)`)},
	{"email", compilePatterns(`^(email|eposta|mail|epost|emailaddress)`)},
	{"phone", compilePatterns(`^(phone|tel|telefon|gsm|mobile|cell)`)},
	{"companyName", compilePatterns(`^(company|firma|şirket|sirket|kurum|organization|org)`)},
	{"lastPurchaseDate", compilePatterns(`^(son|last|satinalma|purchase|tarih|date|sonalis|lastorder)`)},
	{"totalRevenue", compilePatterns(`^(revenue|ciro|total|toplam|gelir|tutar|spend|amount|ltv)`)},
	{"favoriteProduct", compilePatterns(`^(product|ürün|urun|favori|favorite|item|sku)`)},
	{"purchaseCount", compilePatterns(`^(count|sayı|sayi|adet|sipariş|siparis|order(s|count)|purchases|frequency)`)},
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// FallbackMapping guesses the column mapping from column names alone.
// Each column is claimed at most once, in field declaration order.
func FallbackMapping(columns []string) ColumnMapping {
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = normalizeColumn(c)
	}

	claimed := make(map[int]bool)
	assigned := make(map[string]string)

	for _, fp := range fieldPatterns {
		for _, re := range fp.patterns {
			idx := -1
			for i, n := range normalized {
				if !claimed[i] && re.MatchString(n) {
					idx = i
					break
				}
			}
			if idx >= 0 {
				claimed[idx] = true
				assigned[fp.field] = columns[idx]
				break
			}
		}
	}

	return mappingFromFields(assigned)
}

func normalizeColumn(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(c)
}

// smartMappingPrompt asks for a pure-JSON column mapping.
const smartMappingPrompt = `You are a data analyst. Match the CSV columns of a customer transaction export to the customer fields below.

Fields:
- name: customer display name
- email: email address
- phone: phone number
- companyName: company/organization name
- lastPurchaseDate: date of the most recent purchase
- totalRevenue: lifetime revenue/total spend
- favoriteProduct: most purchased product
- purchaseCount: number of purchases

Respond with ONLY valid JSON, no other text. Use the original column name as the value, or null when no column fits:
{"name": null, "email": null, "phone": null, "companyName": null, "lastPurchaseDate": null, "totalRevenue": null, "favoriteProduct": null, "purchaseCount": null}`

// SmartMapping asks Claude to map the columns from the header plus a few
// sample rows. The caller falls back to FallbackMapping on error.
func SmartMapping(ctx context.Context, ai anthropic.Client, model string, columns []string, sample []map[string]string) (ColumnMapping, error) {
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return ColumnMapping{}, eris.Wrap(err, "ingest: marshal columns")
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return ColumnMapping{}, eris.Wrap(err, "ingest: marshal sample rows")
	}

	userMsg := fmt.Sprintf("CSV columns: %s\n\nSample rows:\n%s", columnsJSON, sampleJSON)

	resp, err := ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     model,
		MaxTokens: 512,
		System:    []anthropic.SystemBlock{{Text: smartMappingPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: userMsg}},
	})
	if err != nil {
		return ColumnMapping{}, eris.Wrap(err, "ingest: mapping request")
	}

	text := resp.Text()
	if text == "" {
		return ColumnMapping{}, eris.New("ingest: empty mapping response")
	}

	// Find JSON in the response (it may have surrounding text).
	jsonStart := strings.Index(text, "{")
	jsonEnd := strings.LastIndex(text, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return ColumnMapping{}, eris.Errorf("ingest: no JSON in mapping response: %s", text)
	}

	var raw map[string]*string
	if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd+1]), &raw); err != nil {
		return ColumnMapping{}, eris.Wrap(err, "ingest: parse mapping JSON")
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	fields := make(map[string]string, len(raw))
	for field, col := range raw {
		if col == nil || *col == "" || *col == "null" {
			continue
		}
		// Reject hallucinated column names.
		if !known[*col] {
			continue
		}
		fields[field] = *col
	}

	return mappingFromFields(fields), nil
}

func mappingFromFields(fields map[string]string) ColumnMapping {
	return ColumnMapping{
		Name:             fields["name"],
		Email:            fields["email"],
		Phone:            fields["phone"],
		CompanyName:      fields["companyName"],
		LastPurchaseDate: fields["lastPurchaseDate"],
		TotalRevenue:     fields["totalRevenue"],
		FavoriteProduct:  fields["favoriteProduct"],
		PurchaseCount:    fields["purchaseCount"],
	}
}
