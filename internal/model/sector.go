package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Sector names the tone profile used for reclamation messages. The engine
// never reads it; only the message-generation layer does.
type Sector string

// Supported sectors.
const (
	SectorPharma    Sector = "Pharma"
	SectorECommerce Sector = "ECommerce"
	SectorSaaS      Sector = "SaaS"
)

// ParseSector validates a sector from flag or config input.
func ParseSector(s string) (Sector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pharma":
		return SectorPharma, nil
	case "ecommerce", "e-commerce":
		return SectorECommerce, nil
	case "saas":
		return SectorSaaS, nil
	default:
		return "", eris.Errorf("model: invalid sector %q (want Pharma, ECommerce, or SaaS)", s)
	}
}
