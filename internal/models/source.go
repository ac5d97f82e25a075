package models

import "time"

// SourceProduct is a product record fetched from the PIM. It is held in
// memory for the duration of one reconciliation pass and never persisted
// verbatim; only the derived mapping rows are stored.
type SourceProduct struct {
	ID         string                 `json:"id"`
	SKU        string                 `json:"sku"`
	Label      string                 `json:"label"`
	Price      *float64               `json:"price"`
	Category   string                 `json:"category"`
	Brand      string                 `json:"brand"`
	Attributes map[string]interface{} `json:"attributes"`
	// Details is the raw nested attribute bag from the details endpoint.
	// The attribute extractor flattens it during transformation.
	Details    map[string]interface{} `json:"details,omitempty"`
	Variants   []SourceVariant        `json:"variants"`
	ModifiedAt *time.Time             `json:"modified_at"`
	Active     bool                   `json:"active"`
}

// SourceVariant is a child record of a SourceProduct. Attributes holds the
// variant's distinguishing dimensions, e.g. {"color":"red","size":"M"}.
type SourceVariant struct {
	ID         string            `json:"id"`
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes"`
	Price      *float64          `json:"price"`
	Inventory  int               `json:"inventory"`
}

// BusinessKey returns the identifier used to locate the product's
// destination counterpart.
func (p *SourceProduct) BusinessKey(strategy string) string {
	if strategy == "id" {
		if p.ID != "" {
			return p.ID
		}
		return p.SKU
	}
	if p.SKU != "" {
		return p.SKU
	}
	return p.ID
}

// BasePrice returns the product's base price or zero when unset.
func (p *SourceProduct) BasePrice() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}
