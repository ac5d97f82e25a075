package pim

import (
	"time"

	"pimsync/internal/models"
)

// productRecord is the wire shape of a product in search responses.
type productRecord struct {
	ID         string                 `json:"id"`
	SKU        string                 `json:"sku"`
	Label      string                 `json:"label"`
	Price      *float64               `json:"price"`
	Category   string                 `json:"category"`
	Brand      string                 `json:"brand"`
	Status     string                 `json:"status"`
	Modified   string                 `json:"modified"`
	Attributes map[string]interface{} `json:"attributes"`
}

func (r productRecord) toProduct() models.SourceProduct {
	product := models.SourceProduct{
		ID:         r.ID,
		SKU:        r.SKU,
		Label:      r.Label,
		Price:      r.Price,
		Category:   r.Category,
		Brand:      r.Brand,
		Attributes: r.Attributes,
		Active:     r.Status == "" || r.Status == "active",
	}
	if r.Modified != "" {
		if t, err := time.Parse(time.RFC3339, r.Modified); err == nil {
			product.ModifiedAt = &t
		} else if t, err := time.Parse("2006-01-02 15:04:05", r.Modified); err == nil {
			product.ModifiedAt = &t
		}
	}
	return product
}

// variantRecord is the wire shape of a product variant.
type variantRecord struct {
	ID         string            `json:"id"`
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes"`
	Price      *float64          `json:"price"`
	Inventory  int               `json:"inventory"`
}

func (r variantRecord) toVariant() models.SourceVariant {
	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return models.SourceVariant{
		ID:         r.ID,
		SKU:        r.SKU,
		Attributes: attrs,
		Price:      r.Price,
		Inventory:  r.Inventory,
	}
}
