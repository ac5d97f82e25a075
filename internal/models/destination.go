package models

// Price is an integer minor-unit amount as the destination expects it.
type Price struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type Inventory struct {
	Type     string `json:"type"` // "finite" or "infinite"
	Quantity int    `json:"quantity"`
}

// SKUProperty declares one variant dimension on the destination product,
// with its value set in deterministic sorted order.
type SKUProperty struct {
	Name   string   `json:"name"`
	Values []string `json:"enum"`
}

// DestinationSKU is one cell of the expanded variant matrix. Placeholder is
// set when no source variant matched the combination and the SKU was
// synthesized with zero stock.
type DestinationSKU struct {
	SKU         string                 `json:"sku"`
	Price       Price                  `json:"price"`
	Inventory   Inventory              `json:"inventory"`
	Values      map[string]string      `json:"sku_values"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
	Placeholder bool                   `json:"-"`
}

// DestinationProduct is the parent-tier record written to the storefront CMS.
type DestinationProduct struct {
	Name        string                 `json:"name"`
	Slug        string                 `json:"slug"`
	ProductType string                 `json:"product_type"` // "Advanced" with variants, else "Basic"
	Fields      map[string]interface{} `json:"fields"`
	Properties  []SKUProperty          `json:"sku_properties"`
	SKUs        []DestinationSKU       `json:"skus"`
}
