package mapping

// The destination schema's two tiers. A field name must belong to exactly
// one set; anything in neither is dropped and reported so misconfigured
// mappings stay observable.
var parentFieldSet = map[string]bool{
	"name":                     true,
	"slug":                     true,
	"description":              true,
	"shippable":                true,
	"ec-product-type":          true,
	"default-sku":              true,
	"tax-category":             true,
	"category":                 true,
	"sku-properties":           true,
	"web-extended-description": true,
	"safety-data-sheet":        true,
	"specification-sheet":      true,
	"manufacturer":             true,
	"warranty-information":     true,
}

var childFieldSet = map[string]bool{
	"sku":                    true,
	"price":                  true,
	"compare-at-price":       true,
	"inventory":              true,
	"main-image":             true,
	"more-images":            true,
	"download-files":         true,
	"sku-values":             true,
	"product":                true,
	"barcode":                true,
	"supplier-code":          true,
	"variant-description":    true,
	"variant-specifications": true,
}

// SeparateFields partitions a flat destination field set into parent-tier
// and child-tier maps. Unrecognized names go into skipped, never into an
// arbitrary tier.
func SeparateFields(fields map[string]interface{}) (parent, child map[string]interface{}, skipped []string) {
	parent = make(map[string]interface{})
	child = make(map[string]interface{})

	for name, value := range fields {
		switch {
		case parentFieldSet[name]:
			parent[name] = value
		case childFieldSet[name]:
			child[name] = value
		default:
			skipped = append(skipped, name)
		}
	}
	return parent, child, skipped
}

// IsParentField reports whether a destination field name belongs to the
// parent tier.
func IsParentField(name string) bool {
	return parentFieldSet[name]
}

// IsChildField reports whether a destination field name belongs to the
// child (SKU) tier.
func IsChildField(name string) bool {
	return childFieldSet[name]
}
