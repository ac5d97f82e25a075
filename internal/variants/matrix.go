package variants

import (
	"fmt"
	"sort"
	"strings"

	"pimsync/internal/logger"
	"pimsync/internal/mapping"
	"pimsync/internal/models"
)

// Dimension is one variant-distinguishing attribute with its observed value
// set, deduplicated and sorted for determinism.
type Dimension struct {
	Name   string
	Values []string
}

// comboKey is a normalized order-independent key for one attribute
// combination. Pairs are sorted and joined with control separators so value
// formatting differences cannot produce false mismatches the way plain
// concatenation would.
type comboKey string

const (
	pairSeparator  = "\x1e"
	valueSeparator = "\x1f"
)

func keyFor(attributes map[string]string) comboKey {
	pairs := make([]string, 0, len(attributes))
	for name, value := range attributes {
		pairs = append(pairs,
			strings.ToLower(strings.TrimSpace(name))+valueSeparator+strings.TrimSpace(value))
	}
	sort.Strings(pairs)
	return comboKey(strings.Join(pairs, pairSeparator))
}

// Builder expands a product's variants into the destination's full SKU
// matrix.
type Builder struct {
	logger *logger.Logger
}

func NewBuilder(logger *logger.Logger) *Builder {
	return &Builder{logger: logger}
}

// Validate runs the variant consistency checks: non-empty unique SKUs and a
// uniform dimension set across all variants of the product. Violations are
// validation failures, never retried.
func (b *Builder) Validate(product *models.SourceProduct) []string {
	var issues []string

	seen := make(map[string]bool, len(product.Variants))
	for _, v := range product.Variants {
		if v.SKU == "" {
			issues = append(issues, fmt.Sprintf("variant %s missing SKU", v.ID))
			continue
		}
		if seen[v.SKU] {
			issues = append(issues, fmt.Sprintf("duplicate variant SKU %s", v.SKU))
		}
		seen[v.SKU] = true
	}

	if len(product.Variants) > 0 {
		union := make(map[string]bool)
		for _, v := range product.Variants {
			for name := range v.Attributes {
				union[name] = true
			}
		}
		for _, v := range product.Variants {
			var missing []string
			for name := range union {
				if _, ok := v.Attributes[name]; !ok {
					missing = append(missing, name)
				}
			}
			if len(missing) > 0 {
				sort.Strings(missing)
				issues = append(issues, fmt.Sprintf("variant %s missing attributes: %s",
					v.SKU, strings.Join(missing, ", ")))
			}
		}
	}
	return issues
}

// ExtractDimensions collects the union of distinguishing attribute names
// across the variants. Dimensions and their value sets are sorted so the
// matrix is identical across runs regardless of map iteration order.
func (b *Builder) ExtractDimensions(variants []models.SourceVariant) []Dimension {
	valueSets := make(map[string]map[string]bool)
	for _, v := range variants {
		for name, value := range v.Attributes {
			if valueSets[name] == nil {
				valueSets[name] = make(map[string]bool)
			}
			// Trimmed to match combination-key normalization; "red" and
			// " red" are the same dimension value.
			valueSets[name][strings.TrimSpace(value)] = true
		}
	}

	names := make([]string, 0, len(valueSets))
	for name := range valueSets {
		names = append(names, name)
	}
	sort.Strings(names)

	dimensions := make([]Dimension, 0, len(names))
	for _, name := range names {
		values := make([]string, 0, len(valueSets[name]))
		for value := range valueSets[name] {
			values = append(values, value)
		}
		sort.Strings(values)
		dimensions = append(dimensions, Dimension{Name: name, Values: values})
	}
	return dimensions
}

// Properties converts dimensions to the destination's SKU property
// declarations.
func (b *Builder) Properties(dimensions []Dimension) []models.SKUProperty {
	properties := make([]models.SKUProperty, 0, len(dimensions))
	for _, d := range dimensions {
		properties = append(properties, models.SKUProperty{Name: d.Name, Values: d.Values})
	}
	return properties
}

// Build computes the full Cartesian product of the product's variant
// dimensions and emits one destination SKU per combination. Combinations
// with a matching source variant carry its real SKU, price and inventory;
// unmatched combinations get a synthesized zero-stock placeholder so the
// destination can carry a non-purchasable SKU for them.
func (b *Builder) Build(product *models.SourceProduct) ([]models.DestinationSKU, []Dimension) {
	if len(product.Variants) == 0 {
		return b.simpleSKU(product), nil
	}

	dimensions := b.ExtractDimensions(product.Variants)
	if len(dimensions) == 0 {
		// Variants exist but expose no distinguishing attributes; there is
		// no matrix to expand, so the product sells as a single SKU.
		return b.simpleSKU(product), nil
	}

	lookup := make(map[comboKey]*models.SourceVariant, len(product.Variants))
	for i := range product.Variants {
		v := &product.Variants[i]
		lookup[keyFor(v.Attributes)] = v
	}

	var skus []models.DestinationSKU
	placeholders := 0
	forEachCombination(dimensions, func(values []string) {
		combination := make(map[string]string, len(dimensions))
		for i, d := range dimensions {
			combination[d.Name] = values[i]
		}

		if variant := lookup[keyFor(combination)]; variant != nil {
			price := product.BasePrice()
			if variant.Price != nil {
				price = *variant.Price
			}
			skus = append(skus, models.DestinationSKU{
				SKU:       variant.SKU,
				Price:     models.Price{Value: mapping.ToMinorUnits(price), Unit: "USD"},
				Inventory: models.Inventory{Type: "finite", Quantity: variant.Inventory},
				Values:    combination,
			})
			return
		}

		placeholderSKU := product.SKU + "-" + strings.Join(values, "-")
		skus = append(skus, models.DestinationSKU{
			SKU:         placeholderSKU,
			Price:       models.Price{Value: mapping.ToMinorUnits(product.BasePrice()), Unit: "USD"},
			Inventory:   models.Inventory{Type: "finite", Quantity: 0},
			Values:      combination,
			Placeholder: true,
		})
		placeholders++
	})

	if placeholders > 0 {
		b.logger.Warn("synthesized %d placeholder SKUs for %s (observed %d of %d combinations)",
			placeholders, product.SKU, len(product.Variants), len(skus))
	}
	return skus, dimensions
}

// simpleSKU emits the single destination SKU for a product with no variant
// matrix: the product's own SKU, base price and no dimension values.
func (b *Builder) simpleSKU(product *models.SourceProduct) []models.DestinationSKU {
	return []models.DestinationSKU{{
		SKU:       product.SKU,
		Price:     models.Price{Value: mapping.ToMinorUnits(product.BasePrice()), Unit: "USD"},
		Inventory: models.Inventory{Type: "finite", Quantity: 0},
		Values:    map[string]string{},
	}}
}

// forEachCombination visits the Cartesian product of the dimensions' value
// sets in dimension order then value-sort order.
func forEachCombination(dimensions []Dimension, visit func(values []string)) {
	if len(dimensions) == 0 {
		return
	}
	indices := make([]int, len(dimensions))
	values := make([]string, len(dimensions))
	for {
		for i, d := range dimensions {
			values[i] = d.Values[indices[i]]
		}
		visit(values)

		pos := len(dimensions) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(dimensions[pos].Values) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			return
		}
	}
}
