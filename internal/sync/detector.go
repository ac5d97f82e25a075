package sync

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"pimsync/internal/models"
)

// ContentHash computes a stable digest over everything that influences the
// destination write: mapped fields on both tiers, price and the variant set.
// Two passes over unchanged source data produce identical hashes.
func ContentHash(parentFields, childFields map[string]interface{}, product *models.SourceProduct) string {
	snapshot := map[string]interface{}{
		"fields": parentFields,
	}
	if len(childFields) > 0 {
		snapshot["child_fields"] = childFields
	}
	if product.Price != nil {
		snapshot["price"] = *product.Price
	}
	if len(product.Variants) > 0 {
		variants := make([]map[string]interface{}, 0, len(product.Variants))
		for _, v := range sortedVariants(product.Variants) {
			entry := map[string]interface{}{
				"sku":        v.SKU,
				"attributes": v.Attributes,
				"inventory":  v.Inventory,
			}
			if v.Price != nil {
				entry["price"] = *v.Price
			}
			variants = append(variants, entry)
		}
		snapshot["variants"] = variants
	}

	// json.Marshal emits map keys in sorted order, which makes the
	// digest independent of map iteration order.
	data, err := json.Marshal(snapshot)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func sortedVariants(variants []models.SourceVariant) []models.SourceVariant {
	sorted := make([]models.SourceVariant, len(variants))
	copy(sorted, variants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SKU < sorted[j].SKU })
	return sorted
}

// DiffFields compares desired field values against the destination's
// current values and returns only the fields that actually differ, plus
// the names of fields left untouched. Strings are compared after trimming;
// asset objects are compared by URL.
func DiffFields(desired, current map[string]interface{}) (map[string]interface{}, []string) {
	changed := make(map[string]interface{})
	var unchanged []string

	keys := make([]string, 0, len(desired))
	for key := range desired {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		desiredValue := desired[key]
		currentValue, exists := current[key]
		if !exists {
			changed[key] = desiredValue
			continue
		}
		if fieldsEqual(desiredValue, currentValue) {
			unchanged = append(unchanged, key)
		} else {
			changed[key] = desiredValue
		}
	}
	return changed, unchanged
}

func fieldsEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}

	// Asset objects carry volatile metadata (upload IDs, alt text); the
	// URL is the identity.
	if urlA, ok := assetURL(a); ok {
		if urlB, ok := assetURL(b); ok {
			return urlA == urlB
		}
	}

	switch valueA := a.(type) {
	case string:
		if valueB, ok := b.(string); ok {
			return strings.TrimSpace(valueA) == strings.TrimSpace(valueB)
		}
	}

	dataA, errA := json.Marshal(normalizeNumbers(a))
	dataB, errB := json.Marshal(normalizeNumbers(b))
	if errA != nil || errB != nil {
		return false
	}
	return string(dataA) == string(dataB)
}

func assetURL(value interface{}) (string, bool) {
	asset, ok := value.(map[string]interface{})
	if !ok {
		return "", false
	}
	url, ok := asset["url"].(string)
	if !ok || url == "" {
		return "", false
	}
	return strings.TrimSpace(url), true
}

// normalizeNumbers coerces ints to float64 so 100 and 100.0 compare equal
// after the JSON round-trip destination reads go through.
func normalizeNumbers(value interface{}) interface{} {
	switch typed := value.(type) {
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case map[string]interface{}:
		normalized := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			normalized[k] = normalizeNumbers(v)
		}
		return normalized
	case []interface{}:
		normalized := make([]interface{}, len(typed))
		for i, v := range typed {
			normalized[i] = normalizeNumbers(v)
		}
		return normalized
	}
	return value
}
