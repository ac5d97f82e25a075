package mapping

import (
	"sort"
	"strings"
)

// Heuristic thresholds for structural attribute-container detection. A map
// qualifies when it has more than containerMinEntries entries, over
// containerStringKeyRatio of its keys are strings and over
// containerScalarValueRatio of its values are scalars or lists.
const (
	containerMinEntries       = 3
	containerStringKeyRatio   = 0.8
	containerScalarValueRatio = 0.6
)

// containerKeyPatterns are key names (or name fragments) that mark a nested
// map as an attributes container regardless of its shape.
var containerKeyPatterns = []string{
	"attributes",
	"custom_attributes",
	"customattributes",
	"product_attributes",
	"productattributes",
	"additional_attributes",
	"additionalattributes",
	"field_data",
	"fielddata",
	"properties",
	"metadata",
	"custom_fields",
	"customfields",
	"extra_data",
	"extradata",
	"detailed_attributes",
}

// ExtractAttributes recursively walks an arbitrarily nested record and
// flattens every sub-structure that looks like an attributes container into
// one flat key/value map. Later containers override earlier ones on key
// collision. Traversal visits map keys in sorted order so collisions resolve
// deterministically. Inputs are assumed tree-shaped (they originate from
// JSON decoding).
func ExtractAttributes(record map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{})
	extractFromMap(record, flat)
	return flat
}

func extractFromMap(data map[string]interface{}, flat map[string]interface{}) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := data[key]
		if IsAttributesContainer(key, value) {
			container := value.(map[string]interface{})
			for attrKey, attrValue := range container {
				if attrValue != nil {
					flat[attrKey] = attrValue
				}
			}
			continue
		}

		switch v := value.(type) {
		case map[string]interface{}:
			extractFromMap(v, flat)
		case []interface{}:
			for _, item := range v {
				if nested, ok := item.(map[string]interface{}); ok {
					extractFromMap(nested, flat)
				}
			}
		}
	}
}

// IsAttributesContainer reports whether a key/value pair represents an
// attributes container, either by key name or by the structural heuristic.
func IsAttributesContainer(key string, value interface{}) bool {
	m, ok := value.(map[string]interface{})
	if !ok {
		return false
	}

	keyLower := strings.ToLower(key)
	for _, pattern := range containerKeyPatterns {
		if strings.Contains(keyLower, pattern) || strings.Contains(pattern, keyLower) {
			return len(m) > 0
		}
	}

	// Structural detection: a map with many string keys holding mostly
	// scalar or list values.
	if len(m) <= containerMinEntries {
		return false
	}
	stringKeys := 0
	simpleValues := 0
	for _, v := range m {
		stringKeys++ // map[string]interface{} keys are always strings
		if isSimpleValue(v) {
			simpleValues++
		}
	}
	total := float64(len(m))
	return float64(stringKeys)/total > containerStringKeyRatio &&
		float64(simpleValues)/total > containerScalarValueRatio
}

func isSimpleValue(v interface{}) bool {
	switch v.(type) {
	case nil, string, bool, int, int64, float64, []interface{}, []string:
		return true
	}
	return false
}
