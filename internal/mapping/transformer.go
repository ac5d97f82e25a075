package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToMinorUnits converts a currency amount to integer minor units (cents).
func ToMinorUnits(amount float64) int {
	return int(math.Round(amount * 100))
}

// TransformValue applies the per-type conversion rule for a field. A nil
// result means the value could not be meaningfully transformed and the field
// must be omitted; clearing is decided separately by ShouldClearField.
func TransformValue(value interface{}, fieldType FieldType) interface{} {
	if value == nil {
		return nil
	}

	switch fieldType {
	case FieldTypeNumber:
		return transformNumber(value)
	case FieldTypeBoolean:
		return transformBoolean(value)
	case FieldTypeRichText:
		return transformRichText(value)
	case FieldTypeArray:
		return transformArray(value)
	case FieldTypeImage:
		ref := extractAssetRef(value)
		if ref == nil {
			return nil
		}
		return map[string]interface{}{
			"url": ref.URL,
			"alt": ref.Name,
		}
	case FieldTypeDocument:
		ref := extractAssetRef(value)
		if ref == nil {
			return nil
		}
		return map[string]interface{}{
			"fileId": ref.FileID,
			"url":    ref.URL,
			"alt":    ref.Name,
		}
	default: // Text, Date
		return fmt.Sprintf("%v", value)
	}
}

// transformNumber converts currency-like values to integer minor units.
// Strings are stripped of leading currency symbols and thousands separators
// before parsing; non-numeric strings yield nil.
func transformNumber(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		return ToMinorUnits(v)
	case float32:
		return ToMinorUnits(float64(v))
	case int:
		return ToMinorUnits(float64(v))
	case int64:
		return ToMinorUnits(float64(v))
	case string:
		cleaned := strings.TrimSpace(v)
		for _, symbol := range []string{"$", "€", "£"} {
			cleaned = strings.TrimPrefix(cleaned, symbol)
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.TrimSpace(cleaned)
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return ToMinorUnits(parsed)
	}
	return nil
}

var truthyStrings = map[string]bool{
	"true":   true,
	"1":      true,
	"yes":    true,
	"on":     true,
	"active": true,
}

func transformBoolean(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return truthyStrings[strings.ToLower(v)]
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	}
	return false
}

func transformRichText(value interface{}) string {
	if s, ok := value.(string); ok {
		return CleanDescription(s)
	}
	return fmt.Sprintf("%v", value)
}

func transformArray(value interface{}) interface{} {
	switch v := value.(type) {
	case []interface{}:
		return v
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]interface{}, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return []interface{}{value}
}

// ShouldClearField decides whether a field's state in the source must become
// an explicit clear (empty string) in the destination instead of a no-op.
// Clearing requires all of: the mapping is clearable, the field is not
// required, the mapping is Document-typed, and the source key is present but
// holds an explicit empty value. Absence of the key entirely is omission,
// not clearing.
func ShouldClearField(m FieldMapping, record map[string]interface{}) bool {
	if !m.Clearable || m.Required || m.Type != FieldTypeDocument {
		return false
	}
	raw, present := record[m.SourceField]
	if !present {
		return false
	}
	return isExplicitlyEmpty(raw)
}

func isExplicitlyEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == "" || strings.EqualFold(v, "none")
	case map[string]interface{}:
		for _, inner := range v {
			if !isFalsy(inner) {
				return false
			}
		}
		return true
	}
	return false
}

func isFalsy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	case int:
		return v == 0
	}
	return false
}
