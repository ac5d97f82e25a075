package mapping

import "strings"

// FieldType is the semantic type assigned to a mapped field. It drives the
// per-type transform rules and the clearing policy.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeRichText FieldType = "rich_text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeArray    FieldType = "array"
	FieldTypeImage    FieldType = "image"
	FieldTypeDocument FieldType = "document"
)

// classifierGroups is ordered: the first group whose keyword appears in the
// field name wins, so "image_description" classifies as Image, not RichText.
var classifierGroups = []struct {
	fieldType FieldType
	keywords  []string
}{
	{FieldTypeImage, []string{"image", "photo", "picture", "img"}},
	{FieldTypeDocument, []string{"pdf", "document", "sheet", "manual"}},
	{FieldTypeRichText, []string{"description", "content", "text"}},
	{FieldTypeNumber, []string{"price", "cost", "weight", "quantity"}},
	{FieldTypeDate, []string{"date", "time", "created", "updated"}},
	{FieldTypeBoolean, []string{"active", "enabled", "visible"}},
}

// ClassifyField detects a field's semantic type from its name. Matching is
// case-insensitive substring matching; fields matching no group are Text.
func ClassifyField(fieldName string) FieldType {
	lower := strings.ToLower(fieldName)
	for _, group := range classifierGroups {
		for _, keyword := range group.keywords {
			if strings.Contains(lower, keyword) {
				return group.fieldType
			}
		}
	}
	return FieldTypeText
}
