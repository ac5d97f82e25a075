package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyField(t *testing.T) {
	tests := []struct {
		field    string
		expected FieldType
	}{
		{"main_image", FieldTypeImage},
		{"product_photo", FieldTypeImage},
		{"img_url", FieldTypeImage},
		{"safety_data_sheet", FieldTypeDocument},
		{"instruction_manual", FieldTypeDocument},
		{"spec_pdf", FieldTypeDocument},
		{"description", FieldTypeRichText},
		{"web_content", FieldTypeRichText},
		{"price", FieldTypeNumber},
		{"shipping_weight", FieldTypeNumber},
		{"created_at", FieldTypeDate},
		{"is_active", FieldTypeBoolean},
		{"visible_online", FieldTypeBoolean},
		{"brand", FieldTypeText},
		{"sku", FieldTypeText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyField(tt.field), "field %s", tt.field)
	}
}

func TestClassifyFieldPrecedence(t *testing.T) {
	// "image_description" matches both the image and rich-text groups;
	// the image group is checked first.
	assert.Equal(t, FieldTypeImage, ClassifyField("image_description"))
	// "document_created" matches document before date.
	assert.Equal(t, FieldTypeDocument, ClassifyField("document_created"))
}

func TestClassifyFieldCaseInsensitive(t *testing.T) {
	assert.Equal(t, FieldTypeImage, ClassifyField("Main_IMAGE"))
	assert.Equal(t, FieldTypeNumber, ClassifyField("PRICE"))
}
