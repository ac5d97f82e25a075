package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pimsync/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestContentHashStable(t *testing.T) {
	fields := map[string]interface{}{"name": "Widget", "description": "A widget."}
	product := &models.SourceProduct{
		ID:    "p1",
		SKU:   "WID",
		Price: floatPtr(19.99),
		Variants: []models.SourceVariant{
			{ID: "v2", SKU: "WID-M", Attributes: map[string]string{"size": "M"}, Inventory: 2},
			{ID: "v1", SKU: "WID-S", Attributes: map[string]string{"size": "S"}, Inventory: 5},
		},
	}

	first := ContentHash(fields, nil, product)
	require.NotEmpty(t, first)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ContentHash(fields, nil, product))
	}

	// Variant order must not influence the hash.
	reordered := *product
	reordered.Variants = []models.SourceVariant{product.Variants[1], product.Variants[0]}
	assert.Equal(t, first, ContentHash(fields, nil, &reordered))
}

func TestContentHashChangesWithContent(t *testing.T) {
	fields := map[string]interface{}{"name": "Widget"}
	product := &models.SourceProduct{ID: "p1", SKU: "WID", Price: floatPtr(10)}

	base := ContentHash(fields, nil, product)

	renamed := ContentHash(map[string]interface{}{"name": "Widget II"}, nil, product)
	assert.NotEqual(t, base, renamed)

	repriced := *product
	repriced.Price = floatPtr(12)
	assert.NotEqual(t, base, ContentHash(fields, nil, &repriced))

	restocked := *product
	restocked.Variants = []models.SourceVariant{
		{ID: "v1", SKU: "WID-S", Attributes: map[string]string{"size": "S"}, Inventory: 5},
	}
	assert.NotEqual(t, base, ContentHash(fields, nil, &restocked))
}

func TestContentHashChangesWithChildFields(t *testing.T) {
	fields := map[string]interface{}{"name": "Widget"}
	product := &models.SourceProduct{ID: "p1", SKU: "WID"}

	image := func(url string) map[string]interface{} {
		return map[string]interface{}{"main-image": map[string]interface{}{"url": url, "alt": "widget.jpg"}}
	}
	base := ContentHash(fields, image("https://cdn.example.com/file/widget.jpg"), product)
	require.NotEmpty(t, base)

	// A change on a child-tier field alone must change the digest, or the
	// cached-hash short circuit would leave the destination stale.
	assert.NotEqual(t, base, ContentHash(fields, image("https://cdn.example.com/file/widget-v2.jpg"), product))
	assert.Equal(t, base, ContentHash(fields, image("https://cdn.example.com/file/widget.jpg"), product))
}

func TestDiffFieldsOnlyChanged(t *testing.T) {
	desired := map[string]interface{}{
		"name":        "Widget",
		"description": "New copy.",
		"shippable":   true,
	}
	current := map[string]interface{}{
		"name":        "Widget",
		"description": "Old copy.",
		"shippable":   true,
		"extra":       "destination-only field",
	}

	changed, unchanged := DiffFields(desired, current)
	assert.Equal(t, map[string]interface{}{"description": "New copy."}, changed)
	assert.ElementsMatch(t, []string{"name", "shippable"}, unchanged)
}

func TestDiffFieldsTrimNormalizedStrings(t *testing.T) {
	changed, unchanged := DiffFields(
		map[string]interface{}{"name": "Widget "},
		map[string]interface{}{"name": " Widget"},
	)
	assert.Empty(t, changed)
	assert.Equal(t, []string{"name"}, unchanged)
}

func TestDiffFieldsAssetsCompareByURL(t *testing.T) {
	desired := map[string]interface{}{
		"safety-data-sheet": map[string]interface{}{
			"url": "https://cdn.example.com/file/sds.pdf",
			"alt": "sds.pdf",
		},
	}
	current := map[string]interface{}{
		"safety-data-sheet": map[string]interface{}{
			"url":    "https://cdn.example.com/file/sds.pdf",
			"alt":    "Safety Data Sheet",
			"fileId": "f-999",
		},
	}

	changed, unchanged := DiffFields(desired, current)
	assert.Empty(t, changed)
	assert.Equal(t, []string{"safety-data-sheet"}, unchanged)
}

func TestDiffFieldsNumericJSONRoundTrip(t *testing.T) {
	// Destination reads come back through JSON, so 1999 arrives as a
	// float64. That must not register as a change.
	changed, _ := DiffFields(
		map[string]interface{}{"price": map[string]interface{}{"value": 1999, "unit": "USD"}},
		map[string]interface{}{"price": map[string]interface{}{"value": 1999.0, "unit": "USD"}},
	)
	assert.Empty(t, changed)
}

func TestDiffFieldsMissingKeyIsChange(t *testing.T) {
	changed, _ := DiffFields(
		map[string]interface{}{"warranty-information": "2 years"},
		map[string]interface{}{},
	)
	assert.Equal(t, map[string]interface{}{"warranty-information": "2 years"}, changed)
}
