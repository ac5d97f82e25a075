package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pimsync/internal/logger"
	"pimsync/internal/models"
)

func testMapper(t *testing.T) *Mapper {
	t.Helper()
	return NewMapper(DefaultSet(), logger.New("error"))
}

func TestBuildFieldSet(t *testing.T) {
	m := testMapper(t)
	product := &models.SourceProduct{
		ID:    "p1",
		SKU:   "WID-1",
		Label: "Widget One",
		Attributes: map[string]interface{}{
			"sku":         "WID-1",
			"name":        "Widget One",
			"price":       19.99,
			"description": "  A fine widget.  ",
		},
	}

	fs, err := m.BuildFieldSet(product)
	require.NoError(t, err)

	assert.Equal(t, "Widget One", fs.Parent["name"])
	assert.Equal(t, "widget-one", fs.Parent["slug"])
	assert.Equal(t, "A fine widget.", fs.Parent["description"])
	assert.Equal(t, "WID-1", fs.Child["sku"])
	assert.Equal(t, 1999, fs.Child["price"])
	assert.Empty(t, fs.Skipped)
}

func TestBuildFieldSetMergesExtractedDetails(t *testing.T) {
	m := testMapper(t)
	product := &models.SourceProduct{
		ID:  "p1",
		SKU: "WID-1",
		Attributes: map[string]interface{}{
			"sku":   "WID-1",
			"name":  "Widget",
			"price": 10.0,
		},
		Details: map[string]interface{}{
			"attributes": map[string]interface{}{
				"web_extended_description": "Extended copy.",
				// The details endpoint carries richer data and wins
				// over the search payload.
				"name": "Widget Deluxe",
			},
		},
	}

	fs, err := m.BuildFieldSet(product)
	require.NoError(t, err)
	assert.Equal(t, "Widget Deluxe", fs.Parent["name"])
	assert.Equal(t, "Extended copy.", fs.Parent["web-extended-description"])
}

func TestBuildFieldSetClearsExplicitlyEmptyDocument(t *testing.T) {
	m := testMapper(t)
	product := &models.SourceProduct{
		ID:  "p1",
		SKU: "WID-1",
		Attributes: map[string]interface{}{
			"sku":               "WID-1",
			"name":              "Widget",
			"price":             10.0,
			"safety_data_sheet": "",
		},
	}

	fs, err := m.BuildFieldSet(product)
	require.NoError(t, err)

	value, present := fs.Parent["safety-data-sheet"]
	assert.True(t, present, "present-but-empty document must clear")
	assert.Equal(t, "", value)

	// An absent document field is omitted, not cleared.
	delete(product.Attributes, "safety_data_sheet")
	fs, err = m.BuildFieldSet(product)
	require.NoError(t, err)
	_, present = fs.Parent["safety-data-sheet"]
	assert.False(t, present, "absent document must be omitted")
}

func TestBuildFieldSetSynthesizesIdentityFields(t *testing.T) {
	m := testMapper(t)
	product := &models.SourceProduct{
		ID:    "p1",
		SKU:   "WID 1/A",
		Label: "Widget One",
		Attributes: map[string]interface{}{
			"price": 10.0,
		},
	}

	fs, err := m.BuildFieldSet(product)
	require.NoError(t, err)
	assert.Equal(t, "Widget One", fs.Parent["name"])
	assert.Equal(t, "widget-one", fs.Parent["slug"])
	assert.Equal(t, "WID-1-A", fs.Child["sku"])
}

func TestBuildFieldSetMissingRequiredField(t *testing.T) {
	m := testMapper(t)
	product := &models.SourceProduct{
		ID:  "p1",
		SKU: "WID-1",
		Attributes: map[string]interface{}{
			"sku":  "WID-1",
			"name": "Widget",
			// no price anywhere
		},
	}

	_, err := m.BuildFieldSet(product)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestBuildFieldSetDropsUnparseableRequiredValue(t *testing.T) {
	m := testMapper(t)
	product := &models.SourceProduct{
		ID:  "p1",
		SKU: "WID-1",
		Attributes: map[string]interface{}{
			"sku":   "WID-1",
			"name":  "Widget",
			"price": "call for pricing",
		},
	}

	_, err := m.BuildFieldSet(product)
	require.Error(t, err)
}

func TestReloadSwapsSet(t *testing.T) {
	m := testMapper(t)
	next, err := NewSet(Document{FieldMappings: map[string]string{
		"sku":  "sku",
		"name": "name",
	}})
	require.NoError(t, err)

	m.Reload(next)
	assert.Len(t, m.Set().Mappings, 2)
}

func TestBuildFieldSetUsesDefaults(t *testing.T) {
	set := DefaultSet()
	fm := set.Mappings["description"]
	fm.Default = "No description available."
	set.Mappings["description"] = fm

	m := NewMapper(set, logger.New("error"))
	product := &models.SourceProduct{
		ID:  "p1",
		SKU: "WID-1",
		Attributes: map[string]interface{}{
			"sku":   "WID-1",
			"name":  "Widget",
			"price": 10.0,
		},
	}

	fs, err := m.BuildFieldSet(product)
	require.NoError(t, err)
	assert.Equal(t, "No description available.", fs.Parent["description"])
}
