package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetDerivesTypes(t *testing.T) {
	set, err := NewSet(Document{FieldMappings: map[string]string{
		"sku":               "sku",
		"name":              "name",
		"price":             "price",
		"safety_data_sheet": "safety-data-sheet",
		"main_image":        "main-image",
	}})
	require.NoError(t, err)

	assert.Equal(t, FieldTypeText, set.Mappings["sku"].Type)
	assert.Equal(t, FieldTypeNumber, set.Mappings["price"].Type)
	assert.Equal(t, FieldTypeDocument, set.Mappings["safety_data_sheet"].Type)
	assert.Equal(t, FieldTypeImage, set.Mappings["main_image"].Type)

	// Only Document-typed mappings are clearable.
	assert.True(t, set.Mappings["safety_data_sheet"].Clearable)
	assert.False(t, set.Mappings["main_image"].Clearable)

	// sku/name/price are always required.
	assert.True(t, set.Mappings["sku"].Required)
	assert.True(t, set.Mappings["name"].Required)
	assert.True(t, set.Mappings["price"].Required)

	assert.Equal(t, "sku", set.MatchingStrategy)
}

func TestNewSetRejectsDuplicateDestinations(t *testing.T) {
	_, err := NewSet(Document{FieldMappings: map[string]string{
		"sku":   "sku",
		"name":  "name",
		"title": "name",
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate destination field")
}

func TestNewSetRequiresCoreMappings(t *testing.T) {
	_, err := NewSet(Document{FieldMappings: map[string]string{
		"description": "description",
	}})
	require.Error(t, err)
}

func TestLoadSetMissingFileFallsBack(t *testing.T) {
	set, err := LoadSet(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSet().Mappings, set.Mappings)
}

func TestLoadSetMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field_mappings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadSet(path)
	require.Error(t, err)
}

func TestLoadSetReadsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field_mappings.json")
	doc := `{"field_mappings": {"sku": "sku", "name": "name"}, "matching_strategy": "id"}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	set, err := LoadSet(path)
	require.NoError(t, err)
	assert.Len(t, set.Mappings, 2)
	assert.Equal(t, "id", set.MatchingStrategy)
}

func TestExportRoundTrip(t *testing.T) {
	original := Document{
		FieldMappings:    map[string]string{"sku": "sku", "name": "name"},
		MatchingStrategy: "sku",
	}
	set, err := NewSet(original)
	require.NoError(t, err)
	assert.Equal(t, original, set.Export())
}

func TestSummary(t *testing.T) {
	summary := DefaultSet().Summary()
	assert.Equal(t, len(DefaultSet().Mappings), summary["total_mappings"])
	assert.Equal(t, "sku", summary["matching_strategy"])
	assert.Equal(t, 3, summary["required_fields"])
}
