package variants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pimsync/internal/logger"
	"pimsync/internal/models"
)

func testBuilder() *Builder {
	return NewBuilder(logger.New("error"))
}

func floatPtr(v float64) *float64 { return &v }

func variantProduct() *models.SourceProduct {
	return &models.SourceProduct{
		ID:    "p1",
		SKU:   "WID",
		Price: floatPtr(10.00),
		Variants: []models.SourceVariant{
			{ID: "v1", SKU: "WID-RED-S", Attributes: map[string]string{"color": "red", "size": "S"}, Price: floatPtr(11.00), Inventory: 5},
			{ID: "v2", SKU: "WID-RED-M", Attributes: map[string]string{"color": "red", "size": "M"}, Price: floatPtr(12.00), Inventory: 2},
			{ID: "v3", SKU: "WID-BLUE-S", Attributes: map[string]string{"color": "blue", "size": "S"}, Inventory: 7},
			{ID: "v4", SKU: "WID-BLUE-M", Attributes: map[string]string{"color": "blue", "size": "M"}, Inventory: 1},
			{ID: "v5", SKU: "WID-GREEN-S", Attributes: map[string]string{"color": "green", "size": "S"}, Inventory: 3},
		},
	}
}

func TestExtractDimensionsSorted(t *testing.T) {
	dims := testBuilder().ExtractDimensions(variantProduct().Variants)
	require.Len(t, dims, 2)
	assert.Equal(t, "color", dims[0].Name)
	assert.Equal(t, []string{"blue", "green", "red"}, dims[0].Values)
	assert.Equal(t, "size", dims[1].Name)
	assert.Equal(t, []string{"M", "S"}, dims[1].Values)
}

func TestBuildFullMatrix(t *testing.T) {
	// 3 colors x 2 sizes observed through 5 variants: the matrix has 6
	// cells, one synthesized.
	skus, dims := testBuilder().Build(variantProduct())
	require.Len(t, dims, 2)
	require.Len(t, skus, 6)

	bySKU := make(map[string]models.DestinationSKU, len(skus))
	placeholders := 0
	for _, sku := range skus {
		bySKU[sku.SKU] = sku
		if sku.Placeholder {
			placeholders++
		}
	}
	assert.Equal(t, 1, placeholders)

	// Matched combinations carry the real variant data.
	red := bySKU["WID-RED-S"]
	assert.Equal(t, 1100, red.Price.Value)
	assert.Equal(t, 5, red.Inventory.Quantity)
	assert.Equal(t, map[string]string{"color": "red", "size": "S"}, red.Values)

	// Variant without its own price inherits the base price.
	blue := bySKU["WID-BLUE-S"]
	assert.Equal(t, 1000, blue.Price.Value)

	// The green/M combination was never observed: synthesized SKU name,
	// zero stock, base price.
	missing, ok := bySKU["WID-green-M"]
	require.True(t, ok, "expected synthesized SKU for the unobserved combination")
	assert.True(t, missing.Placeholder)
	assert.Equal(t, 0, missing.Inventory.Quantity)
	assert.Equal(t, 1000, missing.Price.Value)
}

func TestBuildDeterministicOrder(t *testing.T) {
	first, _ := testBuilder().Build(variantProduct())
	for i := 0; i < 10; i++ {
		again, _ := testBuilder().Build(variantProduct())
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].SKU, again[j].SKU)
		}
	}
}

func TestBuildWithoutVariants(t *testing.T) {
	product := &models.SourceProduct{ID: "p1", SKU: "WID", Price: floatPtr(19.99)}
	skus, dims := testBuilder().Build(product)

	assert.Empty(t, dims)
	require.Len(t, skus, 1)
	assert.Equal(t, "WID", skus[0].SKU)
	assert.Equal(t, 1999, skus[0].Price.Value)
	assert.Equal(t, 0, skus[0].Inventory.Quantity)
	assert.False(t, skus[0].Placeholder)
}

func TestBuildWithAttributelessVariants(t *testing.T) {
	// Variants that expose no distinguishing attributes pass validation
	// (the dimension set is uniformly empty) but span no matrix; the
	// product must still come out as a single sellable SKU.
	product := &models.SourceProduct{
		ID:    "p1",
		SKU:   "WID",
		Price: floatPtr(10.00),
		Variants: []models.SourceVariant{
			{ID: "v1", SKU: "WID-1", Attributes: map[string]string{}},
		},
	}
	require.Empty(t, testBuilder().Validate(product))

	skus, dims := testBuilder().Build(product)
	assert.Empty(t, dims)
	require.Len(t, skus, 1)
	assert.Equal(t, "WID", skus[0].SKU)
	assert.Equal(t, 1000, skus[0].Price.Value)
	assert.False(t, skus[0].Placeholder)
}

func TestExtractDimensionsTrimsValues(t *testing.T) {
	// " red " and "red" are the same dimension value; untrimmed storage
	// would give the same source variant two matrix cells.
	variants := []models.SourceVariant{
		{ID: "v1", SKU: "WID-RED", Attributes: map[string]string{"color": " red "}},
		{ID: "v2", SKU: "WID-RED-2", Attributes: map[string]string{"color": "red"}},
	}
	dims := testBuilder().ExtractDimensions(variants)
	require.Len(t, dims, 1)
	assert.Equal(t, []string{"red"}, dims[0].Values)
}

func TestValidate(t *testing.T) {
	b := testBuilder()

	assert.Empty(t, b.Validate(variantProduct()))

	missingSKU := &models.SourceProduct{Variants: []models.SourceVariant{
		{ID: "v1", SKU: "", Attributes: map[string]string{"color": "red"}},
	}}
	issues := b.Validate(missingSKU)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "missing SKU")

	duplicate := &models.SourceProduct{Variants: []models.SourceVariant{
		{ID: "v1", SKU: "X", Attributes: map[string]string{"color": "red"}},
		{ID: "v2", SKU: "X", Attributes: map[string]string{"color": "blue"}},
	}}
	issues = b.Validate(duplicate)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "duplicate variant SKU")

	inconsistent := &models.SourceProduct{Variants: []models.SourceVariant{
		{ID: "v1", SKU: "A", Attributes: map[string]string{"color": "red", "size": "S"}},
		{ID: "v2", SKU: "B", Attributes: map[string]string{"color": "blue"}},
	}}
	issues = b.Validate(inconsistent)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "missing attributes: size")
}

func TestComboKeyNormalization(t *testing.T) {
	a := keyFor(map[string]string{"Color": " red ", "size": "S"})
	b := keyFor(map[string]string{"size": "S", "color": "red"})
	assert.Equal(t, a, b)

	// Distinct values must never collide, even when hyphenated
	// concatenation would be ambiguous.
	c := keyFor(map[string]string{"size": "S-M"})
	d := keyFor(map[string]string{"size": "S", "x": "M"})
	assert.NotEqual(t, c, d)
}

func TestProperties(t *testing.T) {
	props := testBuilder().Properties([]Dimension{
		{Name: "color", Values: []string{"blue", "red"}},
	})
	require.Len(t, props, 1)
	assert.Equal(t, "color", props[0].Name)
	assert.Equal(t, []string{"blue", "red"}, props[0].Values)
}
