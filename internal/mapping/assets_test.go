package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAssetRefFromList(t *testing.T) {
	ref := extractAssetRef([]interface{}{
		"",
		"https://cdn.example.com/file/first.png",
		"https://cdn.example.com/file/second.png",
	})
	require.NotNil(t, ref)
	assert.Equal(t, "https://cdn.example.com/file/first.png", ref.URL)
}

func TestExtractAssetRefObjectLiteral(t *testing.T) {
	ref := extractAssetRef(`{"url": "https://cdn.example.com/thumb/doc.pdf", "name": "Doc"}`)
	require.NotNil(t, ref)
	assert.Equal(t, "https://cdn.example.com/file/doc.pdf", ref.URL)
	assert.Equal(t, "Doc", ref.Name)
}

func TestExtractAssetRefSingleQuotedLiteral(t *testing.T) {
	ref := extractAssetRef(`{'url': 'https://cdn.example.com/file/doc.pdf'}`)
	require.NotNil(t, ref)
	assert.Equal(t, "https://cdn.example.com/file/doc.pdf", ref.URL)
}

func TestExtractAssetRefRejectsGarbage(t *testing.T) {
	assert.Nil(t, extractAssetRef("{not json"))
	assert.Nil(t, extractAssetRef(""))
	assert.Nil(t, extractAssetRef(12345))
	assert.Nil(t, extractAssetRef(map[string]interface{}{"name": "no url here"}))
}

func TestIsPlaceholderURL(t *testing.T) {
	assert.True(t, IsPlaceholderURL("https://cdn.example.com/template/x.png"))
	assert.True(t, IsPlaceholderURL("https://cdn.example.com/img/DEFAULT.png"))
	assert.True(t, IsPlaceholderURL("https://cdn.example.com/placeholder.jpg"))
	assert.False(t, IsPlaceholderURL("https://cdn.example.com/file/widget.png"))
}

func TestNormalizeAssetURLRewritesThumbOnce(t *testing.T) {
	assert.Equal(t,
		"https://cdn.example.com/file/a/thumb/b.png",
		normalizeAssetURL("https://cdn.example.com/thumb/a/thumb/b.png"))
}
