package mapping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "premium-widget-50", GenerateSlug("  Premium Widget -- 50%  "))
	assert.Equal(t, "acme-rotary-pump", GenerateSlug("ACME Rotary Pump"))
	assert.Equal(t, "", GenerateSlug("!!!"))
}

func TestGenerateSlugLengthLimit(t *testing.T) {
	slug := GenerateSlug(strings.Repeat("widget ", 20))
	assert.LessOrEqual(t, len(slug), 50)
	assert.False(t, strings.HasSuffix(slug, "-"))
}

func TestSanitizeSKU(t *testing.T) {
	assert.Equal(t, "AB-12-3", SanitizeSKU("AB 12/3"))
	assert.Equal(t, "WID_100-B", SanitizeSKU("  WID_100-B  "))
	assert.Equal(t, "", SanitizeSKU(""))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "A fine widget.", CleanDescription("  A   fine\n\twidget.  "))
	assert.Equal(t, "", CleanDescription(""))
}
