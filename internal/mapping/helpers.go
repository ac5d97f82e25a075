package mapping

import (
	"regexp"
	"strings"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace   = regexp.MustCompile(`\s+`)
	slugHyphenRuns   = regexp.MustCompile(`-+`)
	skuInvalidChars  = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	maxSlugLength    = 50
)

// GenerateSlug derives a URL-friendly slug from a product name.
func GenerateSlug(name string) string {
	slug := slugInvalidChars.ReplaceAllString(strings.ToLower(name), "")
	slug = slugWhitespace.ReplaceAllString(strings.TrimSpace(slug), "-")
	slug = slugHyphenRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.Trim(slug, "-")
	}
	return slug
}

// SanitizeSKU normalizes a SKU so it is valid in both systems.
func SanitizeSKU(sku string) string {
	if sku == "" {
		return ""
	}
	sanitized := skuInvalidChars.ReplaceAllString(strings.TrimSpace(sku), "-")
	sanitized = slugHyphenRuns.ReplaceAllString(sanitized, "-")
	return strings.Trim(sanitized, "-")
}

// CleanDescription collapses whitespace runs in a product description.
func CleanDescription(description string) string {
	if description == "" {
		return ""
	}
	return whitespaceRuns.ReplaceAllString(strings.TrimSpace(description), " ")
}
