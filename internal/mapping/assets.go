package mapping

import (
	"encoding/json"
	"strings"
)

// Placeholder markers: any asset URL containing one of these is a vendor
// template/default image and must be treated as absent, not as an error.
var placeholderMarkers = []string{
	"/template/",
	"default",
	"placeholder",
	"no-image",
}

// The PIM serves thumbnail renditions under a thumb path segment; the
// destination needs the full file. Accepted URLs are rewritten once.
const (
	thumbPathSegment = "/thumb/"
	filePathSegment  = "/file/"
)

var assetURLKeys = []string{"url", "file_url", "download_url"}

// assetRef is the URL and metadata extracted from one of the accepted asset
// value shapes.
type assetRef struct {
	URL    string
	Name   string
	FileID string
}

// extractAssetRef accepts a plain URL string, a list of URL strings (first
// valid one wins), a structured object with a url-bearing key, or a
// string-encoded object literal. Returns nil when no usable URL was found or
// the URL is a placeholder.
func extractAssetRef(value interface{}) *assetRef {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "{") {
			if parsed := parseObjectLiteral(s); parsed != nil {
				return extractAssetRef(parsed)
			}
			return nil
		}
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			return nil
		}
		return validateRef(&assetRef{URL: s, Name: lastPathSegment(s)})
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return extractAssetRef(s)
			}
		}
		return nil
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				return extractAssetRef(s)
			}
		}
		return nil
	case map[string]interface{}:
		var url string
		for _, key := range assetURLKeys {
			if s, ok := v[key].(string); ok && s != "" {
				url = s
				break
			}
		}
		if url == "" {
			return nil
		}
		ref := &assetRef{URL: url}
		if name, ok := v["name"].(string); ok {
			ref.Name = name
		} else if name, ok := v["filename"].(string); ok {
			ref.Name = name
		} else {
			ref.Name = lastPathSegment(url)
		}
		if id, ok := v["fileId"].(string); ok {
			ref.FileID = id
		} else if id, ok := v["id"].(string); ok {
			ref.FileID = id
		}
		return validateRef(ref)
	}
	return nil
}

func validateRef(ref *assetRef) *assetRef {
	if IsPlaceholderURL(ref.URL) {
		return nil
	}
	ref.URL = normalizeAssetURL(ref.URL)
	return ref
}

// IsPlaceholderURL reports whether an asset URL points at a vendor
// placeholder rather than real content.
func IsPlaceholderURL(url string) bool {
	lower := strings.ToLower(url)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func normalizeAssetURL(url string) string {
	return strings.Replace(url, thumbPathSegment, filePathSegment, 1)
}

// parseObjectLiteral decodes a string-encoded object. Single-quoted
// literals show up when upstream stringifies records, so those are retried
// with quotes normalized.
func parseObjectLiteral(s string) map[string]interface{} {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		return parsed
	}
	if strings.Contains(s, "'") {
		normalized := strings.ReplaceAll(s, "'", `"`)
		if err := json.Unmarshal([]byte(normalized), &parsed); err == nil {
			return parsed
		}
	}
	return nil
}

func lastPathSegment(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 && idx < len(url)-1 {
		return url[idx+1:]
	}
	return url
}
