package mapping

import (
	"encoding/json"
	"fmt"
	"os"
)

// FieldMapping routes one source field to one destination field with its
// semantic type and write policy.
type FieldMapping struct {
	SourceField      string      `json:"source_field"`
	DestinationField string      `json:"destination_field"`
	Type             FieldType   `json:"type"`
	Required         bool        `json:"required"`
	Clearable        bool        `json:"clearable"`
	Default          interface{} `json:"default,omitempty"`
}

// Document is the persisted field-mapping configuration artifact.
type Document struct {
	FieldMappings    map[string]string `json:"field_mappings"`
	MatchingStrategy string            `json:"matching_strategy,omitempty"`
}

// MappingSet is the validated, in-memory form of the mapping document. It is
// read at process start and replaceable through the administrative re-import
// operation.
type MappingSet struct {
	Mappings         map[string]FieldMapping
	MatchingStrategy string
}

// Source fields that must always resolve to a non-empty value.
var requiredSourceFields = map[string]bool{
	"sku":   true,
	"name":  true,
	"price": true,
}

// LoadSet reads the mapping document from disk. A missing file falls back to
// the default mappings; a malformed or invalid document is a configuration
// failure that must prevent a pass from starting.
func LoadSet(path string) (*MappingSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSet(), nil
		}
		return nil, fmt.Errorf("failed to read mapping document %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid mapping document %s: %w", path, err)
	}
	return NewSet(doc)
}

// NewSet builds a MappingSet from a document, deriving each mapping's
// semantic type from the source field name. Document-typed mappings are
// clearable by policy; no other type is.
func NewSet(doc Document) (*MappingSet, error) {
	set := &MappingSet{
		Mappings:         make(map[string]FieldMapping, len(doc.FieldMappings)),
		MatchingStrategy: doc.MatchingStrategy,
	}
	if set.MatchingStrategy == "" {
		set.MatchingStrategy = "sku"
	}

	for sourceField, destField := range doc.FieldMappings {
		fieldType := ClassifyField(sourceField)
		set.Mappings[sourceField] = FieldMapping{
			SourceField:      sourceField,
			DestinationField: destField,
			Type:             fieldType,
			Required:         requiredSourceFields[sourceField],
			Clearable:        fieldType == FieldTypeDocument,
		}
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// DefaultSet is the fallback configuration used when no mapping document
// exists.
func DefaultSet() *MappingSet {
	set := &MappingSet{
		Mappings:         make(map[string]FieldMapping),
		MatchingStrategy: "sku",
	}
	defaults := []FieldMapping{
		{SourceField: "sku", DestinationField: "sku", Type: FieldTypeText, Required: true},
		{SourceField: "name", DestinationField: "name", Type: FieldTypeText, Required: true},
		{SourceField: "description", DestinationField: "description", Type: FieldTypeRichText},
		{SourceField: "price", DestinationField: "price", Type: FieldTypeNumber, Required: true},
		{SourceField: "safety_data_sheet", DestinationField: "safety-data-sheet", Type: FieldTypeDocument, Clearable: true},
		{SourceField: "specification_sheet", DestinationField: "specification-sheet", Type: FieldTypeDocument, Clearable: true},
		{SourceField: "web_extended_description", DestinationField: "web-extended-description", Type: FieldTypeRichText},
	}
	for _, m := range defaults {
		set.Mappings[m.SourceField] = m
	}
	return set
}

// Validate enforces the document invariants: destination field names unique
// across all mappings, and the always-required source fields mapped.
func (s *MappingSet) Validate() error {
	seen := make(map[string]string, len(s.Mappings))
	for _, m := range s.Mappings {
		if prior, dup := seen[m.DestinationField]; dup {
			return fmt.Errorf("duplicate destination field %q mapped from both %q and %q",
				m.DestinationField, prior, m.SourceField)
		}
		seen[m.DestinationField] = m.SourceField
	}

	for _, field := range []string{"sku", "name"} {
		if _, ok := s.Mappings[field]; !ok {
			return fmt.Errorf("missing required field mapping: %s", field)
		}
	}
	return nil
}

// Export returns the document form of the set for the export endpoint.
func (s *MappingSet) Export() Document {
	doc := Document{
		FieldMappings:    make(map[string]string, len(s.Mappings)),
		MatchingStrategy: s.MatchingStrategy,
	}
	for sourceField, m := range s.Mappings {
		doc.FieldMappings[sourceField] = m.DestinationField
	}
	return doc
}

// Summary reports mapping counts per field type for the monitoring surface.
func (s *MappingSet) Summary() map[string]interface{} {
	typeCounts := make(map[string]int)
	required := 0
	for _, m := range s.Mappings {
		typeCounts[string(m.Type)]++
		if m.Required {
			required++
		}
	}
	return map[string]interface{}{
		"total_mappings":    len(s.Mappings),
		"matching_strategy": s.MatchingStrategy,
		"field_types":       typeCounts,
		"required_fields":   required,
	}
}
