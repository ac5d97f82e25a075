package mapping

import (
	"fmt"
	"sort"
	"sync"

	"pimsync/internal/logger"
	"pimsync/internal/models"
)

// FieldSet is the transformed, tier-separated destination field set produced
// for one source product.
type FieldSet struct {
	Parent  map[string]interface{}
	Child   map[string]interface{}
	Skipped []string
}

// Mapper applies the configured field mappings to a source product: flatten
// attribute containers, transform per type, decide clears, then separate by
// tier.
type Mapper struct {
	mu     sync.RWMutex
	set    *MappingSet
	logger *logger.Logger
}

func NewMapper(set *MappingSet, logger *logger.Logger) *Mapper {
	return &Mapper{set: set, logger: logger}
}

// Set returns the active mapping set.
func (m *Mapper) Set() *MappingSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set
}

// Reload swaps in a new validated mapping set (administrative re-import).
func (m *Mapper) Reload(set *MappingSet) {
	m.mu.Lock()
	m.set = set
	m.mu.Unlock()
}

// BuildFieldSet produces the destination field set for one source product.
// Required fields missing after transformation make the entity write invalid.
func (m *Mapper) BuildFieldSet(product *models.SourceProduct) (*FieldSet, error) {
	set := m.Set()
	combined := m.combinedRecord(product)

	allFields := make(map[string]interface{})
	for _, sourceField := range sortedSourceFields(set) {
		fm := set.Mappings[sourceField]

		if ShouldClearField(fm, combined) {
			// Empty string is the destination's explicit-clear instruction.
			allFields[fm.DestinationField] = ""
			m.logger.Debug("clearing field %s (source %s explicitly empty)", fm.DestinationField, sourceField)
			continue
		}

		raw, present := combined[sourceField]
		if !present || raw == nil || raw == "" {
			if fm.Default != nil {
				allFields[fm.DestinationField] = fm.Default
			}
			continue
		}

		transformed := TransformValue(raw, fm.Type)
		if transformed == nil || transformed == "" {
			continue
		}
		allFields[fm.DestinationField] = transformed
	}

	m.ensureRequiredFields(allFields, product, combined)

	parent, child, skipped := SeparateFields(allFields)
	if len(skipped) > 0 {
		m.logger.Warn("dropped %d unrecognized destination fields for %s: %v",
			len(skipped), product.SKU, skipped)
	}

	if err := m.checkRequired(set, allFields); err != nil {
		return nil, err
	}

	return &FieldSet{Parent: parent, Child: child, Skipped: skipped}, nil
}

// combinedRecord merges the product's direct attributes with everything the
// extractor finds in the nested details bag. Extracted attributes win on
// collision since the details endpoint carries the richer data.
func (m *Mapper) combinedRecord(product *models.SourceProduct) map[string]interface{} {
	combined := make(map[string]interface{}, len(product.Attributes))
	for k, v := range product.Attributes {
		combined[k] = v
	}
	if len(product.Details) > 0 {
		for k, v := range ExtractAttributes(product.Details) {
			combined[k] = v
		}
	}
	return combined
}

func (m *Mapper) ensureRequiredFields(fields map[string]interface{}, product *models.SourceProduct, combined map[string]interface{}) {
	if empty(fields["name"]) {
		name := product.Label
		if name == "" {
			if s, ok := combined["name"].(string); ok && s != "" {
				name = s
			} else {
				name = product.SKU
			}
		}
		fields["name"] = name
	}
	if empty(fields["slug"]) {
		if name, ok := fields["name"].(string); ok {
			fields["slug"] = GenerateSlug(name)
		}
	}
	if empty(fields["sku"]) && product.SKU != "" {
		fields["sku"] = SanitizeSKU(product.SKU)
	}
}

func (m *Mapper) checkRequired(set *MappingSet, fields map[string]interface{}) error {
	for _, fm := range set.Mappings {
		if !fm.Required {
			continue
		}
		if empty(fields[fm.DestinationField]) {
			return fmt.Errorf("required field %q did not resolve to a value", fm.DestinationField)
		}
	}
	return nil
}

func sortedSourceFields(set *MappingSet) []string {
	fields := make([]string, 0, len(set.Mappings))
	for f := range set.Mappings {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func empty(v interface{}) bool {
	return v == nil || v == ""
}
