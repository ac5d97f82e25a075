package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductMapping correlates a source product with its destination item
// across runs. Rows are soft-deactivated, never deleted.
type ProductMapping struct {
	ID                string    `json:"id" gorm:"type:uuid;primary_key"`
	SourceProductID   string    `json:"source_product_id" gorm:"not null;index"`
	DestinationItemID string    `json:"destination_item_id" gorm:"index"`
	CollectionID      string    `json:"collection_id" gorm:"index"`
	SourceSKU         string    `json:"source_sku" gorm:"not null"`
	ProductName       string    `json:"product_name"`
	LastUpdated       time.Time `json:"last_updated"`
	IsActive          bool      `json:"is_active" gorm:"default:true"`

	Variants []VariantMapping `json:"variants" gorm:"foreignKey:ProductMappingID"`
}

// VariantMapping correlates one source variant with its destination child
// record. Attributes is a denormalized JSON snapshot of the variant's
// dimensions at last sync.
type VariantMapping struct {
	ID                string    `json:"id" gorm:"type:uuid;primary_key"`
	ProductMappingID  string    `json:"product_mapping_id" gorm:"type:uuid;not null;index"`
	SourceVariantID   string    `json:"source_variant_id" gorm:"not null;index"`
	DestinationSKUID  string    `json:"destination_sku_id" gorm:"column:destination_sku_id;index"`
	VariantSKU        string    `json:"variant_sku" gorm:"not null"`
	Attributes        string    `json:"attributes" gorm:"type:jsonb"`
	PriceCents        int       `json:"price_cents"`
	InventoryQuantity int       `json:"inventory_quantity"`
	LastSynced        time.Time `json:"last_synced"`
}

func (m *ProductMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (m *VariantMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
