package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pimsync/internal/models"
)

// MappingStore persists product and variant correlation rows.
type MappingStore struct {
	db *gorm.DB
}

func NewMappingStore(db *gorm.DB) *MappingStore {
	return &MappingStore{db: db}
}

// GetMapping returns the mapping for a source product, or nil when none
// exists.
func (s *MappingStore) GetMapping(sourceProductID string) (*models.ProductMapping, error) {
	var mapping models.ProductMapping
	err := s.db.Preload("Variants").Where("source_product_id = ?", sourceProductID).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping for %s: %w", sourceProductID, err)
	}
	return &mapping, nil
}

// GetMappingsBulk preloads mappings for a page of source product IDs in one
// query, keyed by source product ID.
func (s *MappingStore) GetMappingsBulk(sourceProductIDs []string) (map[string]*models.ProductMapping, error) {
	if len(sourceProductIDs) == 0 {
		return map[string]*models.ProductMapping{}, nil
	}
	var rows []models.ProductMapping
	err := s.db.Preload("Variants").Where("source_product_id IN ?", sourceProductIDs).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to bulk load mappings: %w", err)
	}
	mappings := make(map[string]*models.ProductMapping, len(rows))
	for i := range rows {
		mappings[rows[i].SourceProductID] = &rows[i]
	}
	return mappings, nil
}

// UpsertMapping creates or refreshes the product-level correlation row.
func (s *MappingStore) UpsertMapping(mapping *models.ProductMapping) error {
	var existing models.ProductMapping
	err := s.db.Where("source_product_id = ?", mapping.SourceProductID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mapping.LastUpdated = time.Now()
		mapping.IsActive = true
		if err := s.db.Create(mapping).Error; err != nil {
			return fmt.Errorf("failed to create mapping for %s: %w", mapping.SourceProductID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load mapping for %s: %w", mapping.SourceProductID, err)
	}

	updates := map[string]interface{}{
		"destination_item_id": mapping.DestinationItemID,
		"collection_id":       mapping.CollectionID,
		"source_sku":          mapping.SourceSKU,
		"product_name":        mapping.ProductName,
		"last_updated":        time.Now(),
		"is_active":           true,
	}
	if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update mapping for %s: %w", mapping.SourceProductID, err)
	}
	mapping.ID = existing.ID
	return nil
}

// UpsertVariantMapping creates or refreshes one variant correlation row.
func (s *MappingStore) UpsertVariantMapping(mapping *models.VariantMapping) error {
	var existing models.VariantMapping
	err := s.db.Where("source_variant_id = ?", mapping.SourceVariantID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mapping.LastSynced = time.Now()
		if err := s.db.Create(mapping).Error; err != nil {
			return fmt.Errorf("failed to create variant mapping for %s: %w", mapping.SourceVariantID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load variant mapping for %s: %w", mapping.SourceVariantID, err)
	}

	updates := map[string]interface{}{
		"destination_sku_id": mapping.DestinationSKUID,
		"variant_sku":        mapping.VariantSKU,
		"attributes":         mapping.Attributes,
		"price_cents":        mapping.PriceCents,
		"inventory_quantity": mapping.InventoryQuantity,
		"last_synced":        time.Now(),
	}
	if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update variant mapping for %s: %w", mapping.SourceVariantID, err)
	}
	mapping.ID = existing.ID
	return nil
}

// DeactivateMapping soft-deletes a product mapping. Rows stay behind for
// run history.
func (s *MappingStore) DeactivateMapping(sourceProductID string) error {
	err := s.db.Model(&models.ProductMapping{}).
		Where("source_product_id = ?", sourceProductID).
		Updates(map[string]interface{}{"is_active": false, "last_updated": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate mapping for %s: %w", sourceProductID, err)
	}
	return nil
}

// CountActive returns the number of active product mappings.
func (s *MappingStore) CountActive() (int64, error) {
	var count int64
	if err := s.db.Model(&models.ProductMapping{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return count, nil
}

// RunRecorder persists sync run lifecycle state and itemized errors.
type RunRecorder struct {
	db *gorm.DB
}

func NewRunRecorder(db *gorm.DB) *RunRecorder {
	return &RunRecorder{db: db}
}

// StartRun opens a new run row in running state.
func (r *RunRecorder) StartRun() (*models.SyncRun, error) {
	run := &models.SyncRun{
		Status:    models.RunStatusRunning,
		CreatedAt: time.Now(),
	}
	if err := r.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create sync run: %w", err)
	}
	return run, nil
}

// UpdateProgress flushes the in-memory counters to the run row.
func (r *RunRecorder) UpdateProgress(run *models.SyncRun) error {
	updates := map[string]interface{}{
		"products_processed": run.ProductsProcessed,
		"variants_processed": run.VariantsProcessed,
		"products_skipped":   run.ProductsSkipped,
		"errors_count":       run.ErrorsCount,
	}
	if err := r.db.Model(run).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update run %s: %w", run.ID, err)
	}
	return nil
}

// LogEntityError records one per-entity failure against the run.
func (r *RunRecorder) LogEntityError(runID, sourceProductID, errorType, message string) error {
	entityError := &models.SyncEntityError{
		SyncRunID:       runID,
		SourceProductID: sourceProductID,
		ErrorType:       errorType,
		ErrorMessage:    message,
		CreatedAt:       time.Now(),
	}
	if err := r.db.Create(entityError).Error; err != nil {
		return fmt.Errorf("failed to log entity error for %s: %w", sourceProductID, err)
	}
	return nil
}

// FinishRun finalizes the run with its terminal status and duration.
func (r *RunRecorder) FinishRun(run *models.SyncRun, status models.RunStatus) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":             status,
		"products_processed": run.ProductsProcessed,
		"variants_processed": run.VariantsProcessed,
		"products_skipped":   run.ProductsSkipped,
		"errors_count":       run.ErrorsCount,
		"duration_seconds":   int(now.Sub(run.CreatedAt).Seconds()),
		"last_sync_time":     now,
	}
	if err := r.db.Model(run).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	run.Status = status
	return nil
}

// LastCompletedTime returns the completion time of the most recent
// successful run, for delta sync. Nil means no completed run exists.
func (r *RunRecorder) LastCompletedTime() (*time.Time, error) {
	var run models.SyncRun
	err := r.db.Where("status = ?", models.RunStatusCompleted).Order("created_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last completed run: %w", err)
	}
	return run.LastSyncTime, nil
}

// RecentRuns returns the most recent runs with their errors preloaded.
func (r *RunRecorder) RecentRuns(limit int) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := r.db.Preload("Errors").Order("created_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a single run with errors, or nil when not found.
func (r *RunRecorder) GetRun(runID string) (*models.SyncRun, error) {
	var run models.SyncRun
	err := r.db.Preload("Errors").Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return &run, nil
}
