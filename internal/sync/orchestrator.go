package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"pimsync/internal/clients"
	"pimsync/internal/config"
	"pimsync/internal/logger"
	"pimsync/internal/mapping"
	"pimsync/internal/models"
	"pimsync/internal/variants"
)

// Error types recorded against a run.
const (
	ErrorTypeValidation  = "validation"
	ErrorTypeTransform   = "transform"
	ErrorTypeAPI         = "api"
	ErrorTypePersistence = "persistence"
)

// maxConsecutivePersistenceFailures aborts the pass when the mapping store
// keeps failing, since continuing would strand destination writes without
// correlation rows.
const maxConsecutivePersistenceFailures = 3

// SourceClient reads product data from the PIM.
type SourceClient interface {
	FetchPage(ctx context.Context, page, pageSize int, since *time.Time) ([]models.SourceProduct, bool, error)
	FetchVariants(ctx context.Context, productID string) ([]models.SourceVariant, error)
	FetchDetails(ctx context.Context, productID string) (map[string]interface{}, error)
}

// DestinationClient writes product data to the storefront CMS.
type DestinationClient interface {
	FindByBusinessKey(ctx context.Context, key string) (string, error)
	ReadCurrentFields(ctx context.Context, itemID string) (map[string]interface{}, map[string]map[string]interface{}, error)
	WriteParentFields(ctx context.Context, itemID string, fields map[string]interface{}) error
	WriteChildFields(ctx context.Context, productID, skuID string, fields map[string]interface{}) error
	CreateParent(ctx context.Context, collectionID string, product *models.DestinationProduct, defaultSKU *models.DestinationSKU) (string, string, error)
	CreateChild(ctx context.Context, productID string, sku *models.DestinationSKU) (string, error)
	PublishBatch(ctx context.Context, itemIDs []string) error
	CollectionLister
}

// MappingStore persists the source/destination correlation rows.
type MappingStore interface {
	GetMappingsBulk(sourceProductIDs []string) (map[string]*models.ProductMapping, error)
	UpsertMapping(mapping *models.ProductMapping) error
	UpsertVariantMapping(mapping *models.VariantMapping) error
	DeactivateMapping(sourceProductID string) error
}

// RunRecorder persists run lifecycle state.
type RunRecorder interface {
	StartRun() (*models.SyncRun, error)
	UpdateProgress(run *models.SyncRun) error
	LogEntityError(runID, sourceProductID, errorType, message string) error
	FinishRun(run *models.SyncRun, status models.RunStatus) error
	LastCompletedTime() (*time.Time, error)
}

// HashCache stores content hashes for skip detection. A nil cache disables
// hash short-circuiting.
type HashCache interface {
	GetProductHash(ctx context.Context, productID string) string
	SetProductHash(ctx context.Context, productID, hash string)
	InvalidateProduct(ctx context.Context, productID string)
}

// RunOptions tunes one pass.
type RunOptions struct {
	// FullSync ignores the last completed run time and walks the entire
	// catalog.
	FullSync bool
}

// Orchestrator drives one reconciliation pass: page through the source,
// transform each product, diff against the destination and write only what
// changed.
type Orchestrator struct {
	cfg      *config.Config
	source   SourceClient
	dest     DestinationClient
	mapper   *mapping.Mapper
	builder  *variants.Builder
	store    MappingStore
	recorder RunRecorder
	cache    HashCache
	logger   *logger.Logger

	mu      sync.Mutex
	running bool
}

func NewOrchestrator(
	cfg *config.Config,
	source SourceClient,
	dest DestinationClient,
	mapper *mapping.Mapper,
	builder *variants.Builder,
	store MappingStore,
	recorder RunRecorder,
	cache HashCache,
	logger *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		source:   source,
		dest:     dest,
		mapper:   mapper,
		builder:  builder,
		store:    store,
		recorder: recorder,
		cache:    cache,
		logger:   logger,
	}
}

// Running reports whether a pass is currently in flight.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Run executes one reconciliation pass and returns the finalized run row.
// Configuration problems surface as an error before any run row is created.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*models.SyncRun, error) {
	if err := o.mapper.Set().Validate(); err != nil {
		return nil, fmt.Errorf("field mapping configuration invalid: %w", err)
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, fmt.Errorf("a sync pass is already running")
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	var since *time.Time
	if !opts.FullSync {
		last, err := o.recorder.LastCompletedTime()
		if err != nil {
			return nil, err
		}
		since = last
	}

	run, err := o.recorder.StartRun()
	if err != nil {
		return nil, err
	}
	if since != nil {
		o.logger.Info("Starting delta sync for products modified after %s", since.Format(time.RFC3339))
	} else {
		o.logger.Info("Starting full sync")
	}

	pass := &passState{
		run:      run,
		resolver: NewCollectionResolver(o.dest, o.cfg.CollectionStrategy, o.cfg.StorefrontCollectionID, o.cfg.EnableDynamicCollections, o.logger),
		sem:      semaphore.NewWeighted(int64(o.cfg.MaxConcurrentEntities)),
	}

	status := models.RunStatusCompleted
	if err := o.runPages(ctx, pass, since); err != nil {
		o.logger.Error("Sync pass %s failed: %v", run.ID, err)
		status = models.RunStatusFailed
	}

	if flushErr := o.flushPublishQueue(ctx, pass, 0); flushErr != nil {
		o.logger.Error("Final publish flush failed: %v", flushErr)
		pass.recordError(o, "", ErrorTypeAPI, flushErr.Error())
	}

	if err := o.recorder.FinishRun(run, status); err != nil {
		return run, err
	}
	o.logger.Info("Sync pass %s %s: %d processed, %d skipped, %d variants, %d errors in %ds",
		run.ID, status, run.ProductsProcessed, run.ProductsSkipped, run.VariantsProcessed, run.ErrorsCount, run.DurationSeconds)
	return run, nil
}

// passState is the mutable shared state of one pass.
type passState struct {
	run      *models.SyncRun
	resolver *CollectionResolver
	sem      *semaphore.Weighted

	mu                  sync.Mutex
	publishQueue        []string
	persistenceFailures int
}

func (p *passState) recordError(o *Orchestrator, productID, errorType, message string) {
	p.mu.Lock()
	p.run.ErrorsCount++
	p.mu.Unlock()
	if err := o.recorder.LogEntityError(p.run.ID, productID, errorType, message); err != nil {
		o.logger.Error("Failed to record entity error: %v", err)
	}
}

func (p *passState) persistenceFailed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.persistenceFailures++
	return p.persistenceFailures
}

func (p *passState) persistenceSucceeded() {
	p.mu.Lock()
	p.persistenceFailures = 0
	p.mu.Unlock()
}

func (p *passState) exceededPersistenceFailures() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persistenceFailures >= maxConsecutivePersistenceFailures
}

func (o *Orchestrator) runPages(ctx context.Context, pass *passState, since *time.Time) error {
	page := 1
	for {
		// Cancellation and fatal-failure checks happen at batch
		// boundaries so in-flight entities finish cleanly.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		products, hasMore, err := o.source.FetchPage(ctx, page, o.cfg.PageSize, since)
		if err != nil {
			return fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		if len(products) == 0 {
			break
		}

		ids := make([]string, 0, len(products))
		for i := range products {
			ids = append(ids, products[i].ID)
		}
		mappings, err := o.store.GetMappingsBulk(ids)
		if err != nil {
			return err
		}

		var wg sync.WaitGroup
		for i := range products {
			product := &products[i]
			if err := pass.sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return err
			}
			wg.Add(1)
			go func() {
				defer pass.sem.Release(1)
				defer wg.Done()
				o.syncOne(ctx, pass, product, mappings[product.ID])
			}()
		}
		wg.Wait()

		if err := o.recorder.UpdateProgress(pass.run); err != nil {
			o.logger.Warn("Failed to flush run progress: %v", err)
		}
		if pass.exceededPersistenceFailures() {
			return fmt.Errorf("aborting after %d consecutive persistence failures", maxConsecutivePersistenceFailures)
		}
		if err := o.flushPublishQueue(ctx, pass, o.cfg.PublishBatchSize); err != nil {
			return err
		}

		if !hasMore {
			break
		}
		page++
	}
	return nil
}

// syncOne reconciles a single product. Failures are itemized against the
// run; they never abort the pass except for repeated persistence failures.
func (o *Orchestrator) syncOne(ctx context.Context, pass *passState, product *models.SourceProduct, existing *models.ProductMapping) {
	outcome, err := o.reconcile(ctx, pass, product, existing)
	if err != nil {
		errorType := ErrorTypeAPI
		switch {
		case isValidationError(err):
			errorType = ErrorTypeValidation
		case isTransformError(err):
			errorType = ErrorTypeTransform
		case isPersistenceError(err):
			errorType = ErrorTypePersistence
		}
		o.logger.Error("Product %s (%s) failed: %v", product.ID, product.SKU, err)
		pass.recordError(o, product.ID, errorType, err.Error())
		return
	}

	pass.mu.Lock()
	switch outcome.result {
	case resultWritten:
		pass.run.ProductsProcessed++
	case resultSkipped:
		pass.run.ProductsSkipped++
	}
	pass.run.VariantsProcessed += outcome.variantsWritten
	if outcome.publishID != "" {
		pass.publishQueue = append(pass.publishQueue, outcome.publishID)
	}
	pass.mu.Unlock()
}

type entityResult int

const (
	resultSkipped entityResult = iota
	resultWritten
)

type entityOutcome struct {
	result          entityResult
	variantsWritten int
	publishID       string
}

func (o *Orchestrator) reconcile(ctx context.Context, pass *passState, product *models.SourceProduct, existing *models.ProductMapping) (entityOutcome, error) {
	var outcome entityOutcome

	if !product.Active {
		if existing != nil {
			if err := o.store.DeactivateMapping(product.ID); err != nil {
				o.logger.Warn("Failed to deactivate mapping for %s: %v", product.ID, err)
			}
			if o.cache != nil {
				// A stale hash would skip the product on reactivation.
				o.cache.InvalidateProduct(ctx, product.ID)
			}
		}
		o.logger.Debug("Product %s inactive, skipping", product.ID)
		return outcome, nil
	}

	details, err := o.source.FetchDetails(ctx, product.ID)
	if err != nil {
		return outcome, err
	}
	product.Details = details

	productVariants, err := o.source.FetchVariants(ctx, product.ID)
	if err != nil {
		return outcome, err
	}
	product.Variants = productVariants

	if issues := o.builder.Validate(product); len(issues) > 0 {
		return outcome, &validationError{productID: product.ID, issues: issues}
	}

	fieldSet, err := o.mapper.BuildFieldSet(product)
	if err != nil {
		return outcome, &transformError{productID: product.ID, cause: err}
	}

	hash := ContentHash(fieldSet.Parent, fieldSet.Child, product)
	if o.cache != nil && hash != "" {
		if cached := o.cache.GetProductHash(ctx, product.ID); cached == hash {
			o.logger.Debug("Product %s unchanged (hash match), skipping", product.ID)
			return outcome, nil
		}
	}

	collectionID, err := pass.resolver.Resolve(ctx, product)
	if err != nil {
		return outcome, err
	}

	skus, dimensions := o.builder.Build(product)

	itemID, created, outcomeFromWrite, err := o.writeProduct(ctx, product, fieldSet, skus, dimensions, collectionID, existing)
	if err != nil {
		return outcome, err
	}
	if itemID == "" {
		// Update-only mode and no destination counterpart.
		o.logger.Debug("Product %s has no destination item and creation is disabled, skipping", product.ID)
		return outcome, nil
	}
	outcome = outcomeFromWrite

	if err := o.persistMappings(product, itemID, collectionID, skus, existing); err != nil {
		failures := pass.persistenceFailed()
		o.logger.Error("Persistence failed for %s (%d consecutive): %v", product.ID, failures, err)
		return outcome, &persistenceError{productID: product.ID, cause: err}
	}
	pass.persistenceSucceeded()

	if o.cache != nil && hash != "" {
		o.cache.SetProductHash(ctx, product.ID, hash)
	}
	if o.cfg.EnableAutoPublish && (created || outcome.result == resultWritten) {
		outcome.publishID = itemID
	}
	return outcome, nil
}

// writeProduct creates or updates the destination item and its SKU children.
// Returns an empty item ID when the product has no counterpart and creation
// is disabled.
func (o *Orchestrator) writeProduct(
	ctx context.Context,
	product *models.SourceProduct,
	fieldSet *mapping.FieldSet,
	skus []models.DestinationSKU,
	dimensions []variants.Dimension,
	collectionID string,
	existing *models.ProductMapping,
) (string, bool, entityOutcome, error) {
	var outcome entityOutcome

	itemID := ""
	if existing != nil && existing.DestinationItemID != "" {
		itemID = existing.DestinationItemID
	} else {
		key := product.BusinessKey(o.mapper.Set().MatchingStrategy)
		found, err := o.dest.FindByBusinessKey(ctx, key)
		if err != nil {
			return "", false, outcome, err
		}
		itemID = found
	}

	if itemID == "" {
		if o.cfg.UpdateOnlyMode || !o.cfg.EnableProductCreation {
			return "", false, outcome, nil
		}
		newID, err := o.createProduct(ctx, product, fieldSet, skus, dimensions, collectionID)
		if err != nil {
			return "", false, outcome, err
		}
		outcome.result = resultWritten
		outcome.variantsWritten = len(skus)
		return newID, true, outcome, nil
	}

	currentParent, currentSKUs, err := o.dest.ReadCurrentFields(ctx, itemID)
	if err != nil {
		return "", false, outcome, err
	}

	changed, unchanged := DiffFields(fieldSet.Parent, currentParent)
	if len(changed) > 0 {
		if err := o.dest.WriteParentFields(ctx, itemID, changed); err != nil {
			return "", false, outcome, err
		}
		outcome.result = resultWritten
		o.logger.Debug("Product %s: wrote %d fields, %d unchanged", product.ID, len(changed), len(unchanged))
	}

	// Variant failures are itemized but do not roll back the parent write.
	variantsWritten, variantErr := o.writeChildren(ctx, itemID, fieldSet, skus, currentSKUs)
	outcome.variantsWritten = variantsWritten
	if variantsWritten > 0 {
		outcome.result = resultWritten
	}
	if variantErr != nil {
		return itemID, false, outcome, variantErr
	}
	return itemID, false, outcome, nil
}

func (o *Orchestrator) createProduct(
	ctx context.Context,
	product *models.SourceProduct,
	fieldSet *mapping.FieldSet,
	skus []models.DestinationSKU,
	dimensions []variants.Dimension,
	collectionID string,
) (string, error) {
	name, _ := fieldSet.Parent["name"].(string)
	slug, _ := fieldSet.Parent["slug"].(string)
	productType := "Basic"
	if len(dimensions) > 0 {
		productType = "Advanced"
	}

	parentFields := make(map[string]interface{}, len(fieldSet.Parent))
	for k, v := range fieldSet.Parent {
		if k == "name" || k == "slug" {
			continue
		}
		parentFields[k] = v
	}

	destProduct := &models.DestinationProduct{
		Name:        name,
		Slug:        slug,
		ProductType: productType,
		Fields:      parentFields,
		Properties:  o.builder.Properties(dimensions),
		SKUs:        skus,
	}

	defaultSKU := &skus[0]
	defaultSKU.Fields = mergeChildFields(defaultSKU.Fields, fieldSet.Child)

	itemID, _, err := o.dest.CreateParent(ctx, collectionID, destProduct, defaultSKU)
	if err != nil {
		return "", err
	}
	o.logger.Info("Created product %s (%s) with %d SKUs", name, itemID, len(skus))

	for i := 1; i < len(skus); i++ {
		sku := &skus[i]
		sku.Fields = mergeChildFields(sku.Fields, fieldSet.Child)
		if _, err := o.dest.CreateChild(ctx, itemID, sku); err != nil {
			return itemID, fmt.Errorf("failed to create sku %s: %w", sku.SKU, err)
		}
	}
	return itemID, nil
}

// writeChildren diffs and writes each built SKU against the destination's
// live SKU items, creating items for combinations that do not yet exist.
func (o *Orchestrator) writeChildren(
	ctx context.Context,
	itemID string,
	fieldSet *mapping.FieldSet,
	skus []models.DestinationSKU,
	currentSKUs map[string]map[string]interface{},
) (int, error) {
	written := 0
	var firstErr error
	for i := range skus {
		sku := &skus[i]
		desired := childFieldValues(sku, fieldSet.Child)

		current, exists := currentSKUs[sku.SKU]
		if !exists {
			if _, err := o.dest.CreateChild(ctx, itemID, sku); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				o.logger.Error("Failed to create sku %s: %v", sku.SKU, err)
				continue
			}
			written++
			continue
		}

		skuItemID, _ := current["_itemId"].(string)
		changed, _ := DiffFields(desired, current)
		if len(changed) == 0 {
			continue
		}
		if err := o.dest.WriteChildFields(ctx, itemID, skuItemID, changed); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			o.logger.Error("Failed to update sku %s: %v", sku.SKU, err)
			continue
		}
		written++
	}
	return written, firstErr
}

func (o *Orchestrator) persistMappings(
	product *models.SourceProduct,
	itemID, collectionID string,
	skus []models.DestinationSKU,
	existing *models.ProductMapping,
) error {
	row := &models.ProductMapping{
		SourceProductID:   product.ID,
		DestinationItemID: itemID,
		CollectionID:      collectionID,
		SourceSKU:         product.SKU,
		ProductName:       product.Label,
	}
	if existing != nil {
		row.ID = existing.ID
	}
	if err := o.store.UpsertMapping(row); err != nil {
		return err
	}

	variantsBySKU := make(map[string]*models.SourceVariant, len(product.Variants))
	for i := range product.Variants {
		variantsBySKU[product.Variants[i].SKU] = &product.Variants[i]
	}
	for i := range skus {
		sku := &skus[i]
		if sku.Placeholder {
			continue
		}
		source, ok := variantsBySKU[sku.SKU]
		if !ok {
			continue
		}
		attrs, err := json.Marshal(source.Attributes)
		if err != nil {
			return fmt.Errorf("failed to marshal variant attributes: %w", err)
		}
		variantRow := &models.VariantMapping{
			ProductMappingID:  row.ID,
			SourceVariantID:   source.ID,
			VariantSKU:        sku.SKU,
			Attributes:        string(attrs),
			PriceCents:        sku.Price.Value,
			InventoryQuantity: sku.Inventory.Quantity,
		}
		if err := o.store.UpsertVariantMapping(variantRow); err != nil {
			return err
		}
	}
	return nil
}

// flushPublishQueue publishes queued item IDs when the queue reaches
// threshold. A threshold of zero forces a flush.
func (o *Orchestrator) flushPublishQueue(ctx context.Context, pass *passState, threshold int) error {
	pass.mu.Lock()
	if len(pass.publishQueue) == 0 || (threshold > 0 && len(pass.publishQueue) < threshold) {
		pass.mu.Unlock()
		return nil
	}
	batch := pass.publishQueue
	pass.publishQueue = nil
	pass.mu.Unlock()

	if err := o.dest.PublishBatch(ctx, batch); err != nil {
		// Publishing is best-effort; the items are saved as staged.
		if clients.IsRateLimited(err) {
			o.logger.Warn("Publish rate limited, items remain staged: %v", err)
			return nil
		}
		return err
	}
	return nil
}

// childFieldValues composes the desired field data for one SKU: the shared
// child-tier fields first, then the SKU's own identity and pricing, which
// always win.
func childFieldValues(sku *models.DestinationSKU, shared map[string]interface{}) map[string]interface{} {
	desired := make(map[string]interface{}, len(shared)+len(sku.Fields)+2)
	for k, v := range shared {
		desired[k] = v
	}
	for k, v := range sku.Fields {
		desired[k] = v
	}
	desired["sku"] = sku.SKU
	desired["price"] = map[string]interface{}{"value": sku.Price.Value, "unit": sku.Price.Unit}
	return desired
}

func mergeChildFields(own, shared map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(own)+len(shared))
	for k, v := range shared {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	return merged
}

// validationError marks data-quality failures that must not be retried.
type validationError struct {
	productID string
	issues    []string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.productID, e.issues)
}

// transformError marks mapping/transform failures.
type transformError struct {
	productID string
	cause     error
}

func (e *transformError) Error() string {
	return fmt.Sprintf("transform failed for %s: %v", e.productID, e.cause)
}

func (e *transformError) Unwrap() error { return e.cause }

// persistenceError marks mapping-store failures after a destination write.
type persistenceError struct {
	productID string
	cause     error
}

func (e *persistenceError) Error() string {
	return fmt.Sprintf("persistence failed for %s: %v", e.productID, e.cause)
}

func (e *persistenceError) Unwrap() error { return e.cause }

func isPersistenceError(err error) bool {
	var target *persistenceError
	return errors.As(err, &target)
}

func isValidationError(err error) bool {
	var target *validationError
	return errors.As(err, &target)
}

func isTransformError(err error) bool {
	var target *transformError
	return errors.As(err, &target)
}
