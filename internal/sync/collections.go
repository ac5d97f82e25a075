package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pimsync/internal/logger"
	"pimsync/internal/mapping"
	"pimsync/internal/models"
)

// Collection strategies decide which destination collection a product
// belongs to.
const (
	StrategyDefault     = "default"
	StrategyCategory    = "category"
	StrategyBrand       = "brand"
	StrategyProductType = "product_type"
)

// CollectionLister is the slice of the destination client the resolver needs.
type CollectionLister interface {
	ListCollections(ctx context.Context) (map[string]string, error)
	CreateCollection(ctx context.Context, name, slug string) (string, error)
}

// CollectionResolver maps a product to a destination collection ID per the
// configured strategy. The cache is scoped to one pass so collections
// created mid-pass are reused without re-listing.
type CollectionResolver struct {
	client      CollectionLister
	strategy    string
	defaultID   string
	allowCreate bool
	logger      *logger.Logger

	mu          sync.Mutex
	cache       map[string]string
	cachePrimed bool
}

func NewCollectionResolver(client CollectionLister, strategy, defaultID string, allowCreate bool, logger *logger.Logger) *CollectionResolver {
	return &CollectionResolver{
		client:      client,
		strategy:    strategy,
		defaultID:   defaultID,
		allowCreate: allowCreate,
		logger:      logger,
		cache:       map[string]string{},
	}
}

// Resolve returns the collection ID for a product. Unknown collection names
// fall back to the default collection unless creation is enabled.
func (r *CollectionResolver) Resolve(ctx context.Context, product *models.SourceProduct) (string, error) {
	name := r.collectionName(product)
	if name == "" {
		return r.defaultID, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cachePrimed {
		collections, err := r.client.ListCollections(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to prime collection cache: %w", err)
		}
		r.cache = collections
		r.cachePrimed = true
	}

	if id, ok := r.cache[name]; ok {
		return id, nil
	}

	if !r.allowCreate {
		r.logger.Debug("No collection named %q, using default", name)
		return r.defaultID, nil
	}

	id, err := r.client.CreateCollection(ctx, name, mapping.GenerateSlug(name))
	if err != nil {
		return "", fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	r.cache[name] = id
	r.logger.Info("Created collection %q (%s)", name, id)
	return id, nil
}

func (r *CollectionResolver) collectionName(product *models.SourceProduct) string {
	var name string
	switch r.strategy {
	case StrategyCategory:
		name = product.Category
	case StrategyBrand:
		name = product.Brand
	case StrategyProductType:
		if value, ok := product.Attributes["product_type"].(string); ok {
			name = value
		}
	default:
		return ""
	}
	return strings.TrimSpace(name)
}
