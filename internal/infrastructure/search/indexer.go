package search

import (
	"context"
	"errors"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// productLoader reads the current state of a product
type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// productWriter is the write side of the index
type productWriter interface {
	IndexProduct(ctx context.Context, p *catalog.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// Indexer keeps the search index in step with product events. Events only
// carry a few fields, so the product is reloaded from the database and
// indexed whole; a product that no longer loads is removed.
type Indexer struct {
	products productLoader
	index    productWriter
	logger   *zap.Logger
}

// NewIndexer creates an Indexer
func NewIndexer(products productLoader, index productWriter, logger *zap.Logger) *Indexer {
	return &Indexer{products: products, index: index, logger: logger}
}

// EventTypes returns the product events
func (i *Indexer) EventTypes() []string {
	return catalog.ProductEventTypes
}

// Handle re-indexes or removes the product behind the event
func (i *Indexer) Handle(ctx context.Context, event shared.DomainEvent) error {
	id := event.AggregateID()
	if event.EventType() == catalog.EventTypeProductDeleted {
		return i.index.DeleteProduct(ctx, id)
	}

	product, err := i.products.FindByID(ctx, id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return i.index.DeleteProduct(ctx, id)
	}
	if err != nil {
		return err
	}

	if err := i.index.IndexProduct(ctx, product); err != nil {
		return err
	}
	i.logger.Debug("Indexed product",
		zap.String("product_id", id.String()),
		zap.String("event_type", event.EventType()))
	return nil
}

var _ shared.EventHandler = (*Indexer)(nil)
