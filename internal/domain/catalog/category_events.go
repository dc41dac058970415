package catalog

import (
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeCategory = "Category"

// Event type constants
const (
	EventTypeCategoryCreated = "CategoryCreated"
	EventTypeCategoryUpdated = "CategoryUpdated"
	EventTypeCategoryDeleted = "CategoryDeleted"
)

// CategoryEvent is published when a category is created, updated or deleted
type CategoryEvent struct {
	shared.BaseDomainEvent
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
}

func newCategoryEvent(eventType string, category *Category) *CategoryEvent {
	return &CategoryEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCategory, category.ID, category.OrganizationID),
		CategoryID:      category.ID,
		Name:            category.Name,
		Slug:            category.Slug,
	}
}

// NewCategoryCreatedEvent creates a CategoryCreated event
func NewCategoryCreatedEvent(category *Category) *CategoryEvent {
	return newCategoryEvent(EventTypeCategoryCreated, category)
}

// NewCategoryUpdatedEvent creates a CategoryUpdated event
func NewCategoryUpdatedEvent(category *Category) *CategoryEvent {
	return newCategoryEvent(EventTypeCategoryUpdated, category)
}

// NewCategoryDeletedEvent creates a CategoryDeleted event
func NewCategoryDeletedEvent(category *Category) *CategoryEvent {
	return newCategoryEvent(EventTypeCategoryDeleted, category)
}
