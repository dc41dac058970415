package order

import (
	"context"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the interface for order persistence.
// Orders are returned with their items.
type Repository interface {
	// Create inserts a new order and its items. A collision on the order
	// number is retried with a freshly generated number.
	Create(ctx context.Context, order *Order) error

	// Save updates payment and fulfillment state
	Save(ctx context.Context, order *Order) error

	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*Order, error)
	FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*Order, error)

	// ListByUser returns a user's orders, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[Order], error)

	// ListByOrganization returns an organization's orders, newest first
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (shared.Paginated[Order], error)
}
