package cart

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for cart persistence.
// Carts are returned with their live items and each item's product.
type Repository interface {
	// FindByIdentity returns the live cart of an identity
	FindByIdentity(ctx context.Context, identity Identity) (*Cart, error)

	// FindByID returns a live cart by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)

	// Save writes the cart row and every item in cart.Items, including tombstoned ones
	Save(ctx context.Context, cart *Cart) error

	// SaveCart writes the cart row only, leaving its items untouched
	SaveCart(ctx context.Context, cart *Cart) error

	// SaveItems writes the given items
	SaveItems(ctx context.Context, items ...*CartItem) error
}
