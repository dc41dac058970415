package cart

import (
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeCart is the aggregate type of carts
const AggregateTypeCart = "Cart"

// EventTypeCartMerged is published after an anonymous cart is merged on login
const EventTypeCartMerged = "CartMerged"

// CartMergedEvent is published when a session cart is merged into a user cart
type CartMergedEvent struct {
	shared.BaseDomainEvent
	UserCartID    uuid.UUID  `json:"user_cart_id"`
	SessionCartID uuid.UUID  `json:"session_cart_id"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	ItemCount     int        `json:"item_count"`
}

// NewCartMergedEvent creates a new CartMergedEvent
func NewCartMergedEvent(userCart, sessionCart *Cart) *CartMergedEvent {
	return &CartMergedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartMerged, AggregateTypeCart, userCart.ID, uuid.Nil),
		UserCartID:      userCart.ID,
		SessionCartID:   sessionCart.ID,
		UserID:          userCart.UserID,
		ItemCount:       userCart.ItemCount(),
	}
}
