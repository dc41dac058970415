package cart

import (
	"context"
	"errors"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService handles shopping cart operations for signed-in users and
// anonymous cart sessions
type CartService struct {
	cartRepo    cart.Repository
	productRepo catalog.ProductRepository
	txManager   shared.TxManager
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(
	cartRepo cart.Repository,
	productRepo catalog.ProductRepository,
	txManager shared.TxManager,
	events shared.EventPublisher,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		txManager:   txManager,
		events:      events,
		logger:      logger,
	}
}

// Get returns the identity's cart, creating an empty one if needed
func (s *CartService) Get(ctx context.Context, identity cart.Identity) (*CartResult, error) {
	c, err := s.getOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	return ToCartResult(c), nil
}

// getOrCreate loads the live cart of an identity or creates it. Two requests
// racing to create the same cart both end up with the row that won.
func (s *CartService) getOrCreate(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	c, err := s.cartRepo.FindByIdentity(ctx, identity)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, cart.ErrCartNotFound) {
		return nil, err
	}

	c, err = cart.NewCart(identity)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return s.cartRepo.FindByIdentity(ctx, identity)
		}
		return nil, err
	}
	s.logger.Debug("Cart created", zap.String("cart_id", c.ID.String()), zap.Bool("user", identity.IsUser()))
	return c, nil
}

// AddItem adds a product to the cart. Availability and tracked stock are
// checked against the requested quantity.
func (s *CartService) AddItem(ctx context.Context, identity cart.Identity, input AddItemInput) (*CartResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "AddItem",
		telemetry.SpanAttrProductID, input.ProductID.String(),
		"quantity", input.Quantity)
	defer span.End()

	if input.Quantity <= 0 {
		return nil, cart.ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, input.ProductID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := product.CheckPurchasable(input.Quantity); err != nil {
		return nil, err
	}

	c, err := s.getOrCreate(ctx, identity)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCartID, c.ID.String())

	item, err := c.AddItem(product, input.Quantity)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.SaveItems(ctx, item); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Item added to cart",
		zap.String("cart_id", c.ID.String()),
		zap.String("product_id", product.ID.String()),
		zap.Int("quantity", item.Quantity))
	return ToCartResult(c), nil
}

// UpdateItemQuantity sets the quantity of a line. Zero or negative
// quantities are rejected and the cart is left unchanged.
func (s *CartService) UpdateItemQuantity(ctx context.Context, identity cart.Identity, itemID uuid.UUID, quantity int) (*CartResult, error) {
	if quantity <= 0 {
		return nil, cart.ErrInvalidQuantity
	}
	c, err := s.find(ctx, identity)
	if err != nil {
		return nil, err
	}
	item, err := c.UpdateQuantity(itemID, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.SaveItems(ctx, item); err != nil {
		return nil, err
	}
	return ToCartResult(c), nil
}

// RemoveItem tombstones a line of the cart
func (s *CartService) RemoveItem(ctx context.Context, identity cart.Identity, itemID uuid.UUID) (*CartResult, error) {
	c, err := s.find(ctx, identity)
	if err != nil {
		return nil, err
	}
	item, err := c.RemoveItem(itemID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.SaveItems(ctx, item); err != nil {
		return nil, err
	}
	return ToCartResult(c), nil
}

// Clear tombstones every line of the cart. Clearing a missing cart is a no-op.
func (s *CartService) Clear(ctx context.Context, identity cart.Identity) error {
	c, err := s.find(ctx, identity)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			return nil
		}
		return err
	}
	cleared := c.Clear()
	if len(cleared) == 0 {
		return nil
	}
	if err := s.cartRepo.SaveItems(ctx, cleared...); err != nil {
		return err
	}
	s.logger.Info("Cart cleared", zap.String("cart_id", c.ID.String()), zap.Int("lines", len(cleared)))
	return nil
}

// Merge moves an anonymous session cart into the user's cart in one
// transaction. Nothing happens when the session has no cart.
func (s *CartService) Merge(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "cart", "Merge", "user_id", userID.String())
	defer span.End()

	var userCart *cart.Cart
	err := s.txManager.Transaction(ctx, func(ctx context.Context) error {
		sessionCart, err := s.cartRepo.FindByIdentity(ctx, cart.ForSession(sessionToken))
		if err != nil {
			if errors.Is(err, cart.ErrCartNotFound) {
				return nil
			}
			return err
		}

		userCart, err = s.getOrCreate(ctx, cart.ForUser(userID))
		if err != nil {
			return err
		}
		changed, err := userCart.MergeFrom(sessionCart)
		if err != nil {
			return err
		}
		if len(changed) > 0 {
			if err := s.cartRepo.SaveItems(ctx, changed...); err != nil {
				return err
			}
		}
		return s.cartRepo.SaveCart(ctx, sessionCart)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if userCart == nil {
		return nil
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCartID, userCart.ID.String())
	if err := shared.PublishAndClear(ctx, s.events, userCart); err != nil {
		s.logger.Warn("Failed to publish cart events", zap.Error(err))
	}
	s.logger.Info("Anonymous cart merged",
		zap.String("cart_id", userCart.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("item_count", userCart.ItemCount()))
	return nil
}

// Load returns the live cart of an identity without creating one
func (s *CartService) Load(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	return s.find(ctx, identity)
}

func (s *CartService) find(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return s.cartRepo.FindByIdentity(ctx, identity)
}
