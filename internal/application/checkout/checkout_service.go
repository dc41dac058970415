package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/identity"
	"github.com/freely/backend/internal/domain/order"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repositories groups the stores checkout reads and writes
type Repositories struct {
	Orders        order.Repository
	Carts         cart.Repository
	Products      catalog.ProductRepository
	Organizations identity.OrganizationRepository
	Users         identity.UserRepository
}

// CheckoutService turns carts into orders and drives their payment state
type CheckoutService struct {
	orderRepo   order.Repository
	cartRepo    cart.Repository
	productRepo catalog.ProductRepository
	orgRepo     identity.OrganizationRepository
	userRepo    identity.UserRepository
	gateway     order.PaymentGateway
	txManager   shared.TxManager
	events      shared.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
// A nil gateway disables payments; checkout then fails with ErrPaymentNotConfigured.
func NewCheckoutService(
	repos Repositories,
	gateway order.PaymentGateway,
	txManager shared.TxManager,
	events shared.EventPublisher,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		orderRepo:   repos.Orders,
		cartRepo:    repos.Carts,
		productRepo: repos.Products,
		orgRepo:     repos.Organizations,
		userRepo:    repos.Users,
		gateway:     gateway,
		txManager:   txManager,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// Checkout creates a pending order from the buyer's cart, opens a
// payment intent for it and clears the cart. userID is set for signed-in
// buyers and supplies default contact details.
func (s *CheckoutService) Checkout(ctx context.Context, buyer cart.Identity, userID *uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "Checkout")
	defer span.End()

	if s.gateway == nil {
		return nil, order.ErrPaymentNotConfigured
	}
	if err := buyer.Validate(); err != nil {
		return nil, err
	}

	c, err := s.cartRepo.FindByIdentity(ctx, buyer)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			return nil, cart.ErrCartEmpty
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if c.IsEmpty() {
		return nil, cart.ErrCartEmpty
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCartID, c.ID.String())

	org, err := s.merchantOf(ctx, c)
	if err != nil {
		return nil, err
	}

	customer := order.Customer{
		Email:           strings.TrimSpace(input.CustomerEmail),
		Name:            strings.TrimSpace(input.CustomerName),
		ShippingAddress: input.ShippingAddress,
		Notes:           input.CustomerNotes,
	}
	if userID != nil && (customer.Email == "" || customer.Name == "") {
		user, err := s.userRepo.FindByID(ctx, *userID)
		if err != nil {
			return nil, err
		}
		if customer.Email == "" {
			customer.Email = user.Email
		}
		if customer.Name == "" {
			customer.Name = user.DisplayName()
		}
	}

	o, err := s.CreateOrderFromCart(ctx, c, org.ID, customer)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, o.ID.String(),
		telemetry.SpanAttrOrderNumber, o.OrderNumber,
		telemetry.SpanAttrOrganizationID, org.ID.String(),
		telemetry.SpanAttrAmountCents, o.TotalCents)

	intent, err := s.CreatePaymentIntent(ctx, o)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if cleared := c.Clear(); len(cleared) > 0 {
		if err := s.cartRepo.SaveItems(ctx, cleared...); err != nil {
			s.logger.Error("Failed to clear cart after checkout",
				zap.String("cart_id", c.ID.String()),
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}

	return &CheckoutResult{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.PaymentIntentID,
		TotalCents:      o.TotalCents,
		TotalDisplay:    o.TotalDisplay(),
		Currency:        o.Currency,
	}, nil
}

// merchantOf returns the organization selling the cart's first line
func (s *CheckoutService) merchantOf(ctx context.Context, c *cart.Cart) (*identity.Organization, error) {
	first := c.LiveItems()[0]
	orgID := uuid.Nil
	if first.Product != nil {
		orgID = first.Product.OrganizationID
	} else {
		products, err := s.productRepo.FindByIDs(ctx, []uuid.UUID{first.ProductID})
		if err != nil {
			return nil, err
		}
		if len(products) > 0 {
			orgID = products[0].OrganizationID
		}
	}
	if orgID == uuid.Nil {
		return nil, identity.ErrOrganizationNotFound
	}
	return s.orgRepo.FindByID(ctx, orgID)
}

// CreateOrderFromCart snapshots the cart into a pending order. The cart is
// not modified. A colliding order number is regenerated by the repository.
func (s *CheckoutService) CreateOrderFromCart(ctx context.Context, c *cart.Cart, organizationID uuid.UUID, customer order.Customer) (*order.Order, error) {
	o, err := order.NewFromCart(c, organizationID, customer)
	if err != nil {
		return nil, err
	}
	err = s.txManager.Transaction(ctx, func(ctx context.Context) error {
		return s.orderRepo.Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	if err := shared.PublishAndClear(ctx, s.events, o); err != nil {
		s.logger.Warn("Failed to publish order events", zap.Error(err))
	}
	s.logger.Info("Order created",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.Stringer("total", o.Total()),
		zap.Int("items", len(o.Items)))
	return o, nil
}

// CreatePaymentIntent opens a gateway payment for the order total and
// records the intent on the order
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, o *order.Order) (*PaymentIntentResult, error) {
	if s.gateway == nil {
		return nil, order.ErrPaymentNotConfigured
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, order.PaymentIntentRequest{
		AmountCents: o.TotalCents,
		Currency:    strings.ToLower(o.Currency),
		Metadata: map[string]string{
			"order_id":        o.ID.String(),
			"order_number":    o.OrderNumber,
			"organization_id": o.OrganizationID.String(),
		},
		ReceiptEmail:   o.CustomerEmail,
		Description:    "Order " + o.OrderNumber,
		IdempotencyKey: "order-" + o.ID.String(),
	})
	if err != nil {
		s.logger.Error("Failed to create payment intent",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, order.ErrPaymentGateway.WithCause(err)
	}

	if err := o.AttachPaymentIntent(intent.ID); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("Payment intent created",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_intent_id", intent.ID))
	return &PaymentIntentResult{PaymentIntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmPayment marks an order paid. The intent must match the one stored
// on the order; otherwise nothing changes and ErrPaymentIntentMismatch is returned.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, intentID, chargeID string) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "ConfirmPayment",
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrPaymentIntent, intentID)
	defer span.End()

	o, err := s.updatePayment(ctx, orderID, func(o *order.Order) error {
		if err := o.ConfirmPayment(intentID, s.now()); err != nil {
			return err
		}
		if chargeID != "" {
			o.ChargeID = &chargeID
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, order.ErrPaymentIntentMismatch) {
			s.logger.Warn("Payment intent mismatch",
				zap.String("order_id", orderID.String()),
				zap.String("payment_intent_id", intentID))
		}
		return nil, err
	}
	s.logger.Info("Order paid",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber))
	return o, nil
}

// MarkPaymentFailed records a failed payment for a pending order
func (s *CheckoutService) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID, intentID, reason string) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "MarkPaymentFailed",
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrPaymentIntent, intentID)
	defer span.End()

	o, err := s.updatePayment(ctx, orderID, func(o *order.Order) error {
		return o.MarkPaymentFailed(intentID, reason)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("Order payment failed",
		zap.String("order_id", o.ID.String()),
		zap.String("reason", reason))
	return o, nil
}

// updatePayment loads an order, applies a payment transition and saves it in
// one transaction. Events are published after commit.
func (s *CheckoutService) updatePayment(ctx context.Context, orderID uuid.UUID, apply func(*order.Order) error) (*order.Order, error) {
	var o *order.Order
	err := s.txManager.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.orderRepo.FindByID(ctx, orderID); err != nil {
			return err
		}
		if err := apply(o); err != nil {
			return err
		}
		return s.orderRepo.Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.events, o); err != nil {
		s.logger.Warn("Failed to publish order events", zap.Error(err))
	}
	return o, nil
}

// GetOrder returns an order. A signed-in caller only sees its own orders.
func (s *CheckoutService) GetOrder(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*OrderResult, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != nil && !o.BelongsToUser(*userID) {
		return nil, order.ErrOrderNotFound
	}
	result := ToOrderResult(o)
	return &result, nil
}

// GetOrderByNumber returns an order for confirmation pages
func (s *CheckoutService) GetOrderByNumber(ctx context.Context, orderNumber string) (*OrderResult, error) {
	o, err := s.orderRepo.FindByNumber(ctx, strings.ToUpper(strings.TrimSpace(orderNumber)))
	if err != nil {
		return nil, err
	}
	result := ToOrderResult(o)
	return &result, nil
}

// ListUserOrders returns a page of a buyer's orders, newest first
func (s *CheckoutService) ListUserOrders(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[OrderResult], error) {
	page, err := s.orderRepo.ListByUser(ctx, userID, filter.Normalize())
	if err != nil {
		return shared.Paginated[OrderResult]{}, err
	}
	return shared.NewPaginated(ToOrderResults(page.Items), page.Total, page.Page, page.PageSize), nil
}

// ListOrganizationOrders returns a page of a merchant's orders, newest first
func (s *CheckoutService) ListOrganizationOrders(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (shared.Paginated[OrderResult], error) {
	page, err := s.orderRepo.ListByOrganization(ctx, organizationID, filter.Normalize())
	if err != nil {
		return shared.Paginated[OrderResult]{}, err
	}
	return shared.NewPaginated(ToOrderResults(page.Items), page.Total, page.Page, page.PageSize), nil
}

// UpdateFulfillment advances the shipping state of a merchant's paid order
func (s *CheckoutService) UpdateFulfillment(ctx context.Context, organizationID, orderID uuid.UUID, status string) (*OrderResult, error) {
	var o *order.Order
	err := s.txManager.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.orderRepo.FindByIDForOrganization(ctx, organizationID, orderID); err != nil {
			return err
		}
		if err := o.UpdateFulfillment(order.FulfillmentStatus(status)); err != nil {
			return err
		}
		return s.orderRepo.Save(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order fulfillment updated",
		zap.String("order_id", o.ID.String()),
		zap.String("fulfillment_status", status))
	result := ToOrderResult(o)
	return &result, nil
}
