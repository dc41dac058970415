package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/identity"
	"github.com/freely/backend/internal/domain/order"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*order.Order, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[order.Order], error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).(shared.Paginated[order.Order]), args.Error(1)
}

func (m *MockOrderRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (shared.Paginated[order.Order], error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(shared.Paginated[order.Order]), args.Error(1)
}

// MockCartRepository is a mock implementation of cart.Repository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) FindByIdentity(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCartRepository) SaveCart(ctx context.Context, c *cart.Cart) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCartRepository) SaveItems(ctx context.Context, items ...*cart.CartItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

// MockPaymentGateway is a mock implementation of order.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreatePaymentIntent(ctx context.Context, req order.PaymentIntentRequest) (*order.PaymentIntent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.PaymentIntent), args.Error(1)
}

func (m *MockPaymentGateway) ParseWebhook(payload []byte, signature string) (*order.PaymentEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.PaymentEvent), args.Error(1)
}

// orgDirectory serves organizations from a map
type orgDirectory struct {
	identity.OrganizationRepository
	orgs map[uuid.UUID]*identity.Organization
}

func (d orgDirectory) FindByID(_ context.Context, id uuid.UUID) (*identity.Organization, error) {
	if org, ok := d.orgs[id]; ok {
		return org, nil
	}
	return nil, identity.ErrOrganizationNotFound
}

// userDirectory serves users from a map
type userDirectory struct {
	identity.UserRepository
	users map[uuid.UUID]*identity.User
}

func (d userDirectory) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if user, ok := d.users[id]; ok {
		return user, nil
	}
	return nil, identity.ErrUserNotFound
}

type passthroughTx struct{}

func (passthroughTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingPublisher keeps published events in memory
type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

type checkoutFixture struct {
	orders  *MockOrderRepository
	carts   *MockCartRepository
	gateway *MockPaymentGateway
	events  *recordingPublisher
	org     *identity.Organization
	users   map[uuid.UUID]*identity.User
	svc     *CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	org, err := identity.NewOrganization("Clay Studio", "clay-studio")
	require.NoError(t, err)

	f := &checkoutFixture{
		orders:  new(MockOrderRepository),
		carts:   new(MockCartRepository),
		gateway: new(MockPaymentGateway),
		events:  &recordingPublisher{},
		org:     org,
		users:   map[uuid.UUID]*identity.User{},
	}
	f.svc = NewCheckoutService(Repositories{
		Orders:        f.orders,
		Carts:         f.carts,
		Organizations: orgDirectory{orgs: map[uuid.UUID]*identity.Organization{org.ID: org}},
		Users:         userDirectory{users: f.users},
	}, f.gateway, passthroughTx{}, f.events, zap.NewNop())
	return f
}

func (f *checkoutFixture) product(t *testing.T, name string, priceCents int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(f.org.ID, catalog.ProductDetails{
		Name:        name,
		PriceCents:  priceCents,
		Currency:    "USD",
		IsAvailable: true,
	})
	require.NoError(t, err)
	return p
}

func newCartWith(t *testing.T, identity cart.Identity, lines map[*catalog.Product]int) *cart.Cart {
	t.Helper()
	c, err := cart.NewCart(identity)
	require.NoError(t, err)
	for p, qty := range lines {
		_, err := c.AddItem(p, qty)
		require.NoError(t, err)
	}
	return c
}

func pendingOrderWithIntent(t *testing.T, f *checkoutFixture, intentID string) *order.Order {
	t.Helper()
	c := newCartWith(t, cart.ForSession("anon"), map[*catalog.Product]int{f.product(t, "Mug", 500): 1})
	o, err := order.NewFromCart(c, f.org.ID, order.Customer{Email: "buyer@example.com"})
	require.NoError(t, err)
	require.NoError(t, o.AttachPaymentIntent(intentID))
	o.ClearDomainEvents()
	return o
}

func TestCheckoutService_Checkout(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	buyer := cart.ForSession("anon")
	mug := f.product(t, "Mug", 500)
	c := newCartWith(t, buyer, map[*catalog.Product]int{mug: 3})

	f.carts.On("FindByIdentity", mock.Anything, buyer).Return(c, nil)
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil)
	f.gateway.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(req order.PaymentIntentRequest) bool {
		return req.AmountCents == 1500 &&
			req.Currency == "usd" &&
			req.Metadata["order_id"] != "" &&
			req.Metadata["organization_id"] == f.org.ID.String()
	})).Return(&order.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil)
	f.orders.On("Save", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil)
	f.carts.On("SaveItems", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.Checkout(ctx, buyer, nil, CheckoutInput{
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Ada Buyer",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.TotalCents)
	assert.Equal(t, "$15.00", result.TotalDisplay)
	assert.Equal(t, "pi_123_secret", result.ClientSecret)
	assert.Equal(t, "pi_123", result.PaymentIntentID)
	assert.Regexp(t, `^ORD-[0-9A-F]{6}$`, result.OrderNumber)
	assert.True(t, c.IsEmpty(), "cart is cleared once the intent exists")
	assert.Contains(t, f.events.types(), order.EventTypeOrderCreated)

	created := f.orders.Calls[0].Arguments.Get(1).(*order.Order)
	assert.Equal(t, f.org.ID, created.OrganizationID)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "Mug", created.Items[0].ProductName)
	assert.Equal(t, int64(500), created.Items[0].PriceCents)
	assert.Equal(t, int64(0), created.TaxCents)
	assert.Equal(t, int64(0), created.ShippingCents)
	require.NotNil(t, created.PaymentIntentID)
	assert.Equal(t, "pi_123", *created.PaymentIntentID)
	f.gateway.AssertExpectations(t)
}

func TestCheckoutService_Checkout_DefaultsContactFromUser(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	user, err := identity.NewUser("ada@example.com", "correct-horse-battery", nil)
	require.NoError(t, err)
	f.users[user.ID] = user
	buyer := cart.ForUser(user.ID)
	c := newCartWith(t, buyer, map[*catalog.Product]int{f.product(t, "Vase", 2500): 1})

	f.carts.On("FindByIdentity", mock.Anything, buyer).Return(c, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).
		Return(&order.PaymentIntent{ID: "pi_user", ClientSecret: "secret"}, nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.carts.On("SaveItems", mock.Anything, mock.Anything).Return(nil)

	_, err = f.svc.Checkout(ctx, buyer, &user.ID, CheckoutInput{})
	require.NoError(t, err)

	created := f.orders.Calls[0].Arguments.Get(1).(*order.Order)
	assert.Equal(t, "ada@example.com", created.CustomerEmail)
	assert.Equal(t, user.DisplayName(), created.CustomerName)
	require.NotNil(t, created.UserID)
	assert.Equal(t, user.ID, *created.UserID)
}

func TestCheckoutService_Checkout_EmptyCart(t *testing.T) {
	ctx := context.Background()

	t.Run("no cart", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.carts.On("FindByIdentity", mock.Anything, mock.Anything).Return(nil, cart.ErrCartNotFound)

		_, err := f.svc.Checkout(ctx, cart.ForSession("anon"), nil, CheckoutInput{CustomerEmail: "a@b.co"})

		assert.ErrorIs(t, err, cart.ErrCartEmpty)
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("cart without lines", func(t *testing.T) {
		f := newCheckoutFixture(t)
		f.carts.On("FindByIdentity", mock.Anything, mock.Anything).
			Return(newCartWith(t, cart.ForSession("anon"), nil), nil)

		_, err := f.svc.Checkout(ctx, cart.ForSession("anon"), nil, CheckoutInput{CustomerEmail: "a@b.co"})

		assert.ErrorIs(t, err, cart.ErrCartEmpty)
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.gateway.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
	})
}

func TestCheckoutService_Checkout_GatewayNotConfigured(t *testing.T) {
	svc := NewCheckoutService(Repositories{}, nil, passthroughTx{}, nil, zap.NewNop())

	_, err := svc.Checkout(context.Background(), cart.ForSession("anon"), nil, CheckoutInput{})

	assert.ErrorIs(t, err, order.ErrPaymentNotConfigured)
}

func TestCheckoutService_Checkout_GatewayFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	buyer := cart.ForSession("anon")
	c := newCartWith(t, buyer, map[*catalog.Product]int{f.product(t, "Mug", 500): 1})

	f.carts.On("FindByIdentity", mock.Anything, buyer).Return(c, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("CreatePaymentIntent", mock.Anything, mock.Anything).Return(nil, errors.New("card network down"))

	_, err := f.svc.Checkout(ctx, buyer, nil, CheckoutInput{CustomerEmail: "a@b.co"})

	require.ErrorIs(t, err, order.ErrPaymentGateway)
	assert.False(t, c.IsEmpty())
	f.carts.AssertNotCalled(t, "SaveItems", mock.Anything, mock.Anything)
}

func TestCheckoutService_CreateOrderFromCart_DoesNotMutateCart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	c := newCartWith(t, cart.ForSession("anon"), map[*catalog.Product]int{
		f.product(t, "Mug", 500):  2,
		f.product(t, "Bowl", 750): 1,
	})
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)

	o, err := f.svc.CreateOrderFromCart(ctx, c, f.org.ID, order.Customer{Email: "a@b.co"})

	require.NoError(t, err)
	assert.Equal(t, int64(1750), o.SubtotalCents)
	assert.Equal(t, o.SubtotalCents, o.TotalCents)
	assert.Equal(t, 3, c.ItemCount())
	assert.Len(t, c.LiveItems(), 2)
}

func TestCheckoutService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	o := pendingOrderWithIntent(t, f, "pi_ok")
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return paidAt }

	f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	paid, err := f.svc.ConfirmPayment(ctx, o.ID, "pi_ok", "ch_1")

	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, paidAt, *paid.PaidAt)
	require.NotNil(t, paid.ChargeID)
	assert.Equal(t, "ch_1", *paid.ChargeID)
	assert.Contains(t, f.events.types(), order.EventTypeOrderPaid)
}

func TestCheckoutService_ConfirmPayment_IntentMismatch(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	o := pendingOrderWithIntent(t, f, "pi_real")

	f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

	_, err := f.svc.ConfirmPayment(ctx, o.ID, "pi_forged", "")

	require.ErrorIs(t, err, order.ErrPaymentIntentMismatch)
	assert.Equal(t, order.PaymentStatusPending, o.PaymentStatus)
	assert.Nil(t, o.PaidAt)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, f.events.events)
}

func TestCheckoutService_MarkPaymentFailed(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	o := pendingOrderWithIntent(t, f, "pi_fail")

	f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	f.orders.On("Save", mock.Anything, o).Return(nil)

	failed, err := f.svc.MarkPaymentFailed(ctx, o.ID, "pi_fail", "card declined")

	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusFailed, failed.PaymentStatus)
}

func TestCheckoutService_GetOrder_HidesOtherUsersOrders(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	o := pendingOrderWithIntent(t, f, "pi_1")
	owner := uuid.New()
	o.UserID = &owner
	stranger := uuid.New()

	f.orders.On("FindByID", mock.Anything, o.ID).Return(o, nil)

	_, err := f.svc.GetOrder(ctx, o.ID, &stranger)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	result, err := f.svc.GetOrder(ctx, o.ID, &owner)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, result.OrderNumber)
}

func TestCheckoutService_GetOrderByNumber_NormalizesCase(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	o := pendingOrderWithIntent(t, f, "pi_1")

	f.orders.On("FindByNumber", mock.Anything, "ORD-ABC123").Return(o, nil)

	result, err := f.svc.GetOrderByNumber(ctx, " ord-abc123 ")

	require.NoError(t, err)
	assert.Equal(t, o.ID, result.ID)
}

func TestCheckoutService_UpdateFulfillment_RequiresPaidOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	o := pendingOrderWithIntent(t, f, "pi_1")

	f.orders.On("FindByIDForOrganization", mock.Anything, f.org.ID, o.ID).Return(o, nil)

	_, err := f.svc.UpdateFulfillment(ctx, f.org.ID, o.ID, string(order.FulfillmentShipped))

	assert.ErrorIs(t, err, order.ErrOrderNotPaid)
}
