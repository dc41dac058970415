package cart

import (
	"context"
	"testing"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySlug(ctx context.Context, organizationID uuid.UUID, slug string) (*catalog.Product, error) {
	args := m.Called(ctx, organizationID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, organizationID uuid.UUID, filter catalog.ProductListFilter) (shared.Paginated[catalog.Product], error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(shared.Paginated[catalog.Product]), args.Error(1)
}

func (m *MockProductRepository) ExistsBySlug(ctx context.Context, organizationID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, organizationID, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
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

func newTestProduct(t *testing.T, name string, priceCents int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(uuid.New(), catalog.ProductDetails{
		Name:        name,
		PriceCents:  priceCents,
		Currency:    "USD",
		IsAvailable: true,
	})
	require.NoError(t, err)
	return p
}

func newTestCart(t *testing.T, identity cart.Identity) *cart.Cart {
	t.Helper()
	c, err := cart.NewCart(identity)
	require.NoError(t, err)
	return c
}

func newService(carts *MockCartRepository, products *MockProductRepository, events shared.EventPublisher) *CartService {
	return NewCartService(carts, products, passthroughTx{}, events, zap.NewNop())
}

func TestCartService_Get_CreatesMissingCart(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	identity := cart.ForSession("anon")

	carts.On("FindByIdentity", mock.Anything, identity).Return(nil, cart.ErrCartNotFound)
	carts.On("Save", mock.Anything, mock.AnythingOfType("*cart.Cart")).Return(nil)

	result, err := newService(carts, new(MockProductRepository), nil).Get(ctx, identity)

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, int64(0), result.TotalCents)
	assert.Equal(t, "$0.00", result.TotalDisplay)
	carts.AssertExpectations(t)
}

func TestCartService_Get_RefetchesAfterCreateRace(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	userID := uuid.New()
	identity := cart.ForUser(userID)
	winner := newTestCart(t, identity)

	carts.On("FindByIdentity", mock.Anything, identity).Return(nil, cart.ErrCartNotFound).Once()
	carts.On("Save", mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict)
	carts.On("FindByIdentity", mock.Anything, identity).Return(winner, nil).Once()

	result, err := newService(carts, new(MockProductRepository), nil).Get(ctx, identity)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, result.ID)
}

func TestCartService_Get_RequiresExactlyOneIdentity(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc := newService(new(MockCartRepository), new(MockProductRepository), nil)

	_, err := svc.Get(ctx, cart.Identity{})
	assert.ErrorIs(t, err, cart.ErrIdentityRequired)

	_, err = svc.Get(ctx, cart.Identity{UserID: &userID, SessionToken: "anon"})
	assert.ErrorIs(t, err, cart.ErrIdentityRequired)
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	identity := cart.ForSession("anon")
	existing := newTestCart(t, identity)
	mug := newTestProduct(t, "Mug", 500)

	products.On("FindByID", mock.Anything, mug.ID).Return(mug, nil)
	carts.On("FindByIdentity", mock.Anything, identity).Return(existing, nil)
	carts.On("SaveItems", mock.Anything, mock.Anything).Return(nil)

	svc := newService(carts, products, nil)
	_, err := svc.AddItem(ctx, identity, AddItemInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)
	result, err := svc.AddItem(ctx, identity, AddItemInput{ProductID: mug.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, 3, result.Items[0].Quantity)
	assert.Equal(t, int64(1500), result.TotalCents)
	assert.Equal(t, "$15.00", result.TotalDisplay)
	assert.Equal(t, "Mug", result.Items[0].ProductName)
}

func TestCartService_AddItem_KeepsPriceSnapshot(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	identity := cart.ForSession("anon")
	existing := newTestCart(t, identity)
	mug := newTestProduct(t, "Mug", 500)

	products.On("FindByID", mock.Anything, mug.ID).Return(mug, nil)
	carts.On("FindByIdentity", mock.Anything, identity).Return(existing, nil)
	carts.On("SaveItems", mock.Anything, mock.Anything).Return(nil)

	svc := newService(carts, products, nil)
	_, err := svc.AddItem(ctx, identity, AddItemInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)

	mug.PriceCents = 900
	result, err := svc.AddItem(ctx, identity, AddItemInput{ProductID: mug.ID, Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(500), result.Items[0].PriceCents)
	assert.Equal(t, int64(1000), result.TotalCents)
}

func TestCartService_AddItem_Rejections(t *testing.T) {
	ctx := context.Background()
	identity := cart.ForSession("anon")

	t.Run("non-positive quantity", func(t *testing.T) {
		svc := newService(new(MockCartRepository), new(MockProductRepository), nil)
		_, err := svc.AddItem(ctx, identity, AddItemInput{ProductID: uuid.New(), Quantity: 0})
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
	})

	t.Run("missing product", func(t *testing.T) {
		products := new(MockProductRepository)
		id := uuid.New()
		products.On("FindByID", mock.Anything, id).Return(nil, catalog.ErrProductNotFound)

		svc := newService(new(MockCartRepository), products, nil)
		_, err := svc.AddItem(ctx, identity, AddItemInput{ProductID: id, Quantity: 1})
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("unavailable product", func(t *testing.T) {
		products := new(MockProductRepository)
		p := newTestProduct(t, "Retired", 100)
		p.IsAvailable = false
		products.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		svc := newService(new(MockCartRepository), products, nil)
		_, err := svc.AddItem(ctx, identity, AddItemInput{ProductID: p.ID, Quantity: 1})
		assert.ErrorIs(t, err, catalog.ErrProductUnavailable)
	})

	t.Run("not enough stock", func(t *testing.T) {
		products := new(MockProductRepository)
		p := newTestProduct(t, "Limited", 100)
		stock := int64(2)
		p.StockAvailable = &stock
		products.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		svc := newService(new(MockCartRepository), products, nil)
		_, err := svc.AddItem(ctx, identity, AddItemInput{ProductID: p.ID, Quantity: 3})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	})
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	ctx := context.Background()
	identity := cart.ForSession("anon")
	c := newTestCart(t, identity)
	item, err := c.AddItem(newTestProduct(t, "Mug", 500), 1)
	require.NoError(t, err)

	carts := new(MockCartRepository)
	carts.On("FindByIdentity", mock.Anything, identity).Return(c, nil)
	carts.On("SaveItems", mock.Anything, []*cart.CartItem{item}).Return(nil)
	svc := newService(carts, new(MockProductRepository), nil)

	result, err := svc.UpdateItemQuantity(ctx, identity, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), result.TotalCents)

	for _, qty := range []int{0, -1} {
		_, err = svc.UpdateItemQuantity(ctx, identity, item.ID, qty)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
	}
	assert.Equal(t, 4, item.Quantity)

	_, err = svc.UpdateItemQuantity(ctx, identity, uuid.New(), 1)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)
}

func TestCartService_RemoveItemAndClear(t *testing.T) {
	ctx := context.Background()
	identity := cart.ForSession("anon")
	c := newTestCart(t, identity)
	mug, err := c.AddItem(newTestProduct(t, "Mug", 500), 1)
	require.NoError(t, err)
	_, err = c.AddItem(newTestProduct(t, "Bowl", 700), 2)
	require.NoError(t, err)

	carts := new(MockCartRepository)
	carts.On("FindByIdentity", mock.Anything, identity).Return(c, nil)
	carts.On("SaveItems", mock.Anything, mock.Anything).Return(nil)
	svc := newService(carts, new(MockProductRepository), nil)

	result, err := svc.RemoveItem(ctx, identity, mug.ID)
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, int64(1400), result.TotalCents)
	assert.True(t, mug.IsDeleted())

	require.NoError(t, svc.Clear(ctx, identity))
	assert.True(t, c.IsEmpty())
	assert.Len(t, c.Items, 2, "lines are tombstoned, not removed")
}

func TestCartService_Clear_MissingCart(t *testing.T) {
	ctx := context.Background()
	identity := cart.ForSession("anon")
	carts := new(MockCartRepository)
	carts.On("FindByIdentity", mock.Anything, identity).Return(nil, cart.ErrCartNotFound)

	assert.NoError(t, newService(carts, new(MockProductRepository), nil).Clear(ctx, identity))
	carts.AssertNotCalled(t, "SaveItems", mock.Anything, mock.Anything)
}

func TestCartService_Merge(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	productA := newTestProduct(t, "A", 100)
	productB := newTestProduct(t, "B", 250)

	userCart := newTestCart(t, cart.ForUser(userID))
	_, err := userCart.AddItem(productA, 1)
	require.NoError(t, err)
	_, err = userCart.AddItem(productB, 1)
	require.NoError(t, err)

	sessionCart := newTestCart(t, cart.ForSession("anon"))
	_, err = sessionCart.AddItem(productA, 2)
	require.NoError(t, err)

	carts := new(MockCartRepository)
	carts.On("FindByIdentity", mock.Anything, cart.ForSession("anon")).Return(sessionCart, nil)
	carts.On("FindByIdentity", mock.Anything, cart.ForUser(userID)).Return(userCart, nil)
	carts.On("SaveItems", mock.Anything, mock.Anything).Return(nil)
	carts.On("SaveCart", mock.Anything, sessionCart).Return(nil)
	events := &recordingPublisher{}

	require.NoError(t, newService(carts, new(MockProductRepository), events).Merge(ctx, "anon", userID))

	quantities := map[uuid.UUID]int{}
	for _, item := range userCart.LiveItems() {
		quantities[item.ProductID] = item.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{productA.ID: 3, productB.ID: 1}, quantities)
	assert.True(t, sessionCart.IsDeleted())
	require.Len(t, events.events, 1)
	assert.Equal(t, cart.EventTypeCartMerged, events.events[0].EventType())
	carts.AssertExpectations(t)
	carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCartService_Merge_NoSessionCart(t *testing.T) {
	ctx := context.Background()
	carts := new(MockCartRepository)
	carts.On("FindByIdentity", mock.Anything, cart.ForSession("anon")).Return(nil, cart.ErrCartNotFound)

	require.NoError(t, newService(carts, new(MockProductRepository), nil).Merge(ctx, "anon", uuid.New()))
	carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
