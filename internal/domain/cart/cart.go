package cart

import (
	"strings"
	"time"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Cart errors
var (
	ErrIdentityRequired = shared.NewDomainError("CART_IDENTITY_REQUIRED", "Either a user or a cart session must be provided")
	ErrCartNotFound     = shared.NewDomainError("CART_NOT_FOUND", "Cart not found")
	ErrItemNotFound     = shared.NewDomainError("CART_ITEM_NOT_FOUND", "Cart item not found")
	ErrInvalidQuantity  = shared.NewDomainError("INVALID_QUANTITY", "Quantity must be greater than 0")
	ErrCartEmpty        = shared.NewDomainError("CART_EMPTY", "Cart is empty")
	ErrMixedCurrencies  = shared.NewDomainError("MIXED_CURRENCIES", "Cart items use more than one currency")
)

// Identity is the key a cart is resolved by: a signed-in user or an
// anonymous cart session token, never both.
type Identity struct {
	UserID       *uuid.UUID
	SessionToken string
}

// ForUser returns the identity of a signed-in user
func ForUser(userID uuid.UUID) Identity {
	return Identity{UserID: &userID}
}

// ForSession returns the identity of an anonymous cart session
func ForSession(token string) Identity {
	return Identity{SessionToken: token}
}

// Validate checks that exactly one key is set
func (i Identity) Validate() error {
	hasUser := i.UserID != nil && *i.UserID != uuid.Nil
	hasSession := strings.TrimSpace(i.SessionToken) != ""
	if hasUser == hasSession {
		return ErrIdentityRequired
	}
	return nil
}

// IsUser reports whether the identity is a signed-in user
func (i Identity) IsUser() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

// Cart is a shopping cart owned by exactly one identity
type Cart struct {
	shared.BaseAggregateRoot
	UserID       *uuid.UUID  `gorm:"type:uuid;index"`
	SessionToken *string     `gorm:"column:session_id;type:varchar(255);index"`
	Items        []*CartItem `gorm:"foreignKey:CartID"`
}

// TableName returns the table name for GORM
func (Cart) TableName() string {
	return "carts"
}

// CartItem is a line in a cart. Price and currency are captured when the
// product is first added, so later price changes do not affect the cart.
type CartItem struct {
	shared.BaseEntity
	CartID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	Quantity   int              `gorm:"not null;default:1"`
	PriceCents int64            `gorm:"not null"`
	Currency   string           `gorm:"type:varchar(3);not null;default:'USD'"`
	Product    *catalog.Product `gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for GORM
func (CartItem) TableName() string {
	return "cart_items"
}

// Price returns the captured unit price
func (i *CartItem) Price() valueobject.Money {
	return valueobject.FromCents(i.PriceCents, i.Currency)
}

// Subtotal returns price * quantity
func (i *CartItem) Subtotal() valueobject.Money {
	return i.Price().MultiplyQuantity(i.Quantity)
}

// SubtotalCents returns price_cents * quantity
func (i *CartItem) SubtotalCents() int64 {
	return i.Subtotal().Cents()
}

// PriceDisplay renders the unit price
func (i *CartItem) PriceDisplay() string {
	return i.Price().Display()
}

// SubtotalDisplay renders the line subtotal
func (i *CartItem) SubtotalDisplay() string {
	return i.Subtotal().Display()
}

// NewCart creates an empty cart for the identity
func NewCart(identity Identity) (*Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	c := &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Items:             make([]*CartItem, 0),
	}
	if identity.IsUser() {
		userID := *identity.UserID
		c.UserID = &userID
	} else {
		token := identity.SessionToken
		c.SessionToken = &token
	}
	return c, nil
}

// LiveItems returns the lines without a tombstone
func (c *Cart) LiveItems() []*CartItem {
	items := make([]*CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if !item.IsDeleted() {
			items = append(items, item)
		}
	}
	return items
}

// FindItem returns the live line with the given ID
func (c *Cart) FindItem(itemID uuid.UUID) (*CartItem, error) {
	for _, item := range c.Items {
		if item.ID == itemID && !item.IsDeleted() {
			return item, nil
		}
	}
	return nil, ErrItemNotFound
}

// findProductLine returns the live line for a product, if any
func (c *Cart) findProductLine(productID uuid.UUID) *CartItem {
	for _, item := range c.Items {
		if item.ProductID == productID && !item.IsDeleted() {
			return item
		}
	}
	return nil
}

// AddItem adds quantity of a product. An existing line for the product has
// its quantity increased and keeps its original price; otherwise a new line
// snapshots the product's current price and currency.
// Stock is not checked here.
func (c *Cart) AddItem(product *catalog.Product, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if existing := c.findProductLine(product.ID); existing != nil {
		existing.Quantity += quantity
		existing.Touch()
		c.Touch()
		return existing, nil
	}

	item := &CartItem{
		BaseEntity: shared.NewBaseEntity(),
		CartID:     c.ID,
		ProductID:  product.ID,
		Quantity:   quantity,
		PriceCents: product.PriceCents,
		Currency:   product.Currency,
		Product:    product,
	}
	c.Items = append(c.Items, item)
	c.Touch()
	return item, nil
}

// UpdateQuantity sets a line's quantity. Quantities of zero or less are
// rejected and leave the cart unchanged.
func (c *Cart) UpdateQuantity(itemID uuid.UUID, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	item, err := c.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	item.Touch()
	c.Touch()
	return item, nil
}

// RemoveItem sets the tombstone of a line
func (c *Cart) RemoveItem(itemID uuid.UUID) (*CartItem, error) {
	item, err := c.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	item.MarkDeleted(time.Now())
	c.Touch()
	return item, nil
}

// Clear sets the tombstone of every live line and returns them
func (c *Cart) Clear() []*CartItem {
	now := time.Now()
	cleared := c.LiveItems()
	for _, item := range cleared {
		item.MarkDeleted(now)
	}
	c.Touch()
	return cleared
}

// MergeFrom moves the live lines of an anonymous session cart into this cart.
// A product already in this cart has the session quantity added to its line
// and the session line is tombstoned; other lines are reassigned to this cart.
// The session cart is tombstoned afterwards. The returned items are every
// line whose row changed.
func (c *Cart) MergeFrom(session *Cart) ([]*CartItem, error) {
	if session.ID == c.ID {
		return nil, shared.ErrInvalidInput.WithMessage("Cannot merge a cart into itself")
	}

	now := time.Now()
	changed := make([]*CartItem, 0, len(session.Items))
	remaining := make([]*CartItem, 0, len(session.Items))

	for _, item := range session.Items {
		if item.IsDeleted() {
			remaining = append(remaining, item)
			continue
		}
		if existing := c.findProductLine(item.ProductID); existing != nil {
			existing.Quantity += item.Quantity
			existing.Touch()
			item.MarkDeleted(now)
			changed = append(changed, existing, item)
			remaining = append(remaining, item)
			continue
		}
		item.CartID = c.ID
		item.Touch()
		c.Items = append(c.Items, item)
		changed = append(changed, item)
	}

	session.Items = remaining
	session.MarkDeleted(now)
	c.Touch()
	c.AddDomainEvent(NewCartMergedEvent(c, session))
	return changed, nil
}

// Total returns the sum of the live line subtotals. Lines in more than one
// currency fail with ErrMixedCurrencies.
func (c *Cart) Total() (valueobject.Money, error) {
	total := valueobject.Zero(valueobject.NormalizeCurrency(c.Currency()))
	for _, item := range c.LiveItems() {
		sum, err := total.Add(item.Subtotal())
		if err != nil {
			return valueobject.Money{}, ErrMixedCurrencies.WithCause(err)
		}
		total = sum
	}
	return total, nil
}

// TotalCents returns the sum of price_cents * quantity over live lines.
// A mixed-currency cart cannot be checked out and reports the plain sum.
func (c *Cart) TotalCents() int64 {
	if total, err := c.Total(); err == nil {
		return total.Cents()
	}
	var sum int64
	for _, item := range c.LiveItems() {
		sum += item.SubtotalCents()
	}
	return sum
}

// ItemCount returns the total quantity over live lines
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.LiveItems() {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no live lines
func (c *Cart) IsEmpty() bool {
	return len(c.LiveItems()) == 0
}

// Currency returns the currency of the first live line, or the default
func (c *Cart) Currency() string {
	items := c.LiveItems()
	if len(items) == 0 {
		return valueobject.DefaultCurrency.String()
	}
	return items[0].Currency
}

// TotalDisplay renders the cart total
func (c *Cart) TotalDisplay() string {
	return valueobject.FormatCents(c.TotalCents())
}
