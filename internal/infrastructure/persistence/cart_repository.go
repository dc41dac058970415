package persistence

import (
	"context"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements cart.Repository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// withItems preloads live items in insertion order with their live product
func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Preload("Items.Product")
}

// FindByIdentity returns the live cart of an identity
func (r *GormCartRepository) FindByIdentity(ctx context.Context, identity cart.Identity) (*cart.Cart, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	query := conn(ctx, r.db).Scopes(withItems)
	if identity.IsUser() {
		query = query.Where("user_id = ?", *identity.UserID)
	} else {
		query = query.Where("session_id = ?", identity.SessionToken)
	}

	var c cart.Cart
	if err := query.Order("created_at DESC").First(&c).Error; err != nil {
		return nil, translate(err, cart.ErrCartNotFound)
	}
	return &c, nil
}

// FindByID returns a live cart by ID
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	var c cart.Cart
	if err := conn(ctx, r.db).Scopes(withItems).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, cart.ErrCartNotFound)
	}
	return &c, nil
}

// Save writes the cart row and every item in cart.Items. A second live cart
// for the same identity is rejected by a partial unique index and reported
// as a concurrency conflict.
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(c).Error; err != nil {
			if isDuplicateKey(err) {
				return shared.ErrConcurrencyConflict.WithMessage("A cart already exists for this identity")
			}
			return err
		}
		return saveItems(tx, c.Items...)
	})
}

// SaveCart writes the cart row only. Merge uses it for the retired session
// cart, whose moved and tombstoned lines are written through SaveItems.
func (r *GormCartRepository) SaveCart(ctx context.Context, c *cart.Cart) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(c).Error
}

// SaveItems writes the given items
func (r *GormCartRepository) SaveItems(ctx context.Context, items ...*cart.CartItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return saveItems(tx, items...)
	})
}

func saveItems(tx *gorm.DB, items ...*cart.CartItem) error {
	for _, item := range items {
		if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
			return err
		}
	}
	return nil
}
