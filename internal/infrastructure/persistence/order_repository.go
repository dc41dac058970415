package persistence

import (
	"context"

	"github.com/freely/backend/internal/domain/order"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderNumberAttempts bounds how often Create regenerates a colliding number
const orderNumberAttempts = 5

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func withOrderItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.created_at ASC")
	})
}

// Create inserts the order and its items. Each attempt runs in its own
// savepoint so a unique violation on order_number leaves the surrounding
// transaction usable for the retry.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	db := conn(ctx, r.db)
	for attempt := 1; ; attempt++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Create(o).Error; err != nil {
				return err
			}
			if len(o.Items) == 0 {
				return nil
			}
			return tx.Create(&o.Items).Error
		})
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return err
		}
		if attempt == orderNumberAttempts {
			return order.ErrOrderNumberUnavailable.WithCause(err)
		}
		if err := o.RegenerateNumber(); err != nil {
			return err
		}
	}
}

// Save updates payment and fulfillment state
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	err := conn(ctx, r.db).Omit(clause.Associations).Save(o).Error
	if isDuplicateKey(err) {
		return shared.ErrConcurrencyConflict.WithMessage("Payment intent is already attached to another order")
	}
	return err
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := conn(ctx, r.db).Scopes(withOrderItems).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err, order.ErrOrderNotFound)
	}
	return &o, nil
}

// FindByNumber finds an order by its order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := conn(ctx, r.db).Scopes(withOrderItems).
		Where("order_number = ?", orderNumber).
		First(&o).Error; err != nil {
		return nil, translate(err, order.ErrOrderNotFound)
	}
	return &o, nil
}

// FindByPaymentIntentID finds the order a gateway intent was created for
func (r *GormOrderRepository) FindByPaymentIntentID(ctx context.Context, intentID string) (*order.Order, error) {
	var o order.Order
	if err := conn(ctx, r.db).Scopes(withOrderItems).
		Where("stripe_payment_intent_id = ?", intentID).
		First(&o).Error; err != nil {
		return nil, translate(err, order.ErrOrderNotFound)
	}
	return &o, nil
}

// FindByIDForOrganization finds an order by ID within an organization
func (r *GormOrderRepository) FindByIDForOrganization(ctx context.Context, organizationID, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := conn(ctx, r.db).
		Scopes(tenant.Scope(organizationID), withOrderItems).
		Where("id = ?", id).
		First(&o).Error; err != nil {
		return nil, translate(err, order.ErrOrderNotFound)
	}
	return &o, nil
}

// ListByUser returns a user's orders, newest first
func (r *GormOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (shared.Paginated[order.Order], error) {
	return r.list(conn(ctx, r.db).Model(&order.Order{}).Where("user_id = ?", userID), filter)
}

// ListByOrganization returns an organization's orders, newest first
func (r *GormOrderRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID, filter shared.Filter) (shared.Paginated[order.Order], error) {
	query := conn(ctx, r.db).Model(&order.Order{}).Scopes(tenant.Scope(organizationID))
	if status, ok := filter.Filters["payment_status"].(string); ok && status != "" {
		query = query.Where("payment_status = ?", status)
	}
	return r.list(query, filter)
}

func (r *GormOrderRepository) list(query *gorm.DB, filter shared.Filter) (shared.Paginated[order.Order], error) {
	filter = filter.Normalize()
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query = query.Where(
			`(LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(customer_email) LIKE ? ESCAPE '\')`,
			pattern, pattern,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return shared.Paginated[order.Order]{}, err
	}

	var orders []order.Order
	if err := query.
		Scopes(withOrderItems).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&orders).Error; err != nil {
		return shared.Paginated[order.Order]{}, err
	}
	return shared.NewPaginated(orders, total, filter.Page, filter.PageSize), nil
}
