package persistence

import (
	"fmt"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/chat"
	"github.com/freely/backend/internal/domain/identity"
	"github.com/freely/backend/internal/domain/order"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&identity.User{},
		&identity.Organization{},
		&identity.UserOrganization{},
		&identity.UserSession{},
		&catalog.Category{},
		&catalog.Product{},
		&cart.Cart{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
		&chat.Conversation{},
		&chat.Message{},
	}
}

// liveUniqueIndexes enforce uniqueness among rows without a tombstone.
// Both PostgreSQL and SQLite support partial indexes.
var liveUniqueIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_products_org_slug_live ON products (organization_id, slug) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_categories_org_slug_live ON categories (organization_id, slug) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_carts_user_live ON carts (user_id) WHERE deleted_at IS NULL AND user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_carts_session_live ON carts (session_id) WHERE deleted_at IS NULL AND session_id IS NOT NULL`,
}

// AutoMigrate creates or updates the schema from the models. Production
// databases are migrated with the SQL files under migrations/; this is used
// by tests and by app.auto_migrate in development.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range liveUniqueIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}
