//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/freely/backend/internal/domain/cart"
	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/identity"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/migration"
	"github.com/freely/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
)

// newPostgresDatabase starts a throwaway PostgreSQL container and applies the
// embedded SQL migrations, so the partial indexes under test are the real ones.
func newPostgresDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("freely_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(postgres.Open(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func TestPostgres_ProductSlugUniqueAmongLiveRows(t *testing.T) {
	db := newPostgresDatabase(t)
	ctx := context.Background()
	products := NewGormProductRepository(db.DB)

	org, err := identity.NewOrganization("Pottery", "pottery")
	require.NoError(t, err)
	require.NoError(t, NewGormOrganizationRepository(db.DB).Save(ctx, org))

	newMug := func() *catalog.Product {
		p, err := catalog.NewProduct(org.ID, catalog.ProductDetails{
			Name:        "Mug",
			PriceCents:  1800,
			Currency:    "USD",
			IsAvailable: true,
		})
		require.NoError(t, err)
		return p
	}

	first := newMug()
	require.NoError(t, products.Save(ctx, first))
	assert.ErrorIs(t, products.Save(ctx, newMug()), catalog.ErrSlugTaken)

	// A tombstoned product frees its slug
	first.Delete()
	require.NoError(t, products.Save(ctx, first))
	require.NoError(t, products.Save(ctx, newMug()))
}

func TestPostgres_OneLiveCartPerUser(t *testing.T) {
	db := newPostgresDatabase(t)
	ctx := context.Background()

	user, err := identity.NewUser("shopper@example.com", "correct horse battery", nil)
	require.NoError(t, err)
	require.NoError(t, NewGormUserRepository(db.DB).Save(ctx, user))

	carts := NewGormCartRepository(db.DB)
	first, err := cart.NewCart(cart.ForUser(user.ID))
	require.NoError(t, err)
	require.NoError(t, carts.Save(ctx, first))

	second, err := cart.NewCart(cart.ForUser(user.ID))
	require.NoError(t, err)
	assert.ErrorIs(t, carts.Save(ctx, second), shared.ErrConcurrencyConflict)

	found, err := carts.FindByIdentity(ctx, cart.ForUser(user.ID))
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestPostgres_TransactionRollback(t *testing.T) {
	db := newPostgresDatabase(t)
	ctx := context.Background()
	orgs := NewGormOrganizationRepository(db.DB)

	org, err := identity.NewOrganization("Ghost", "ghost")
	require.NoError(t, err)

	err = db.Transaction(ctx, func(ctx context.Context) error {
		if err := orgs.Save(ctx, org); err != nil {
			return err
		}
		return shared.ErrInvalidState
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = orgs.FindByID(ctx, org.ID)
	assert.ErrorIs(t, err, identity.ErrOrganizationNotFound)
}
