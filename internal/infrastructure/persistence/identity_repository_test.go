package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/freely/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, db *Database, email string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(email, "correct-horse-battery", nil)
	require.NoError(t, err)
	require.NoError(t, NewGormUserRepository(db.DB).Save(context.Background(), user))
	return user
}

func TestGormUserRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormUserRepository(db.DB)
	ctx := context.Background()

	user := createTestUser(t, db, "Ada@Example.com")

	t.Run("finds by email case-insensitively", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "  ADA@example.COM ")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, "ada@example.com", found.Email)
	})

	t.Run("reports existing email", func(t *testing.T) {
		exists, err := repo.ExistsByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByEmail(ctx, "grace@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		dup, err := identity.NewUser("ada@example.com", "another-password", nil)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, dup), identity.ErrEmailTaken)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})
}

func TestGormOrganizationRepository_Membership(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormOrganizationRepository(db.DB)
	ctx := context.Background()

	user := createTestUser(t, db, "owner@example.com")
	first := createTestOrganization(t, db, "first-shop")
	second := createTestOrganization(t, db, "second-shop")
	other := createTestOrganization(t, db, "other-shop")

	m1 := identity.NewMembership(user.ID, first.ID)
	m2 := identity.NewMembership(user.ID, second.ID)
	m2.CreatedAt = m1.CreatedAt.Add(time.Second)
	require.NoError(t, repo.AddMember(ctx, m1))
	require.NoError(t, repo.AddMember(ctx, m2))
	require.NoError(t, repo.AddMember(ctx, m1), "adding an existing membership is a no-op")

	orgs, err := repo.FindByMember(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, first.ID, orgs[0].ID)
	assert.Equal(t, second.ID, orgs[1].ID)

	isMember, err := repo.IsMember(ctx, user.ID, second.ID)
	require.NoError(t, err)
	assert.True(t, isMember)

	isMember, err = repo.IsMember(ctx, user.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, isMember)

	t.Run("slug stays reserved", func(t *testing.T) {
		exists, err := repo.ExistsBySlug(ctx, "first-shop")
		require.NoError(t, err)
		assert.True(t, exists)

		dup, err := identity.NewOrganization("Copy", "first-shop")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, dup), identity.ErrOrganizationSlug)
	})

	t.Run("find by slug", func(t *testing.T) {
		found, err := repo.FindBySlug(ctx, "second-shop")
		require.NoError(t, err)
		assert.Equal(t, second.ID, found.ID)

		_, err = repo.FindBySlug(ctx, "missing")
		assert.ErrorIs(t, err, identity.ErrOrganizationNotFound)
	})
}

func TestGormSessionRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormSessionRepository(db.DB)
	ctx := context.Background()

	user := createTestUser(t, db, "session@example.com")
	session := identity.NewUserSession(user.ID, "abc123", time.Hour)
	require.NoError(t, repo.Save(ctx, session))

	t.Run("loads the user with the session", func(t *testing.T) {
		found, err := repo.FindByTokenHash(ctx, "abc123")
		require.NoError(t, err)
		require.NotNil(t, found.User)
		assert.Equal(t, "session@example.com", found.User.Email)
	})

	t.Run("revoked sessions are not found", func(t *testing.T) {
		session.Revoke()
		require.NoError(t, repo.Save(ctx, session))

		_, err := repo.FindByTokenHash(ctx, "abc123")
		assert.ErrorIs(t, err, identity.ErrSessionNotFound)
		_, err = repo.FindByID(ctx, session.ID)
		assert.ErrorIs(t, err, identity.ErrSessionNotFound)
	})
}
