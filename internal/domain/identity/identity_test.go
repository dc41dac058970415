package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("creates user with hashed password", func(t *testing.T) {
		user, err := NewUser("  Alice@Example.COM ", "s3cretpass", nil)
		require.NoError(t, err)

		assert.Equal(t, "alice@example.com", user.Email)
		assert.True(t, user.EmailVerified)
		require.NotNil(t, user.PasswordHash)
		assert.NotEqual(t, "s3cretpass", *user.PasswordHash)
		assert.True(t, user.VerifyPassword("s3cretpass"))
		assert.False(t, user.VerifyPassword("wrong-pass"))
		assert.Equal(t, "alice@example.com", user.DisplayName())

		events := user.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeUserRegistered, events[0].EventType())
	})

	t.Run("keeps username", func(t *testing.T) {
		name := "alice"
		user, err := NewUser("alice@example.com", "s3cretpass", &name)
		require.NoError(t, err)
		require.NotNil(t, user.Username)
		assert.Equal(t, "alice", user.DisplayName())
	})

	t.Run("blank username becomes nil", func(t *testing.T) {
		blank := "  "
		user, err := NewUser("alice@example.com", "s3cretpass", &blank)
		require.NoError(t, err)
		assert.Nil(t, user.Username)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := NewUser("not-an-email", "s3cretpass", nil)
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewUser("alice@example.com", "short", nil)
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("user without password never verifies", func(t *testing.T) {
		u := &User{}
		assert.False(t, u.VerifyPassword(""))
	})
}

func TestNewOrganization(t *testing.T) {
	org, err := NewOrganization("Acme Coffee", "acme-coffee")
	require.NoError(t, err)
	assert.True(t, org.IsActive)
	assert.Equal(t, org.ID, org.GetDomainEvents()[0].OrganizationID())

	_, err = NewOrganization("", "acme")
	assert.ErrorIs(t, err, ErrInvalidOrganization)

	_, err = NewOrganization("Acme", "Acme Coffee")
	assert.ErrorIs(t, err, ErrInvalidOrganization)

	m := NewMembership(uuid.New(), org.ID)
	assert.Equal(t, org.ID, m.OrganizationID)
}

func TestUserSession(t *testing.T) {
	s := NewUserSession(uuid.New(), "hash", time.Hour)
	now := time.Now()

	assert.True(t, s.IsValid(now))
	assert.True(t, s.IsExpired(now.Add(2*time.Hour)))
	assert.False(t, s.IsValid(now.Add(2*time.Hour)))

	s.Revoke()
	assert.False(t, s.IsValid(now))
}
