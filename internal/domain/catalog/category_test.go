package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategory(t *testing.T) {
	orgID := uuid.New()

	t.Run("creates category", func(t *testing.T) {
		category, err := NewCategory(orgID, "Hot Drinks", "hot-drinks", "Coffee and tea")
		require.NoError(t, err)
		assert.Equal(t, orgID, category.OrganizationID)
		assert.Equal(t, "hot-drinks", category.Slug)
		require.Len(t, category.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeCategoryCreated, category.GetDomainEvents()[0].EventType())
	})

	t.Run("derives slug", func(t *testing.T) {
		category, err := NewCategory(orgID, "Hot Drinks", "", "")
		require.NoError(t, err)
		assert.Equal(t, "hot-drinks", category.Slug)
	})

	t.Run("rejects long name", func(t *testing.T) {
		long := make([]byte, 101)
		for i := range long {
			long[i] = 'a'
		}
		_, err := NewCategory(orgID, string(long), "ok", "")
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestCategory_Update(t *testing.T) {
	category, err := NewCategory(uuid.New(), "Hot Drinks", "", "")
	require.NoError(t, err)

	name := "Warm Drinks"
	require.NoError(t, category.Update(&name, nil, nil))
	assert.Equal(t, "Warm Drinks", category.Name)
	assert.Equal(t, "hot-drinks", category.Slug)

	bad := "Not A Slug"
	assert.ErrorIs(t, category.Update(nil, &bad, nil), ErrInvalidSlug)

	category.Delete()
	assert.True(t, category.IsDeleted())
}
