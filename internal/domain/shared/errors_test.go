package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	t.Run("matches sentinel by code", func(t *testing.T) {
		err := ErrNotFound.WithMessage("Order not found")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrAlreadyExists))
		assert.Equal(t, "Order not found", err.Error())
	})

	t.Run("wraps cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := NewDomainError("PAYMENT_GATEWAY_ERROR", "Payment gateway error").WithCause(cause)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "Payment gateway error: connection refused", err.Error())
	})

	t.Run("found through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("load cart: %w", ErrNotFound)
		var de *DomainError
		assert.True(t, errors.As(err, &de))
		assert.Equal(t, "NOT_FOUND", de.Code)
	})
}

func TestBaseEntity_Tombstone(t *testing.T) {
	e := NewBaseEntity()
	assert.False(t, e.IsDeleted())

	before := e.UpdatedAt
	e.MarkDeleted(before.Add(1))
	assert.True(t, e.IsDeleted())
	assert.Equal(t, *e.DeletedAt, e.UpdatedAt)
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)

	assert.Equal(t, 40, Filter{Page: 3, PageSize: 20}.Offset())
	assert.Equal(t, 0, Filter{}.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(41), p.Total)
}
