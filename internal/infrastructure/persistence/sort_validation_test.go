package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE orders;--", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "total_cents ASC", orderClause("total_cents", "asc", OrderSortFields, "created_at"))
	assert.Equal(t, "created_at DESC", orderClause("price; DROP", "asc;", OrderSortFields, "created_at"))
	assert.Equal(t, "created_at DESC", orderClause("", "", OrderSortFields, "created_at"))
}
