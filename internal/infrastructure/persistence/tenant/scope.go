// Package tenant provides organization scoping for GORM.
//
// Merchant-facing queries are filtered by organization_id two ways: repositories
// apply Scope explicitly, and the callback registered by Register adds the
// filter automatically when the request context carries an active
// organization (set by the organization middleware). Statements that already
// filter on organization_id are left alone.
package tenant

import (
	"errors"
	"strings"

	"github.com/freely/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the organization column on tenant-owned tables.
const Column = "organization_id"

// ErrInvalidOrganizationID is returned when the context carries a malformed id
var ErrInvalidOrganizationID = errors.New("invalid organization_id in context")

// Scope restricts a query to one organization.
func Scope(organizationID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: Column},
			Value:  organizationID,
		})
	}
}

// Register installs the context-driven organization filter.
func Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:query", addFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:update", addFilter); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:delete", addFilter); err != nil {
		return err
	}
	return cb.Row().Before("gorm:row").Register("tenant:row", addFilter)
}

func addFilter(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil || stmt.Unscoped || stmt.Schema == nil {
		return
	}
	if stmt.Schema.LookUpField(Column) == nil {
		return
	}

	raw := logger.GetOrganizationID(stmt.Context)
	if raw == "" {
		return
	}
	orgID, err := uuid.Parse(raw)
	if err != nil {
		_ = db.AddError(ErrInvalidOrganizationID)
		return
	}
	if hasFilter(stmt) {
		return
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: Column}, Value: orgID},
	}})
}

func hasFilter(stmt *gorm.Statement) bool {
	c, ok := stmt.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if exprFilters(expr) {
			return true
		}
	}
	return false
}

func exprFilters(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		col, ok := e.Column.(clause.Column)
		return ok && col.Name == Column
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if exprFilters(cond) {
				return true
			}
		}
	case clause.Expr:
		return strings.Contains(e.SQL, Column)
	}
	return false
}
