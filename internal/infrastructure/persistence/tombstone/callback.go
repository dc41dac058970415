// Package tombstone filters soft-deleted rows out of every GORM statement.
//
// Any model whose schema has a deleted_at column gets
// "<table>.deleted_at IS NULL" added to SELECT, UPDATE, DELETE and Row
// statements. Repositories never write that predicate by hand; use
// db.Unscoped() to read tombstoned rows deliberately.
package tombstone

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the tombstone column name.
const Column = "deleted_at"

const callbackPrefix = "tombstone:"

// Register installs the tombstone filter on db.
func Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register(callbackPrefix+"query", addFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register(callbackPrefix+"update", addFilter); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register(callbackPrefix+"delete", addFilter); err != nil {
		return err
	}
	return cb.Row().Before("gorm:row").Register(callbackPrefix+"row", addFilter)
}

func addFilter(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Unscoped || stmt.Schema == nil {
		return
	}
	if stmt.Schema.LookUpField(Column) == nil {
		return
	}
	if hasFilter(stmt) {
		return
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: Column}, Value: nil},
	}})
}

// hasFilter guards against a statement reused for Count and Find.
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
		if eq, ok := expr.(clause.Eq); ok {
			if col, ok := eq.Column.(clause.Column); ok && col.Name == Column && eq.Value == nil {
				return true
			}
		}
	}
	return false
}
