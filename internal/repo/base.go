package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// WithTx rebinds the base to tx. A nil tx keeps the current connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// ForUpdate returns DB(ctx) with a row lock clause on dialects that support
// SELECT ... FOR UPDATE. Sqlite serializes writers at the database level.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	q := b.DB(ctx)
	if b.SupportsRowLocks() {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// SupportsRowLocks reports whether the bound dialect honours row lock clauses.
func (b Base) SupportsRowLocks() bool {
	if b.db == nil || b.db.Dialector == nil {
		return false
	}
	return b.db.Dialector.Name() == "postgres"
}
