// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateVote reports that a concurrent request inserted the same
// ledger row first. The whole transaction was rolled back and can be retried.
var ErrDuplicateVote = errors.New("duplicate vote")

const pgUniqueViolation = "23505"

// isUniqueViolation recognizes duplicate keys whether or not the dialector
// translated the driver error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// forUpdate locks the selected rows until the transaction ends. Dialects
// without row locks (SQLite) drop the clause and rely on database-level
// write locking instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
