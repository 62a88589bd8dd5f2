// Package store persists invoices and work orders with gorm. Every write is a
// single statement (or a single transaction for an invoice and its items), so
// the stores never hold locks across calls.
package store

import (
	"math"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = errors.New("record not found")

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func orderBySeq(db *gorm.DB) *gorm.DB {
	return db.Order("seq")
}

// offset returns the row offset of page. ok is false when the offset does
// not fit in an int, which can only be past the last row.
func offset(page, perPage int) (n int, ok bool) {
	if page < 1 {
		page = 1
	}
	if perPage > 0 && page-1 > math.MaxInt/perPage {
		return 0, false
	}
	return (page - 1) * perPage, true
}
