package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey is returned when an insert loses the atomic check-and-insert
// race on a unique index. Concurrent writers on separate instances are resolved
// here, at the persistence layer, not by in-memory locks.
var ErrDuplicateKey = errors.New("duplicate key")

// isUniqueViolation reports whether err is a unique-constraint violation from
// Postgres (SQLSTATE 23505) or GORM's translated form.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
