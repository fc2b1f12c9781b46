package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUniqueViolation is returned when a write clashes with a unique key.
	ErrUniqueViolation = errors.New("unique constraint violated")
	// ErrForeignKeyViolation is returned when a delete or write breaks a reference.
	ErrForeignKeyViolation = errors.New("foreign key constraint violated")
)

const (
	pgUniqueViolation           = "23505"
	pgForeignKeyViolation       = "23503"
	// Malformed uuid literals cannot name an existing row.
	pgInvalidTextRepresentation = "22P02"
)

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrUniqueViolation
		case pgForeignKeyViolation:
			return ErrForeignKeyViolation
		case pgInvalidTextRepresentation:
			return ErrNotFound
		}
	}
	return err
}
