package repository

import (
	"errors"
	"fmt"

	"certalert/internal/entity"
	"certalert/pkg/postgres"

	"github.com/jackc/pgx/v5"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// mapErr translates driver errors into entity sentinels.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
	case postgres.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, entity.ErrConflictingData)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
