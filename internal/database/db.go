package database

import (
	"errors"

	"github.com/BradenHooton/portal/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique constraints on the users table
const (
	constraintUsername = "users_username_key"
	constraintEmail    = "users_email_key"
	constraintUserID   = "users_user_id_key"
)

func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch pgErr.ConstraintName {
			case constraintUsername:
				return models.ErrDuplicateUsername
			case constraintEmail:
				return models.ErrDuplicateEmail
			}
			return models.ErrConflict
		case "23503": // foreign_key_violation
			return models.ErrBadRequest
		case "23502": // not_null_violation
			return models.ErrBadRequest
		case "22P02": // invalid_text_representation, e.g. a malformed uuid
			return models.ErrNotFound
		}
	}

	return err
}
