package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/BradenHooton/portal/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("query: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"duplicate username", &pgconn.PgError{Code: "23505", ConstraintName: constraintUsername}, models.ErrDuplicateUsername},
		{"duplicate email", &pgconn.PgError{Code: "23505", ConstraintName: constraintEmail}, models.ErrDuplicateEmail},
		{"duplicate user id", &pgconn.PgError{Code: "23505", ConstraintName: constraintUserID}, models.ErrConflict},
		{"not null", &pgconn.PgError{Code: "23502"}, models.ErrBadRequest},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, models.ErrNotFound},
		{"passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapPostgresError(tt.err))
		})
	}
}
