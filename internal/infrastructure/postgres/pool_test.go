package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/auirah-api/internal/domain"
)

func TestUniqueErr(t *testing.T) {
	err := uniqueErr(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "The email has already been taken.", err.Error())

	err = uniqueErr(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "other_key"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	plain := errors.New("boom")
	assert.Equal(t, plain, uniqueErr(plain))
	fk := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(fk), uniqueErr(fk))
}
