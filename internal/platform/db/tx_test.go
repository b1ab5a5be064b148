package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestClassifyErrorSerializationFailure(t *testing.T) {
	err := ClassifyError(&pgconn.PgError{Code: "40001"})
	require.ErrorIs(t, err, shared.ErrTransactionConflict)
}

func TestClassifyErrorDeadlock(t *testing.T) {
	wrapped := fmt.Errorf("insert movement: %w", &pgconn.PgError{Code: "40P01"})
	err := ClassifyError(wrapped)
	require.ErrorIs(t, err, shared.ErrTransactionConflict)
}

func TestClassifyErrorPassthrough(t *testing.T) {
	cause := errors.New("connection reset")
	require.Equal(t, cause, ClassifyError(cause))

	constraint := &pgconn.PgError{Code: "23505"}
	require.Equal(t, error(constraint), ClassifyError(constraint))
}
