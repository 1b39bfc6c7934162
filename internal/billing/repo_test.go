package billing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestTranslateInsertErrorDuplicateConstraint(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: duplicateInvoiceConstraint}
	require.ErrorIs(t, translateInsertError(dup), ErrDuplicateInvoice)

	// wrapped driver errors must still map
	wrapped := fmt.Errorf("exec insert: %w", dup)
	require.ErrorIs(t, translateInsertError(wrapped), ErrDuplicateInvoice)

	// other constraints and non-driver errors pass through unchanged
	other := &pgconn.PgError{Code: "23505", ConstraintName: "vendor_invoices_pkey"}
	require.NotErrorIs(t, translateInsertError(other), ErrDuplicateInvoice)

	plain := errors.New("connection reset")
	require.Equal(t, plain, translateInsertError(plain))
}
