package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresErrorFromEitherDriver(t *testing.T) {
	wrapped := fmt.Errorf("insert escrow: %w", &pgconn.PgError{Code: "23505", ConstraintName: "escrow_payments_booking_id_key"})
	pg, ok := PostgresError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "23505", pg.Code)
	assert.Equal(t, "escrow_payments_booking_id_key", pg.Constraint)

	pg, ok = PostgresError(&pq.Error{Code: "23503", Table: "disputes"})
	require.True(t, ok)
	assert.Equal(t, "23503", pg.Code)
	assert.Equal(t, "disputes", pg.Table)

	_, ok = PostgresError(errors.New("timeout"))
	assert.False(t, ok)
}

func TestDiagnostics(t *testing.T) {
	base := &pgconn.PgError{Code: "23505", Detail: "Key (booking_id) already exists."}
	err := Wrap(CodeConflict, base, "escrow exists")

	fields := Diagnostics(err)
	assert.Equal(t, CodeConflict, fields["error_code"])
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "Key (booking_id) already exists.", fields["pg_detail"])
	assert.NotContains(t, fields, "pg_table")
	assert.Len(t, fields["error_chain"], 2)

	assert.Empty(t, Diagnostics(nil))
}

func TestDiagnosticsWalksJoinedErrors(t *testing.T) {
	err := errors.Join(errors.New("job a"), fmt.Errorf("job b: %w", errors.New("lease lost")))
	assert.Len(t, Diagnostics(err)["error_chain"], 4)
}
