package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DATE columns arrive in binary format through pgxpool's default exec mode
// and pgx refuses to scan them into a string. Every lottery_date scan in this
// package therefore goes through time.Time and formats afterwards; this pins
// the wire behavior that makes the detour necessary.
func TestDateColumnScansViaTimeNotString(t *testing.T) {
	m := pgtype.NewMap()
	day := time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC)

	buf, err := m.Encode(pgtype.DateOID, pgtype.BinaryFormatCode, pgtype.Date{Time: day, Valid: true}, nil)
	require.NoError(t, err)

	var s string
	err = m.Scan(pgtype.DateOID, pgtype.BinaryFormatCode, buf, &s)
	require.Error(t, err, "binary DATE must not scan into *string")

	var ts time.Time
	err = m.Scan(pgtype.DateOID, pgtype.BinaryFormatCode, buf, &ts)
	require.NoError(t, err)
	assert.Equal(t, "2026-06-13", ts.Format("2006-01-02"))
}
