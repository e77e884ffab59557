package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	token, err := GenerateToken(7, "staff", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, "7", claims.Subject)

	BlacklistToken(token, time.Now().Add(time.Minute))
	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateToken_ReloginAfterLogout(t *testing.T) {
	SetJWTSecret("unit-test-secret")

	first, err := GenerateToken(9, "admin", time.Hour)
	require.NoError(t, err)
	BlacklistToken(first, time.Now().Add(time.Hour))

	second, err := GenerateToken(9, "admin", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	claims, err := ParseToken(second)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClassifyDBError(t *testing.T) {
	assert.Equal(t, "", ClassifyDBError(nil))
	assert.Equal(t, DBErrTableNotFound, ClassifyDBError(errors.New("no such table: orders")))
	assert.Equal(t, DBErrTableNotFound, ClassifyDBError(errors.New("Error 1146: Table 'cafe.orders' doesn't exist")))
	assert.Equal(t, DBErrField, ClassifyDBError(errors.New("Error 1054: Unknown column 'foo' in 'field list'")))
	assert.Equal(t, DBErrConnection, ClassifyDBError(errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")))
	assert.Equal(t, DBErrGeneric, ClassifyDBError(errors.New("deadlock found")))
}

func TestFormatPeso(t *testing.T) {
	assert.Equal(t, "₱0.00", FormatPeso(decimal.Zero))
	assert.Equal(t, "₱150.00", FormatPeso(decimal.NewFromInt(150)))
	assert.Equal(t, "₱1,234.50", FormatPeso(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "₱1,000,000.25", FormatPeso(decimal.RequireFromString("1000000.25")))
}
