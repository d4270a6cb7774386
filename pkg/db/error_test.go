package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "payments_gateway_ref" (SQLSTATE 23505)`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: receipts.payment_id")))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("create payment: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
	assert.False(t, IsDuplicateKeyErr(nil))
}

func TestDialectSelection(t *testing.T) {
	d, err := Dialect(config.Config{DBType: "postgres"})
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Dialect(config.Config{DBType: "sqlite", DBName: "file::memory:"})
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	for _, dbType := range []string{"mysql", "oracle"} {
		_, err = Dialect(config.Config{DBType: dbType})
		assert.ErrorIs(t, err, ErrUnsupportedDialect, dbType)
	}
}
