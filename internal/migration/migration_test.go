package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpStatementsAreSplitAndRewritten(t *testing.T) {
	stmts, err := UpStatements(SQLiteRewrite)
	require.NoError(t, err)
	require.NotEmpty(t, stmts)

	var sawPayments bool
	for _, stmt := range stmts {
		assert.NotContains(t, stmt, "TIMESTAMPTZ")
		assert.NotContains(t, stmt, "TEXT[]")
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS payments") {
			sawPayments = true
		}
	}
	assert.True(t, sawPayments)
}
