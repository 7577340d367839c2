package database

import (
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

func TestStatementsAreIdempotentCreates(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 8)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{DBUser: "app", DBPass: "pw", DBHost: "db", DBPort: "3306", DBName: "cinema"})
	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", mc.User)
	assert.Equal(t, "pw", mc.Passwd)
	assert.Equal(t, "db:3306", mc.Addr)
	assert.Equal(t, "cinema", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, time.UTC, mc.Loc)
}
