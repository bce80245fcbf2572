package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(Settings{User: "app", Pass: "p@ss:word", Host: "db", Port: "3307", Name: "studyroom"})

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "p@ss:word", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db:3307", cfg.Addr)
	assert.Equal(t, "studyroom", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.MultiStatements)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "'+00:00'", cfg.Params["time_zone"])
}

func TestDSNWithoutPassword(t *testing.T) {
	cfg, err := mysql.ParseDSN(DSN(Settings{User: "root", Host: "localhost", Port: "3306", Name: "x"}))
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Empty(t, cfg.Passwd)
}
