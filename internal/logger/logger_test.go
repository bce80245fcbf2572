package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLinesGoToFileSink(t *testing.T) {
	var term, file bytes.Buffer
	l := NewWithWriters(&term, &file)

	l.Info("booking", "created")
	l.LogSecurity("login_failed", "alice")

	sc := bufio.NewScanner(&file)
	var entries []LogEntry
	for sc.Scan() {
		var e LogEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "BOOKING", entries[0].Category)
	assert.Equal(t, "created", entries[0].Message)
	assert.Equal(t, "logger_test.go", entries[0].File)
	assert.Equal(t, "WARN", entries[1].Level)
	assert.Equal(t, "[login_failed] alice", entries[1].Message)

	assert.Contains(t, term.String(), "created")
}

func TestLevelFilterAndAPIStatus(t *testing.T) {
	var file bytes.Buffer
	l := NewWithWriters(nil, &file)
	l.SetLevel(WARN)

	l.Debug("x", "dropped")
	l.Info("x", "dropped")
	l.LogAPI("GET", "/api/seats/1", 500, 3*time.Millisecond)

	var e LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &e))
	assert.Equal(t, "ERROR", e.Level)
	assert.Equal(t, "GET /api/seats/1 - 500 (3ms)", e.Message)
}

func TestNewCreatesDailyFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "studyroom")
	require.NoError(t, err)
	l.terminal = nil
	l.LogJob("sweep", "done")
	require.NoError(t, l.Close())

	name := filepath.Join(dir, "studyroom-"+time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"category":"JOB"`)
}

func TestNilAndNopLoggersAreSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("x", "y") })
	assert.NotPanics(t, func() { Nop().Error("x", "y") })
}
