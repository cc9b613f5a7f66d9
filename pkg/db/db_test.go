package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openJournal(t *testing.T) *Database {
	t.Helper()
	database, err := MakeDatabase(filepath.Join(t.TempDir(), "journal.db"), zaptest.NewLogger(t))
	if err != nil {
		// The sqlite driver needs cgo.
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestPhaseCompletedJournalsInOrder(t *testing.T) {
	database := openJournal(t)

	database.PhaseCompleted(lifecycle.PhaseCreate, 5*time.Millisecond, nil)
	database.PhaseCompleted(lifecycle.PhaseStart, time.Second, errors.New("timed out"))

	records, err := GetPhasesByRun(database.RunID, database)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "create", records[0].Phase)
	assert.Equal(t, int64(5), records[0].ElapsedMs)
	assert.Empty(t, records[0].Error)
	assert.Equal(t, "start", records[1].Phase)
	assert.Equal(t, "timed out", records[1].Error)
}

func TestRunsAreSeparated(t *testing.T) {
	database := openJournal(t)
	database.PhaseCompleted(lifecycle.PhaseCreate, 0, nil)

	records, err := GetPhasesByRun("another-run", database)
	require.NoError(t, err)
	assert.Empty(t, records)
}
