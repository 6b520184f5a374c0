package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OdysseyFarmer/internal/model"
)

func TestSQLiteRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "farm.db")
	r, err := NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordOutcome(&model.LogEntry{
		Time: time.Now(), RunID: "run-1", Account: "0xa", Action: "ping",
		Outcome: model.Sent("0xhash"),
	}))
	require.NoError(t, r.RecordOutcome(&model.LogEntry{
		Time: time.Now(), Account: "0xa", Action: "ping",
		Outcome: model.Skipped("insufficient funds"),
	}))
	assert.Equal(t, 2, countRows(t, r, `SELECT COUNT(*) FROM outcomes`))

	require.NoError(t, r.RecordBalances([]model.BalanceReading{
		{Identity: "0xa", Amount: uint256.NewInt(5)},
		{Identity: "0xb", Err: "timeout"},
	}))
	assert.Equal(t, 1, countRows(t, r, `SELECT COUNT(*) FROM balance_snapshots WHERE balance_wei IS NULL`))
}

func countRows(t *testing.T, r *SQLiteRecorder, query string) int {
	t.Helper()
	var n int
	require.NoError(t, r.db.QueryRow(query).Scan(&n))
	return n
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordOutcome(&model.LogEntry{}))
	assert.NoError(t, r.RecordBalances(nil))
	assert.NoError(t, r.Close())
}
