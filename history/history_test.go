package history

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return NewLedger(filepath.Join(t.TempDir(), "history.jsonl"))
}

func TestAppendAndLoadPreservesInsertionOrder(t *testing.T) {
	ledger := newTestLedger(t)

	require.NoError(t, ledger.Append(Record{
		SelectedAtUnix: 100, Identity: "work", AccountID: "111", AccountName: "Payments", RoleName: "Admin", Cwd: "/tmp",
	}))
	require.NoError(t, ledger.Append(Record{
		SelectedAtUnix: 200, Identity: "work", AccountID: "222", AccountName: "Data", RoleName: "ReadOnly", Cwd: "/tmp",
	}))

	records, err := ledger.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "111", records[0].AccountID)
	assert.Equal(t, "222", records[1].AccountID)
}

func TestAppendFillsTimestampAndCwd(t *testing.T) {
	ledger := newTestLedger(t)
	require.NoError(t, ledger.Append(Record{Identity: "work", AccountID: "111", RoleName: "Admin"}))

	records, err := ledger.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotZero(t, records[0].SelectedAtUnix)
	assert.NotEmpty(t, records[0].Cwd)
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	contents := `{"selected_at_unix":1,"identity":"work","account_id":"111","account_name":"A","role_name":"Admin"}
not-json
{"selected_at_unix":2,"identity":"work","account_id":"222","account_name":"B","role_name":"Admin"}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	records, err := NewLedger(path).Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "111", records[0].AccountID)
	assert.Equal(t, "222", records[1].AccountID)
}

func TestRecentOrdersByTimestamp(t *testing.T) {
	ledger := newTestLedger(t)
	require.NoError(t, ledger.Append(Record{SelectedAtUnix: 100, Identity: "work", AccountID: "111", RoleName: "Admin"}))
	require.NoError(t, ledger.Append(Record{SelectedAtUnix: 300, Identity: "work", AccountID: "333", RoleName: "Admin"}))
	require.NoError(t, ledger.Append(Record{SelectedAtUnix: 200, Identity: "work", AccountID: "222", RoleName: "Admin"}))

	records, err := ledger.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "333", records[0].AccountID)
	assert.Equal(t, "222", records[1].AccountID)
}

func TestClearTruncatesLedger(t *testing.T) {
	ledger := newTestLedger(t)
	require.NoError(t, ledger.Append(Record{Identity: "work", AccountID: "111", RoleName: "Admin"}))
	require.NoError(t, ledger.Clear())

	records, err := ledger.Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	// Clearing an already-empty ledger is fine.
	require.NoError(t, ledger.Clear())
}

func TestBuildStatsFiltersByIdentity(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	records := []Record{
		{SelectedAtUnix: now.Unix() - 3600, Identity: "work", AccountID: "111", RoleName: "Admin", Cwd: "/repo"},
		{SelectedAtUnix: now.Unix() - 7200, Identity: "personal", AccountID: "111", RoleName: "Admin", Cwd: "/repo"},
	}

	stats := BuildStats(records, "work", now, "/repo")
	require.Len(t, stats, 1)
	entry := stats[Key{AccountID: "111", RoleName: "Admin"}]
	assert.Equal(t, 1, entry.Frequency)
	assert.True(t, entry.CwdMatches)
}

func TestBuildStatsRecencyAndWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	records := []Record{
		{SelectedAtUnix: now.Unix() - 10*86400, Identity: "work", AccountID: "111", RoleName: "Admin"},
		{SelectedAtUnix: now.Unix() - 40*86400, Identity: "work", AccountID: "111", RoleName: "Admin"},
	}

	stats := BuildStats(records, "work", now, "")
	entry := stats[Key{AccountID: "111", RoleName: "Admin"}]
	// Only the 10-day-old record falls in the 30-day frequency window.
	assert.Equal(t, 1, entry.Frequency)
	assert.InDelta(t, math.Exp(-10.0/14.0), entry.Recency, 1e-12)
}

func TestScoreCombinesSignals(t *testing.T) {
	stats := map[Key]Stats{
		{AccountID: "111", RoleName: "Admin"}: {Recency: 0.75, Frequency: 9, CwdMatches: true},
	}

	frequency := math.Log(10) / math.Log(31)
	expected := 0.75*recencyWeight + frequency*frequencyWeight + contextWeight
	assert.InDelta(t, expected, Score(stats, "111", "Admin"), 1e-12)

	assert.Zero(t, Score(stats, "999", "ReadOnly"))
}

func TestFormatRecord(t *testing.T) {
	record := Record{
		SelectedAtUnix: 1_700_000_000,
		Identity:       "work",
		AccountID:      "111111111111",
		RoleName:       "Admin",
		Cwd:            "/repo",
	}
	assert.Equal(t, "2023-11-14T22:13:20Z\twork\t111111111111\tAdmin\t/repo", FormatRecord(record))

	record.Cwd = ""
	assert.Contains(t, FormatRecord(record), "\t-")
}
