package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/selgraph/internal/payload"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func mustEntry(t *testing.T, session string, seq int64, kind string, args payload.Object, tick int64) Entry {
	t.Helper()
	e, err := NewEntry(session, seq, kind, args, tick)
	require.NoError(t, err)
	return e
}

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, j.Close())
	}

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	version, err := j.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Pragmas(t *testing.T) {
	j := openTestJournal(t)

	mode, err := j.pragma("journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	fk, err := j.pragma("foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, "1", fk)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	assert.Error(t, err)
}

func TestAppend_ReadAll(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	e1 := mustEntry(t, "s1", 1, "counter/increment", nil, 2)
	e2 := mustEntry(t, "s1", 2, "counter/set", payload.Object{"value": payload.Int(12)}, 3)

	require.NoError(t, j.Append(ctx, e2))
	require.NoError(t, j.Append(ctx, e1))

	entries, err := j.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, e1, entries[0])
	assert.Equal(t, e2, entries[1])
}

func TestAppend_DuplicateIsIgnored(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	e := mustEntry(t, "s1", 1, "counter/increment", nil, 2)
	require.NoError(t, j.Append(ctx, e))
	require.NoError(t, j.Append(ctx, e))

	entries, err := j.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppend_ReusedSeqInSessionFails(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	require.NoError(t, j.Append(ctx, mustEntry(t, "s1", 1, "counter/increment", nil, 2)))
	err := j.Append(ctx, mustEntry(t, "s1", 1, "counter/decrement", nil, 3))
	assert.Error(t, err)
}

func TestAppend_RequiresID(t *testing.T) {
	j := openTestJournal(t)
	err := j.Append(context.Background(), Entry{Session: "s1", Seq: 1, Kind: "x"})
	assert.Error(t, err)
}

func TestReadAll_Empty(t *testing.T) {
	j := openTestJournal(t)

	entries, err := j.ReadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestReadSession(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	require.NoError(t, j.Append(ctx, mustEntry(t, "a", 1, "counter/increment", nil, 2)))
	require.NoError(t, j.Append(ctx, mustEntry(t, "b", 2, "counter/increment", nil, 2)))
	require.NoError(t, j.Append(ctx, mustEntry(t, "a", 3, "counter/reset", nil, 3)))

	entries, err := j.ReadSession(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, int64(3), entries[1].Seq)

	none, err := j.ReadSession(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReadEntry(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	e := mustEntry(t, "s1", 1, "counter/set", payload.Object{"value": payload.Int(5)}, 2)
	require.NoError(t, j.Append(ctx, e))

	got, err := j.ReadEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = j.ReadEntry(ctx, "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	require.NoError(t, j.BeginSession(ctx, "empty", "never used"))
	require.NoError(t, j.BeginSession(ctx, "b", "second"))
	require.NoError(t, j.Append(ctx, mustEntry(t, "a", 1, "k", nil, 2)))
	require.NoError(t, j.Append(ctx, mustEntry(t, "a", 2, "k", nil, 3)))
	require.NoError(t, j.Append(ctx, mustEntry(t, "b", 3, "k", nil, 2)))

	// Existing labels are kept.
	require.NoError(t, j.BeginSession(ctx, "b", "renamed"))

	sessions, err := j.ListSessions(ctx)
	require.NoError(t, err)

	assert.Equal(t, []Session{
		{ID: "a", Label: "", Entries: 2, FirstSeq: 1, LastSeq: 2},
		{ID: "b", Label: "second", Entries: 1, FirstSeq: 3, LastSeq: 3},
		{ID: "empty", Label: "never used", Entries: 0, FirstSeq: 0, LastSeq: 0},
	}, sessions)
}

func TestLastSeq(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	seq, err := j.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, j.Append(ctx, mustEntry(t, "s1", 7, "k", nil, 2)))
	require.NoError(t, j.Append(ctx, mustEntry(t, "s2", 4, "k", nil, 2)))

	seq, err = j.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestJournal_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	e := mustEntry(t, "s1", 1, "counter/set", payload.Object{"value": payload.Int(3)}, 2)
	require.NoError(t, j.Append(ctx, e))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{e}, entries)
}

func TestNewEntry_ContentAddressed(t *testing.T) {
	a := mustEntry(t, "s1", 1, "counter/set", payload.Object{"value": payload.Int(3)}, 2)
	b := mustEntry(t, "s1", 1, "counter/set", payload.Object{"value": payload.Int(3)}, 9)

	// The tick is an observation, not part of the identity.
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, payload.MustEntryID("s1", "counter/set", payload.Object{"value": payload.Int(3)}, 1), a.ID)
}
