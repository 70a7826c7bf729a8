package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadAll returns every entry ordered by seq ASC, id ASC.
// An empty journal yields an empty, non-nil slice.
func (j *Journal) ReadAll(ctx context.Context) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, seq, kind, args, tick
		FROM entries
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return scanEntries(rows)
}

// ReadSession returns the entries of one session ordered by seq ASC, id ASC.
func (j *Journal) ReadSession(ctx context.Context, session string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, seq, kind, args, tick
		FROM entries
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query session entries: %w", err)
	}
	return scanEntries(rows)
}

// ReadEntry returns a single entry by id, or sql.ErrNoRows.
func (j *Journal) ReadEntry(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, session_id, seq, kind, args, tick
		FROM entries
		WHERE id = ?
	`, id)

	var e Entry
	var argsJSON string
	if err := row.Scan(&e.ID, &e.Session, &e.Seq, &e.Kind, &argsJSON, &e.Tick); err != nil {
		return Entry{}, err
	}
	args, err := unmarshalArgs(argsJSON)
	if err != nil {
		return Entry{}, err
	}
	e.Args = args
	return e, nil
}

// ListSessions summarizes every session, ordered by first seq. Sessions
// registered without entries are listed with zero counts last.
func (j *Journal) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.label, COUNT(e.id), COALESCE(MIN(e.seq), 0), COALESCE(MAX(e.seq), 0)
		FROM sessions s
		LEFT JOIN entries e ON e.session_id = s.id
		GROUP BY s.id, s.label
		ORDER BY COUNT(e.id) = 0 ASC, MIN(e.seq) ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Label, &s.Entries, &s.FirstSeq, &s.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LastSeq returns the highest seq in the journal, or 0 when empty. A
// resumed engine continues numbering from here.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := j.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM entries`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var argsJSON string
		if err := rows.Scan(&e.ID, &e.Session, &e.Seq, &e.Kind, &argsJSON, &e.Tick); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		args, err := unmarshalArgs(argsJSON)
		if err != nil {
			return nil, err
		}
		e.Args = args
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
