package journal

import (
	"context"
	"fmt"
)

// BeginSession registers a session with a human-readable label. Appending
// to an unregistered session registers it with an empty label, so calling
// BeginSession is optional. Existing sessions keep their label.
func (j *Journal) BeginSession(ctx context.Context, id, label string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, label)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// Append writes an entry. A duplicate id is silently ignored; any other
// constraint violation (such as a reused seq within a session) is an error.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("append: entry id is required")
	}

	argsJSON, err := marshalArgs(e.Args)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, e.Session); err != nil {
		return fmt.Errorf("append: session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries (id, session_id, seq, kind, args, tick)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.Session, e.Seq, e.Kind, argsJSON, e.Tick); err != nil {
		return fmt.Errorf("append: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}
	return nil
}
