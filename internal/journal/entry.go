package journal

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/selgraph/internal/payload"
)

// Entry is one journaled action.
type Entry struct {
	ID      string         `json:"id"`
	Session string         `json:"session"`
	Seq     int64          `json:"seq"`
	Kind    string         `json:"kind"`
	Args    payload.Object `json:"args"`
	Tick    int64          `json:"tick"`
}

// NewEntry builds an entry with its content-addressed id.
func NewEntry(session string, seq int64, kind string, args payload.Object, tick int64) (Entry, error) {
	if args == nil {
		args = payload.Object{}
	}
	id, err := payload.EntryID(session, kind, args, seq)
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	return Entry{
		ID:      id,
		Session: session,
		Seq:     seq,
		Kind:    kind,
		Args:    args,
		Tick:    tick,
	}, nil
}

// Session summarizes the entries recorded under one session token.
type Session struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Entries  int    `json:"entries"`
	FirstSeq int64  `json:"first_seq"`
	LastSeq  int64  `json:"last_seq"`
}

func marshalArgs(args payload.Object) (string, error) {
	if args == nil {
		return "{}", nil
	}
	data, err := payload.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

func unmarshalArgs(data string) (payload.Object, error) {
	if data == "" || data == "{}" {
		return payload.Object{}, nil
	}
	var obj payload.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return obj, nil
}
