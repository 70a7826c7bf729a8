package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep hashes of different record kinds apart. The version
// suffix leaves room for a future algorithm change.
const (
	DomainEntry    = "selgraph/entry/v1"
	DomainSnapshot = "selgraph/snapshot/v1"
)

// hashWithDomain returns hex(SHA256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntryID computes the content-addressed id of a journal entry. The same
// session, action kind, arguments and sequence number always hash to the
// same id, which makes appends idempotent.
func EntryID(session, kind string, args Object, seq int64) (string, error) {
	if args == nil {
		args = Object{}
	}
	canonical, err := MarshalCanonical(Object{
		"session": String(session),
		"kind":    String(kind),
		"args":    args,
		"seq":     Int(seq),
	})
	if err != nil {
		return "", fmt.Errorf("EntryID: %w", err)
	}
	return hashWithDomain(DomainEntry, canonical), nil
}

// MustEntryID is like EntryID but panics on error.
func MustEntryID(session, kind string, args Object, seq int64) string {
	id, err := EntryID(session, kind, args, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// SnapshotDigest hashes a state snapshot. The HTTP API uses it as an ETag.
func SnapshotDigest(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("SnapshotDigest: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}
