package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryID_Stable(t *testing.T) {
	args := Object{"value": Int(5)}

	a, err := EntryID("session-1", "counter/set", args, 3)
	require.NoError(t, err)
	b, err := EntryID("session-1", "counter/set", Object{"value": Int(5)}, 3)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestEntryID_Distinguishes(t *testing.T) {
	base := MustEntryID("s", "k", Object{"v": Int(1)}, 1)

	assert.NotEqual(t, base, MustEntryID("t", "k", Object{"v": Int(1)}, 1), "session")
	assert.NotEqual(t, base, MustEntryID("s", "j", Object{"v": Int(1)}, 1), "kind")
	assert.NotEqual(t, base, MustEntryID("s", "k", Object{"v": Int(2)}, 1), "args")
	assert.NotEqual(t, base, MustEntryID("s", "k", Object{"v": Int(1)}, 2), "seq")
}

func TestEntryID_NilArgsEqualsEmpty(t *testing.T) {
	assert.Equal(t, MustEntryID("s", "k", nil, 1), MustEntryID("s", "k", Object{}, 1))
}

func TestSnapshotDigest_DomainSeparated(t *testing.T) {
	v := Object{"counter": Int(1)}

	digest, err := SnapshotDigest(v)
	require.NoError(t, err)

	canonical := MustCanonical(v)
	assert.Equal(t, hashWithDomain(DomainSnapshot, canonical), digest)
	assert.NotEqual(t, hashWithDomain(DomainEntry, canonical), digest)
}
