package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertIsIdempotent(t *testing.T) {
	d := New(32)
	now := time.Unix(0, 0)

	d.Insert("alice", "addr-1", now)
	d.Insert("alice", "addr-2", now)

	assert.Equal(t, 1, d.Len())
	p, ok := d.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "addr-1", p.SubstrateAddr)
}

func TestCompleteHandshakeTransitionsState(t *testing.T) {
	d := New(32)
	now := time.Unix(0, 0)
	d.Insert("alice", "addr-1", now)

	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}

	require.NoError(t, d.CompleteHandshake("alice", pub, now))

	p, ok := d.Get("alice")
	require.True(t, ok)
	assert.Equal(t, Completed, p.State)
	assert.Equal(t, pub, p.StaticPub)
}

func TestCompleteHandshakeRejectsShortKey(t *testing.T) {
	d := New(32)
	now := time.Unix(0, 0)

	err := d.CompleteHandshake("alice", make([]byte, 16), now)
	assert.ErrorIs(t, err, ErrKeyTooShort)
}

func TestCandidatesFiltersByStateKeyAndStaleness(t *testing.T) {
	d := New(32)
	now := time.Unix(1000, 0)
	pub := make([]byte, 32)

	d.Insert("pending", "a1", now)

	d.Insert("stale", "a2", now)
	require.NoError(t, d.CompleteHandshake("stale", pub, now.Add(-2*time.Minute)))

	d.Insert("fresh", "a3", now)
	require.NoError(t, d.CompleteHandshake("fresh", pub, now))

	candidates := d.Candidates(now, 60*time.Second)
	require.Len(t, candidates, 1)
	assert.Equal(t, "fresh", candidates[0].ID)
}

func TestEvictStaleRemovesAndReportsOldEntries(t *testing.T) {
	d := New(32)
	now := time.Unix(1000, 0)

	d.Insert("old", "a1", now.Add(-2*time.Minute))
	d.Insert("recent", "a2", now)

	evicted := d.EvictStale(now, 60*time.Second)
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, 1, d.Len())
}

func TestTouchUpdatesLastSeen(t *testing.T) {
	d := New(32)
	t0 := time.Unix(1000, 0)
	d.Insert("alice", "a1", t0)

	t1 := t0.Add(30 * time.Second)
	d.Touch("alice", t1)

	p, ok := d.Get("alice")
	require.True(t, ok)
	assert.Equal(t, t1, p.LastSeen)
}

func TestFailMarksStateFailed(t *testing.T) {
	d := New(32)
	now := time.Unix(0, 0)
	d.Insert("alice", "a1", now)

	d.Fail("alice")

	p, ok := d.Get("alice")
	require.True(t, ok)
	assert.Equal(t, Failed, p.State)
}

func TestClearScrubsKeysAndEmptiesDirectory(t *testing.T) {
	d := New(32)
	now := time.Unix(0, 0)

	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i + 1)
	}
	require.NoError(t, d.CompleteHandshake("alice", pub, now))

	// Grab the directory's own copy (not the caller's pub slice, which
	// CompleteHandshake never aliases) so we can observe it being
	// scrubbed in place rather than merely unreferenced.
	stored := d.peers["alice"]
	require.NotZero(t, stored.StaticPub[0], "sanity: stored key not already zero")

	d.Clear()

	assert.Equal(t, 0, d.Len())
	_, ok := d.Get("alice")
	assert.False(t, ok)

	for _, b := range stored.StaticPub {
		assert.Zero(t, b, "Clear must scrub the key in place, not just drop the map entry")
	}
}
