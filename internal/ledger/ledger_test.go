package ledger_test

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-seat-reservation/internal/ledger"
)

func newTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	s, err := ledger.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClaimOnce(t *testing.T) {
	s := newTestStore(t)

	seen, err := s.Seen("evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	first, claimed, err := s.Claim(ledger.Record{EventID: "evt_1", Type: "payment_intent.succeeded"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, ledger.OutcomeProcessing, first.Outcome)
	assert.False(t, first.ProcessedAt.IsZero())

	second, claimed, err := s.Claim(ledger.Record{EventID: "evt_1"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, ledger.OutcomeProcessing, second.Outcome)

	require.NoError(t, s.Complete("evt_1", "confirmed"))
	third, claimed, err := s.Claim(ledger.Record{EventID: "evt_1", ProcessedAt: time.Now().Add(time.Hour)}, time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "confirmed", third.Outcome)
	assert.Equal(t, "payment_intent.succeeded", third.Type)

	seen, err = s.Seen("evt_1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestClaimConcurrent(t *testing.T) {
	s := newTestStore(t)
	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, claimed, err := s.Claim(ledger.Record{EventID: "evt_race"}, time.Minute)
			assert.NoError(t, err)
			if claimed {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, won.Load())
}

func TestClaimTakesOverStaleClaim(t *testing.T) {
	s := newTestStore(t)
	start := time.Now().UTC()
	_, claimed, err := s.Claim(ledger.Record{EventID: "evt_2", ProcessedAt: start}, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	_, claimed, err = s.Claim(ledger.Record{EventID: "evt_2", ProcessedAt: start.Add(time.Minute)}, 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	r, claimed, err := s.Claim(ledger.Record{EventID: "evt_2", ProcessedAt: start.Add(10 * time.Minute)}, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.True(t, r.ProcessedAt.Equal(start.Add(10*time.Minute)))
}

func TestReleaseAllowsRedispatch(t *testing.T) {
	s := newTestStore(t)
	_, claimed, err := s.Claim(ledger.Record{EventID: "evt_3"}, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, s.Release("evt_3"))
	require.NoError(t, s.Release("evt_3"))
	_, claimed, err = s.Claim(ledger.Record{EventID: "evt_3"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)

	assert.ErrorIs(t, s.Complete("missing", "confirmed"), ledger.ErrNotFound)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	_, _, err := s.Claim(ledger.Record{EventID: "old", ProcessedAt: now.Add(-48 * time.Hour)}, time.Minute)
	require.NoError(t, err)
	_, _, err = s.Claim(ledger.Record{EventID: "new", ProcessedAt: now}, time.Minute)
	require.NoError(t, err)

	n, err := s.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	seen, _ := s.Seen("old")
	assert.False(t, seen)
	seen, _ = s.Seen("new")
	assert.True(t, seen)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := ledger.New(path)
	require.NoError(t, err)
	_, _, err = s.Claim(ledger.Record{EventID: "evt_9"}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = ledger.New(path)
	require.NoError(t, err)
	defer s.Close()
	r, err := s.Get("evt_9")
	require.NoError(t, err)
	assert.Equal(t, "evt_9", r.EventID)
}
