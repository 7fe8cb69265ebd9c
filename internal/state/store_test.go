package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lza6/VPN-to-GitHub/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	db, err := storage.OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestBaselineEmptyOnFreshDatabase(t *testing.T) {
	s := newStore(t)
	baseline, err := s.Baseline(context.Background())
	require.NoError(t, err)
	assert.Empty(t, baseline)
}

func TestReplaceBaselineRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := map[string]string{"all.yaml": "aaa", "mihomo.yaml": "bbb"}
	require.NoError(t, s.ReplaceBaseline(ctx, first))

	got, err := s.Baseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	// A replace drops entries not present in the new map.
	second := map[string]string{"all.yaml": "ccc"}
	require.NoError(t, s.ReplaceBaseline(ctx, second))
	got, err = s.Baseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestRecordAttemptUpdatesCounters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.RecordAttempt(ctx, Attempt{
		ID: uuid.NewString(), StartedAt: now, CompletedAt: now.Add(time.Second),
		Success: true, Message: "upload complete", ChangedFiles: 2,
	}))
	require.NoError(t, s.RecordAttempt(ctx, Attempt{
		ID: uuid.NewString(), StartedAt: now.Add(time.Minute), CompletedAt: now.Add(2 * time.Minute),
		Success: false, Message: "push failed",
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.False(t, stats.FirstUploadAt.IsZero())
	assert.False(t, stats.LastUploadAt.IsZero())
}

func TestLastUploadOnlyMovesOnSuccess(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.RecordAttempt(ctx, Attempt{
		ID: uuid.NewString(), StartedAt: base, CompletedAt: base,
		Success: true, Message: "ok",
	}))
	statsAfterSuccess, err := s.Stats(ctx)
	require.NoError(t, err)

	require.NoError(t, s.RecordAttempt(ctx, Attempt{
		ID: uuid.NewString(), StartedAt: base.Add(time.Hour), CompletedAt: base.Add(time.Hour),
		Success: false, Message: "nope",
	}))
	statsAfterFailure, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, statsAfterSuccess.LastUploadAt, statsAfterFailure.LastUploadAt)
	assert.Equal(t, statsAfterSuccess.FirstUploadAt, statsAfterFailure.FirstUploadAt)
}

func TestStatsZeroOnFreshDatabase(t *testing.T) {
	s := newStore(t)
	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestRecordAttemptRequiresID(t *testing.T) {
	s := newStore(t)
	assert.Error(t, s.RecordAttempt(context.Background(), Attempt{}))
}

func TestHistoryNewestFirstAndLimited(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordAttempt(ctx, Attempt{
			ID:          uuid.NewString(),
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			CompletedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Success:     true,
			Message:     "ok",
		}))
	}

	history, err := s.History(ctx, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].StartedAt.After(history[1].StartedAt))
	assert.True(t, history[1].StartedAt.After(history[2].StartedAt))
}

func TestPruneHistory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	old := Attempt{
		ID:          uuid.NewString(),
		StartedAt:   time.Now().Add(-48 * time.Hour),
		CompletedAt: time.Now().Add(-48 * time.Hour),
		Success:     true,
		Message:     "old",
	}
	fresh := Attempt{
		ID:          uuid.NewString(),
		StartedAt:   time.Now(),
		CompletedAt: time.Now(),
		Success:     true,
		Message:     "fresh",
	}
	require.NoError(t, s.RecordAttempt(ctx, old))
	require.NoError(t, s.RecordAttempt(ctx, fresh))

	require.NoError(t, s.PruneHistory(ctx, 24*time.Hour))
	history, err := s.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "fresh", history[0].Message)

	// Zero retention disables pruning.
	require.NoError(t, s.PruneHistory(ctx, 0))
}
