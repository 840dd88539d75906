package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"facility-checklist/internal/models"
	"facility-checklist/internal/testutil"
)

type stubPruner struct {
	cutoffs chan time.Time
	err     error
}

func (s *stubPruner) PruneAudit(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoffs <- cutoff
	return 0, s.err
}

func TestPruneOnceRemovesOldEntries(t *testing.T) {
	store := testutil.OpenStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, age := range []time.Duration{40 * 24 * time.Hour, 10 * 24 * time.Hour, time.Hour} {
		require.NoError(t, store.RecordAudit(ctx, models.AuditEntry{
			EventID:      "evt-" + string(rune('a'+i)),
			Action:       models.ActionUpdated,
			InspectionID: 1,
			Actor:        "alice",
			CreatedAt:    now.Add(-age),
		}))
	}

	removed := pruneOnce(ctx, store, func() time.Time { return now }, 30*24*time.Hour, zap.NewNop())
	assert.Equal(t, int64(1), removed)

	left, err := store.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "evt-c", left[0].EventID)
}

func TestPruneOnceSwallowsErrors(t *testing.T) {
	stub := &stubPruner{cutoffs: make(chan time.Time, 1), err: errors.New("db down")}
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Zero(t, pruneOnce(context.Background(), stub, func() time.Time { return now }, time.Hour, zap.NewNop()))
	assert.Equal(t, now.Add(-time.Hour), <-stub.cutoffs)
}

func TestStartAuditRetentionStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	stub := &stubPruner{cutoffs: make(chan time.Time, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	StartAuditRetention(ctx, stub, 24*time.Hour, time.Hour, zap.NewNop())

	select {
	case <-stub.cutoffs:
	case <-time.After(2 * time.Second):
		t.Fatal("first prune pass did not run")
	}
	cancel()
	// goleak retries until the worker goroutine has returned.
}
