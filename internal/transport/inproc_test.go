package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cricbid/auction-backend/pkg/types"
)

func TestInproc_LateWatcherSeesLastSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewInproc()

	snap := types.AuctionSnapshot{Code: "AUC1", Version: 7}
	require.NoError(t, tr.PublishSnapshot(ctx, "AUC1", snap))

	watch, err := tr.WatchSnapshots(ctx, "AUC1")
	require.NoError(t, err)

	select {
	case got := <-watch:
		require.Equal(t, 7, got.Version)
	case <-time.After(time.Second):
		t.Fatal("late watcher did not receive the retained snapshot")
	}
}

func TestInproc_WatchersReceiveSubsequentWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewInproc()

	watch, err := tr.WatchSnapshots(ctx, "AUC1")
	require.NoError(t, err)

	require.NoError(t, tr.PublishSnapshot(ctx, "AUC1", types.AuctionSnapshot{Version: 1}))
	require.NoError(t, tr.PublishSnapshot(ctx, "AUC1", types.AuctionSnapshot{Version: 2}))

	require.Equal(t, 1, (<-watch).Version)
	require.Equal(t, 2, (<-watch).Version)
}

func TestInproc_IntentsReachEveryWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewInproc()

	w1, err := tr.WatchIntents(ctx, "AUC1")
	require.NoError(t, err)
	w2, err := tr.WatchIntents(ctx, "AUC1")
	require.NoError(t, err)

	intent := types.BidIntent{ID: "i1", Type: types.IntentRaise, TeamID: "csk"}
	require.NoError(t, tr.SubmitIntent(ctx, "AUC1", intent))

	require.Equal(t, "i1", (<-w1).ID)
	require.Equal(t, "i1", (<-w2).ID)
}

func TestInproc_CodesAreIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewInproc()

	other, err := tr.WatchSnapshots(ctx, "AUC2")
	require.NoError(t, err)
	require.NoError(t, tr.PublishSnapshot(ctx, "AUC1", types.AuctionSnapshot{Version: 1}))

	select {
	case snap := <-other:
		t.Fatalf("cross-auction leak: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInproc_ResetSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewInproc()

	resets, err := tr.WatchResets(ctx, "AUC1")
	require.NoError(t, err)
	require.NoError(t, tr.PublishReset(ctx, "AUC1", "session-1"))
	require.Equal(t, "session-1", <-resets)
}

func TestInproc_CancelledWatchClosesChannel(t *testing.T) {
	tr := NewInproc()
	ctx, cancel := context.WithCancel(context.Background())

	snaps, err := tr.WatchSnapshots(ctx, "AUC1")
	require.NoError(t, err)
	intents, err := tr.WatchIntents(ctx, "AUC1")
	require.NoError(t, err)
	resets, err := tr.WatchResets(ctx, "AUC1")
	require.NoError(t, err)

	cancel()

	// Consumers ranging over a watch channel must terminate once the
	// subscription context ends.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-snaps:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-intents:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-resets:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestInproc_ClosedChannelIsUnavailable(t *testing.T) {
	ctx := context.Background()
	tr := NewInproc()
	require.NoError(t, tr.Close())

	err := tr.PublishSnapshot(ctx, "AUC1", types.AuctionSnapshot{})
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = tr.WatchSnapshots(ctx, "AUC1")
	require.ErrorIs(t, err, ErrUnavailable)
}
