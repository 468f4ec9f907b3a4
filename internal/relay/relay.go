// Package relay is the remote-device side of the sync protocol. A relay
// never mutates shared state: it submits bid intents, watches the
// snapshot path, and tracks liveness of the authoritative console.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/cricbid/auction-backend/internal/transport"
	"github.com/cricbid/auction-backend/pkg/types"
)

var ErrNoSnapshot = errors.New("no snapshot received yet")
var ErrNoCurrentPlayer = errors.New("no player under auction")
var ErrSessionInvalidated = errors.New("session invalidated, re-authentication required")

type Options struct {
	SenderID string
	Logger   *zap.Logger
	Clock    clockwork.Clock
	// ConnectTimeout is how long the relay tolerates silence before it
	// reports the link as disconnected. The last snapshot stays visible.
	ConnectTimeout time.Duration
	// OnReset fires when the console tears the session down fleet-wide.
	OnReset func(sessionID string)
}

type Relay struct {
	tr       transport.Transport
	code     string
	senderID string
	log      *zap.Logger
	clock    clockwork.Clock
	timeout  time.Duration
	onReset  func(string)

	mu          sync.Mutex
	snap        types.AuctionSnapshot
	haveSnap    bool
	lastSeen    time.Time
	connected   bool
	invalidated bool
}

func New(tr transport.Transport, code string, opts Options) *Relay {
	if opts.SenderID == "" {
		opts.SenderID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 3 * time.Second
	}
	return &Relay{
		tr:       tr,
		code:     code,
		senderID: opts.SenderID,
		log:      opts.Logger.With(zap.String("auction", code)),
		clock:    opts.Clock,
		timeout:  opts.ConnectTimeout,
		onReset:  opts.OnReset,
	}
}

// Run watches the shared channel until ctx is done, re-subscribing with a
// delay whenever the channel drops.
func (r *Relay) Run(ctx context.Context) error {
	for {
		if err := r.runOnce(ctx); err != nil {
			r.log.Warn("sync channel lost, retrying", zap.Error(err))
		}
		r.setConnected(false)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(time.Second):
		}
	}
}

func (r *Relay) runOnce(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snaps, err := r.tr.WatchSnapshots(ctx, r.code)
	if err != nil {
		return err
	}
	resets, err := r.tr.WatchResets(ctx, r.code)
	if err != nil {
		return err
	}

	ticker := r.clock.NewTicker(r.timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case snap, ok := <-snaps:
			if !ok {
				return transport.ErrUnavailable
			}
			r.observe(snap)

		case sid, ok := <-resets:
			if !ok {
				return transport.ErrUnavailable
			}
			r.invalidate(sid)

		case <-ticker.Chan():
			r.checkLiveness()
		}
	}
}

func (r *Relay) observe(snap types.AuctionSnapshot) {
	r.mu.Lock()
	// A snapshot from a fresh session id supersedes an invalidated one.
	if r.invalidated && r.haveSnap && snap.SessionID != r.snap.SessionID {
		r.invalidated = false
	}
	r.snap = snap
	r.haveSnap = true
	r.lastSeen = r.clock.Now()
	wasDown := !r.connected
	r.connected = true
	r.mu.Unlock()

	if wasDown {
		r.log.Info("console link up", zap.Int("version", snap.Version))
	}
}

func (r *Relay) invalidate(sessionID string) {
	r.mu.Lock()
	applies := !r.haveSnap || r.snap.SessionID == sessionID
	if applies {
		r.invalidated = true
	}
	r.mu.Unlock()

	if applies {
		r.log.Warn("session reset received", zap.String("session", sessionID))
		if r.onReset != nil {
			r.onReset(sessionID)
		}
	}
}

func (r *Relay) checkLiveness() {
	r.mu.Lock()
	stale := r.connected && r.clock.Now().Sub(r.lastSeen) >= r.timeout
	if stale {
		r.connected = false
	}
	r.mu.Unlock()

	if stale {
		// Stale-but-visible beats blank: the snapshot stays available.
		r.log.Warn("console link down, showing last known state")
	}
}

func (r *Relay) setConnected(v bool) {
	r.mu.Lock()
	r.connected = v
	r.mu.Unlock()
}

// Snapshot returns the last snapshot seen, if any. It stays available
// while disconnected.
func (r *Relay) Snapshot() (types.AuctionSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap, r.haveSnap
}

func (r *Relay) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *Relay) Invalidated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invalidated
}

// SubmitRaise proposes currentBid + one increment for the player under
// auction, priced off the last snapshot. The authoritative session
// revalidates everything; the relay only needs a plausible target.
func (r *Relay) SubmitRaise(ctx context.Context, teamID string) (string, error) {
	r.mu.Lock()
	snap, have, invalid := r.snap, r.haveSnap, r.invalidated
	r.mu.Unlock()

	if invalid {
		return "", ErrSessionInvalidated
	}
	if !have {
		return "", ErrNoSnapshot
	}
	if snap.CurrentPlayer == nil {
		return "", ErrNoCurrentPlayer
	}

	intent := types.BidIntent{
		ID:       uuid.NewString(),
		Type:     types.IntentRaise,
		TeamID:   teamID,
		PlayerID: snap.CurrentPlayer.ID,
		Amount:   snap.CurrentBid + snap.BidIncrement,
		SenderID: r.senderID,
		At:       r.clock.Now(),
	}
	return intent.ID, r.tr.SubmitIntent(ctx, r.code, intent)
}

// SubmitStop announces that the team is done raising on the current
// player. Broadcast-only; nothing in the ledger changes.
func (r *Relay) SubmitStop(ctx context.Context, teamID string) (string, error) {
	r.mu.Lock()
	snap, have, invalid := r.snap, r.haveSnap, r.invalidated
	r.mu.Unlock()

	if invalid {
		return "", ErrSessionInvalidated
	}
	if !have {
		return "", ErrNoSnapshot
	}

	intent := types.BidIntent{
		ID:       uuid.NewString(),
		Type:     types.IntentStop,
		TeamID:   teamID,
		SenderID: r.senderID,
		At:       r.clock.Now(),
	}
	if snap.CurrentPlayer != nil {
		intent.PlayerID = snap.CurrentPlayer.ID
	}
	return intent.ID, r.tr.SubmitIntent(ctx, r.code, intent)
}
