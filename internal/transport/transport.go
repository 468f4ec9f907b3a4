// Package transport is the shared channel between the authoritative
// console and remote bidder devices. The session depends only on the
// Transport interface; Inproc serves same-device testing, NATS serves
// cross-device use over a durable store with push notifications.
package transport

import (
	"context"
	"errors"

	"github.com/cricbid/auction-backend/pkg/types"
)

// ErrUnavailable classifies any channel outage. Callers degrade to
// local-only operation and retry transparently.
var ErrUnavailable = errors.New("sync channel unavailable")

type Transport interface {
	// PublishSnapshot overwrites the snapshot at the auction's well-known
	// path. Last write wins; each write strictly supersedes the previous.
	PublishSnapshot(ctx context.Context, code string, snap types.AuctionSnapshot) error
	// WatchSnapshots delivers the current snapshot (if any) followed by
	// every subsequent write, until ctx is done.
	WatchSnapshots(ctx context.Context, code string) (<-chan types.AuctionSnapshot, error)

	// SubmitIntent appends a bid intent to the auction's intent path.
	// Delivery is at-least-once; consumers must dedupe by intent id.
	SubmitIntent(ctx context.Context, code string, intent types.BidIntent) error
	WatchIntents(ctx context.Context, code string) (<-chan types.BidIntent, error)

	// PublishReset signals every device on this auction to invalidate its
	// session. The payload is the session id being torn down.
	PublishReset(ctx context.Context, code, sessionID string) error
	WatchResets(ctx context.Context, code string) (<-chan string, error)

	Close() error
}
