package transport

import (
	"context"
	"sync"

	"github.com/cricbid/auction-backend/pkg/types"
)

// Inproc is the same-process Transport: plain channels behind a mutex.
// It keeps the last snapshot per auction so a fresh watcher sees state
// immediately, mirroring the KV semantics of the remote store.
type Inproc struct {
	mu       sync.Mutex
	last     map[string]types.AuctionSnapshot
	snapSubs map[string][]chan types.AuctionSnapshot
	intSubs  map[string][]chan types.BidIntent
	rstSubs  map[string][]chan string
	closed   bool
}

func NewInproc() *Inproc {
	return &Inproc{
		last:     make(map[string]types.AuctionSnapshot),
		snapSubs: make(map[string][]chan types.AuctionSnapshot),
		intSubs:  make(map[string][]chan types.BidIntent),
		rstSubs:  make(map[string][]chan string),
	}
}

func (t *Inproc) PublishSnapshot(ctx context.Context, code string, snap types.AuctionSnapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrUnavailable
	}
	t.last[code] = snap
	for _, ch := range t.snapSubs[code] {
		select {
		case ch <- snap:
		default:
			// Watcher is stalled; it will catch up from a later write.
		}
	}
	return nil
}

func (t *Inproc) WatchSnapshots(ctx context.Context, code string) (<-chan types.AuctionSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrUnavailable
	}
	ch := make(chan types.AuctionSnapshot, 16)
	if snap, ok := t.last[code]; ok {
		ch <- snap
	}
	t.snapSubs[code] = append(t.snapSubs[code], ch)
	t.reapOnDone(ctx, func() { t.dropSnapSub(code, ch) })
	return ch, nil
}

func (t *Inproc) SubmitIntent(ctx context.Context, code string, intent types.BidIntent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrUnavailable
	}
	for _, ch := range t.intSubs[code] {
		select {
		case ch <- intent:
		default:
		}
	}
	return nil
}

func (t *Inproc) WatchIntents(ctx context.Context, code string) (<-chan types.BidIntent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrUnavailable
	}
	ch := make(chan types.BidIntent, 64)
	t.intSubs[code] = append(t.intSubs[code], ch)
	t.reapOnDone(ctx, func() { t.dropIntentSub(code, ch) })
	return ch, nil
}

func (t *Inproc) PublishReset(ctx context.Context, code, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrUnavailable
	}
	for _, ch := range t.rstSubs[code] {
		select {
		case ch <- sessionID:
		default:
		}
	}
	return nil
}

func (t *Inproc) WatchResets(ctx context.Context, code string) (<-chan string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrUnavailable
	}
	ch := make(chan string, 4)
	t.rstSubs[code] = append(t.rstSubs[code], ch)
	t.reapOnDone(ctx, func() { t.dropResetSub(code, ch) })
	return ch, nil
}

func (t *Inproc) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *Inproc) reapOnDone(ctx context.Context, drop func()) {
	go func() {
		<-ctx.Done()
		t.mu.Lock()
		defer t.mu.Unlock()
		drop()
	}()
}

// The drop helpers also close the channel so consumers ranging over it
// terminate, matching the remote implementation's watcher semantics.
func (t *Inproc) dropSnapSub(code string, ch chan types.AuctionSnapshot) {
	subs := t.snapSubs[code]
	for i, c := range subs {
		if c == ch {
			t.snapSubs[code] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (t *Inproc) dropIntentSub(code string, ch chan types.BidIntent) {
	subs := t.intSubs[code]
	for i, c := range subs {
		if c == ch {
			t.intSubs[code] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (t *Inproc) dropResetSub(code string, ch chan string) {
	subs := t.rstSubs[code]
	for i, c := range subs {
		if c == ch {
			t.rstSubs[code] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}
