package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/cricbid/auction-backend/pkg/types"
)

const (
	snapshotBucket = "auction_snapshots"
	resetBucket    = "auction_resets"
	intentStream   = "AUCTION_INTENTS"
	intentSubjects = "auction.intents.>"
)

// NATS is the cross-device Transport: snapshots and reset signals live in
// JetStream KV buckets (watch = push notification on change), bid intents
// flow through a JetStream stream with server-side dedup on the intent id.
type NATS struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	kvSnaps  jetstream.KeyValue
	kvResets jetstream.KeyValue
	stream   jetstream.Stream
	log      *zap.Logger
}

func NewNATS(ctx context.Context, url string, log *zap.Logger) (*NATS, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("nats error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kvSnaps, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  snapshotBucket,
		History: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create snapshot bucket: %w", err)
	}
	kvResets, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  resetBucket,
		History: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create reset bucket: %w", err)
	}
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       intentStream,
		Subjects:   []string{intentSubjects},
		Duplicates: 2 * time.Minute,
		MaxAge:     24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create intent stream: %w", err)
	}

	return &NATS{nc: nc, js: js, kvSnaps: kvSnaps, kvResets: kvResets, stream: stream, log: log}, nil
}

func (t *NATS) PublishSnapshot(ctx context.Context, code string, snap types.AuctionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := t.kvSnaps.Put(ctx, code, data); err != nil {
		return fmt.Errorf("%w: put snapshot: %s", ErrUnavailable, err)
	}
	return nil
}

func (t *NATS) WatchSnapshots(ctx context.Context, code string) (<-chan types.AuctionSnapshot, error) {
	w, err := t.kvSnaps.Watch(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: watch snapshots: %s", ErrUnavailable, err)
	}

	out := make(chan types.AuctionSnapshot, 16)
	go func() {
		defer close(out)
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-w.Updates():
				if !ok {
					return
				}
				// A nil entry marks the end of the initial replay.
				if entry == nil || entry.Operation() != jetstream.KeyValuePut {
					continue
				}
				var snap types.AuctionSnapshot
				if err := json.Unmarshal(entry.Value(), &snap); err != nil {
					t.log.Warn("bad snapshot payload", zap.String("code", code), zap.Error(err))
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (t *NATS) SubmitIntent(ctx context.Context, code string, intent types.BidIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	msg := &nats.Msg{
		Subject: intentSubject(code),
		Data:    data,
		Header:  nats.Header{},
	}
	// JetStream drops redeliveries of the same id inside the duplicate
	// window; the session dedupes again on its side.
	msg.Header.Set("Nats-Msg-Id", intent.ID)
	if _, err := t.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("%w: publish intent: %s", ErrUnavailable, err)
	}
	return nil
}

func (t *NATS) WatchIntents(ctx context.Context, code string) (<-chan types.BidIntent, error) {
	consumer, err := t.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       "console-" + code,
		FilterSubject: intentSubject(code),
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create intent consumer: %s", ErrUnavailable, err)
	}

	out := make(chan types.BidIntent, 64)
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var intent types.BidIntent
		if err := json.Unmarshal(msg.Data(), &intent); err != nil {
			t.log.Warn("bad intent payload", zap.String("code", code), zap.Error(err))
			_ = msg.Term()
			return
		}
		select {
		case out <- intent:
			_ = msg.Ack()
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: consume intents: %s", ErrUnavailable, err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
		close(out)
	}()
	return out, nil
}

func (t *NATS) PublishReset(ctx context.Context, code, sessionID string) error {
	if _, err := t.kvResets.Put(ctx, code, []byte(sessionID)); err != nil {
		return fmt.Errorf("%w: put reset: %s", ErrUnavailable, err)
	}
	return nil
}

func (t *NATS) WatchResets(ctx context.Context, code string) (<-chan string, error) {
	// New watchers only care about future resets, not the last one.
	w, err := t.kvResets.Watch(ctx, code, jetstream.UpdatesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: watch resets: %s", ErrUnavailable, err)
	}

	out := make(chan string, 4)
	go func() {
		defer close(out)
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-w.Updates():
				if !ok {
					return
				}
				if entry == nil || entry.Operation() != jetstream.KeyValuePut {
					continue
				}
				select {
				case out <- string(entry.Value()):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (t *NATS) Close() error {
	t.nc.Close()
	return nil
}

func intentSubject(code string) string { return "auction.intents." + code }
