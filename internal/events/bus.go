// VikingsEventMgmt - Offline-first sync core for section events, members, and attendance
// Copyright 2026 Walton Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000

package events

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/errs"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/logging"
	"github.com/Walton-Viking-Scouts/VikingsEventMgmt-sub000/internal/metrics"
)

const (
	topicPrefix     = "viking.events."
	metaKind        = "kind"
	metaPublishedAt = "published_at"

	// outputBuffer bounds how far a publisher can run ahead of the
	// slowest subscriber before Publish blocks.
	outputBuffer = 64
)

func topicFor(kind Kind) string {
	return topicPrefix + string(kind)
}

// AllKinds returns every event kind the bus carries, in a fixed order.
func AllKinds() []Kind {
	return []Kind{
		KindConnectivityChanged,
		KindAuthStateChanged,
		KindSyncProgress,
		KindSyncCompleted,
		KindSyncFailed,
		KindLoginPromptRequested,
	}
}

// Bus is the process-wide event broadcaster. All publishes fan out to
// every live subscriber of the event's kind; there is no persistence
// and no replay, so a kind nobody subscribes to is silently dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a bus backed by an in-process gochannel Pub/Sub.
func NewBus() *Bus {
	logger := NewLoggerAdapter(logging.Logger())
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: outputBuffer,
		}, logger),
		logger: logger,
	}
}

// Publish encodes p and broadcasts it on its kind's topic. Publishing
// to a closed bus is an error; publishing with no subscribers is not.
func (b *Bus) Publish(ctx context.Context, p Payload) error {
	const op = "events.Publish"

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return errs.New(errs.Unknown, op, "bus is closed")
	}

	kind := p.EventKind()
	body, err := json.Marshal(p)
	if err != nil {
		return errs.Wrap(errs.Unknown, op, "encode "+string(kind)+" payload", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(metaKind, string(kind))
	msg.Metadata.Set(metaPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(topicFor(kind), msg); err != nil {
		return errs.Wrap(errs.Unknown, op, "publish "+string(kind), err)
	}

	metrics.RecordBusEvent(string(kind))
	return nil
}

// Subscribe registers a listener for the given kinds (all kinds when
// none are named) and returns its delivery channel. Delivery is FIFO
// within each kind. The channel closes once ctx is cancelled or the
// bus shuts down; cancelling ctx is the only way to deregister.
func (b *Bus) Subscribe(ctx context.Context, kinds ...Kind) (<-chan Event, error) {
	const op = "events.Subscribe"

	if len(kinds) == 0 {
		kinds = AllKinds()
	}

	out := make(chan Event, outputBuffer)
	var wg sync.WaitGroup

	for _, kind := range kinds {
		in, err := b.pubsub.Subscribe(ctx, topicFor(kind))
		if err != nil {
			return nil, errs.Wrap(errs.Unknown, op, "subscribe "+string(kind), err)
		}
		wg.Add(1)
		go func(in <-chan *message.Message) {
			defer wg.Done()
			forward(ctx, in, out)
		}(in)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// forward drains one topic channel into the subscriber's merged
// channel, acking each message once it is handed over.
func forward(ctx context.Context, in <-chan *message.Message, out chan<- Event) {
	for msg := range in {
		ev := eventFromMessage(msg)
		select {
		case out <- ev:
			msg.Ack()
		case <-ctx.Done():
			msg.Nack()
			return
		}
	}
}

func eventFromMessage(msg *message.Message) Event {
	at, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(metaPublishedAt))
	if err != nil {
		at = time.Now().UTC()
	}
	return Event{
		ID:      msg.UUID,
		Kind:    Kind(msg.Metadata.Get(metaKind)),
		At:      at,
		Payload: json.RawMessage(msg.Payload),
	}
}

// Close shuts the bus down. Subscriber channels drain and close;
// further publishes fail. Close is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	return b.pubsub.Close()
}
