// Package eventbus implements the in-process broadcast described in
// spec §4.4 / §2 item 5: a monotonically sequenced SessionEvent fanned
// out to every subscriber (the catalog's database handler, the UI
// emitter, the upload queue), in strict per-subscriber order, with an
// explicit lag signal instead of a silent drop when a subscriber falls
// behind.
//
// The teacher has no standalone bus of its own — internal/runtime's
// deleted 900-line WorkspaceRuntime emitted events straight to its
// Wails frontend via context.EventsEmit, with no fan-out or ordering
// concept at all. This package is a fresh design against spec §4.4's
// own prose (sequence, payload variants, Lagged(n), shutdown-select),
// built as a buffered-channel-per-subscriber broadcaster: each
// Publish attempt is a single non-blocking send per subscriber,
// serialized under one mutex, so sends to any one subscriber's channel
// preserve publish order; a full channel evicts its oldest queued
// envelope and increments that subscriber's lag counter instead of
// blocking the publisher or dropping silently.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// PayloadKind discriminates a SessionEvent's payload, per spec §4.4.
type PayloadKind string

const (
	KindSessionChanged PayloadKind = "session_changed"
	KindCompleted      PayloadKind = "completed"
	KindFailed         PayloadKind = "failed"
)

// Payload is the union of the three event shapes spec §4.4 defines.
// Only the fields relevant to Kind are populated.
type Payload struct {
	Kind PayloadKind

	SessionID string

	// SessionChanged
	ProjectName string
	FilePath    string
	FileSize    int64

	// Completed
	StartTime  time.Time
	EndTime    time.Time
	DurationMs int64

	// Failed
	Reason string
}

// SessionEvent is one published event: a monotonic sequence number,
// wall-clock timestamp, the provider that raised it, and its payload.
type SessionEvent struct {
	Sequence  uint64
	Timestamp time.Time
	Provider  string
	Payload   Payload
}

// DefaultCapacity is the bus's per-subscriber channel depth, per
// spec §4.4 ("a broadcast channel with capacity 1000").
const DefaultCapacity = 1000

// Envelope is what a subscriber actually receives: an event plus the
// count of older queued envelopes that were evicted from its full
// channel to make room for this one (spec §8 invariant 4's lag
// signal). Lag rides on the newly published event, not on the oldest
// surviving one, so the loss is reported once the subscriber reaches
// that envelope and never goes unsignalled.
type Envelope struct {
	Event SessionEvent
	Lag   uint64
}

// Bus is the process-wide broadcaster. The zero value is not usable;
// construct with New.
type Bus struct {
	mu       sync.Mutex
	capacity int
	nextSeq  uint64
	subs     map[int]*subscription
	nextSubID int
	done     chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	ch  chan Envelope
	lag uint64 // atomic
}

// New constructs a Bus with the given per-subscriber channel capacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		nextSeq:  1,
		subs:     make(map[int]*subscription),
		done:     make(chan struct{}),
	}
}

// Subscriber is a handle returned by Subscribe; callers read via Recv
// and must call Close when done to free the bus-side channel.
type Subscriber struct {
	bus *Bus
	id  int
	sub *subscription
}

// Subscribe registers a new subscriber. Events published before this
// call are not replayed — historical backfill is a separate operation
// (spec §4.3's Backfill), not something the bus itself provides.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSubID
	b.nextSubID++
	sub := &subscription{ch: make(chan Envelope, b.capacity)}
	b.subs[id] = sub
	return &Subscriber{bus: b, id: id, sub: sub}
}

// Close unregisters the subscriber. Safe to call more than once.
func (s *Subscriber) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
		close(s.sub.ch)
	}
}

// Recv blocks until the next envelope, ctx cancellation, or bus
// shutdown. Shutdown is reported as (Envelope{}, false) so callers can
// select between event receipt and shutdown per spec §4.4's draining
// requirement.
func (s *Subscriber) Recv(ctx context.Context) (Envelope, bool) {
	select {
	case env, ok := <-s.sub.ch:
		if !ok {
			return Envelope{}, false
		}
		return env, true
	case <-s.bus.done:
		return Envelope{}, false
	case <-ctx.Done():
		return Envelope{}, false
	}
}

// Publish assigns the next sequence number, stamps the current time,
// and fans the event out to every live subscriber. A subscriber whose
// channel is already full has its oldest queued envelope evicted and
// its lag counter incremented; the count is carried on the new
// event's envelope, so the subscriber learns of the eviction when it
// receives that envelope, never silently.
func (b *Bus) Publish(provider string, payload Payload) SessionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ev := SessionEvent{
		Sequence:  b.nextSeq,
		Timestamp: time.Now().UTC(),
		Provider:  provider,
		Payload:   payload,
	}
	b.nextSeq++

	for _, sub := range b.subs {
		deliver(sub, ev)
	}
	return ev
}

func deliver(sub *subscription, ev SessionEvent) {
	env := Envelope{Event: ev}
	select {
	case sub.ch <- env:
		return
	default:
	}

	// Channel full: drop the oldest queued envelope to make room,
	// recording the loss so the next delivery reports it.
	select {
	case <-sub.ch:
		atomic.AddUint64(&sub.lag, 1)
	default:
	}

	env.Lag = atomic.SwapUint64(&sub.lag, 0)
	select {
	case sub.ch <- env:
	default:
		// Not reached while Publish holds b.mu (only Recv drains the
		// channel); kept so a full channel can never block the
		// publisher, counting this event as lost instead.
		atomic.AddUint64(&sub.lag, 1)
	}
}

// Shutdown broadcasts the shutdown signal to every subscriber's Recv
// loop, per spec §4.4's coordinator-broadcasts-shutdown rule. Safe to
// call more than once.
func (b *Bus) Shutdown() {
	b.closeOnce.Do(func() { close(b.done) })
}
