package hub

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/atikulmunna/logboard/internal/model"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 256

// Subscription is one live-stream session. Records arrive on C in ingestion
// order until the subscription is closed, either by Unsubscribe or because
// the consumer stopped draining (slow-consumer policy). A closed channel is
// the terminal signal; there is no reopening.
type Subscription struct {
	id   uint64
	ch   chan model.Record
	once sync.Once
}

// C returns the receive side of the subscription's channel.
func (s *Subscription) C() <-chan model.Record {
	return s.ch
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub fans newly ingested records out to every open subscription.
//
// Publish is called synchronously from the single-writer ingestion step, so
// records reach subscribers in exactly the order they became queryable. A
// subscription whose channel is full at publish time is closed rather than
// blocking ingestion or other subscribers: the client can recover current
// state through the query API, but the pipeline never waits on a slow
// consumer.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	dropped atomic.Int64
	log     *zap.Logger
}

// New creates a Hub with the given per-subscription channel capacity.
// A non-positive buffer falls back to DefaultBuffer.
func New(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new live-stream session.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id: h.nextID,
		ch: make(chan model.Record, h.buffer),
	}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes and closes a subscription. Idempotent: unsubscribing
// an already-closed subscription is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, sub.id)
	h.mu.Unlock()
	sub.close()
}

// Publish enqueues rec to every open subscription. It never blocks: a
// subscription that cannot accept the record is dropped.
func (h *Hub) Publish(rec model.Record) {
	var slow []*Subscription

	h.mu.RLock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- rec:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.dropSlow(sub)
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many subscriptions were closed for falling behind.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close closes every subscription, for process shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.close()
	}
}

func (h *Hub) dropSlow(sub *Subscription) {
	h.mu.Lock()
	_, open := h.subs[sub.id]
	delete(h.subs, sub.id)
	h.mu.Unlock()

	if open {
		sub.close()
		h.dropped.Add(1)
		h.log.Warn("dropped slow subscriber",
			zap.Uint64("subscription", sub.id),
			zap.Int64("total_dropped", h.dropped.Load()))
	}
}
