// Package realtime fans order events out to connected sessions.
//
// Delivery is at-most-once to the subscribers registered when Publish runs;
// there is no replay. Each subscriber owns a bounded queue: when it is full
// the oldest event is dropped, and a subscriber that keeps overflowing is
// evicted. Publish never blocks on a subscriber.
package realtime

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/pkg/metrics"
	"github.com/Aidin1998/foodhub/pkg/models"
)

// EventType names an order event.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
)

// TopicOrders carries every order event for operator dashboards.
const TopicOrders = "orders.updates"

const customerTopicPrefix = "orders.customer."

// CustomerTopic is the topic for one customer's sessions.
func CustomerTopic(phone string) string {
	return customerTopicPrefix + phone
}

var (
	// ErrSlowConsumer is reported by a subscription evicted for overflowing.
	ErrSlowConsumer = errors.New("subscriber evicted: too many dropped events")
	// ErrClosed is reported by a subscription after Close.
	ErrClosed = errors.New("subscription closed")
)

// Event is the unit delivered to subscribers.
type Event struct {
	ID         string        `json:"id"`
	Type       EventType     `json:"type"`
	Topic      string        `json:"topic"`
	Seq        uint64        `json:"seq"`
	OccurredAt time.Time     `json:"occurred_at"`
	Order      *models.Order `json:"order"`
}

// OrderKey returns the order id as a string, used for partitioning.
func (e Event) OrderKey() string {
	if e.Order == nil {
		return ""
	}
	return strconv.FormatUint(e.Order.ID, 10)
}

// Options tunes subscriber queues.
type Options struct {
	// QueueSize bounds each subscriber's pending events.
	QueueSize int `mapstructure:"queue_size"`
	// MaxOverflow is how many events a subscriber may lose before eviction.
	MaxOverflow int `mapstructure:"max_overflow"`
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.MaxOverflow <= 0 {
		o.MaxOverflow = o.QueueSize
	}
	return o
}

// Broadcaster is a topic based pub/sub registry.
type Broadcaster struct {
	opts   Options
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID atomic.Uint64
	seq    atomic.Uint64
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(opts Options, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		opts:   opts.withDefaults(),
		logger: logger.Named("realtime"),
		subs:   make(map[uint64]*Subscription),
	}
}

// Subscribe registers a subscription to the given topics. Events published
// before this call are never delivered to it.
func (b *Broadcaster) Subscribe(topics ...string) *Subscription {
	s := &Subscription{
		id:     b.nextID.Add(1),
		b:      b,
		topics: make(map[string]struct{}, len(topics)),
		queue:  make([]Event, 0, b.opts.QueueSize),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.shutdown(ErrClosed)
		return s
	}
	b.subs[s.id] = s
	b.mu.Unlock()

	metrics.Subscribers.Inc()
	return s
}

// PublishOrder emits one event for order to the operator topic and to the
// customer's topic. A subscriber on both receives it once.
func (b *Broadcaster) PublishOrder(typ EventType, order *models.Order) Event {
	topics := []string{TopicOrders}
	if order.CustomerPhone != "" {
		topics = append(topics, CustomerTopic(order.CustomerPhone))
	}
	ev := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Seq:        b.seq.Add(1),
		OccurredAt: time.Now().UTC(),
		Order:      order,
	}
	b.publish(ev, topics)
	return ev
}

func (b *Broadcaster) publish(ev Event, topics []string) {
	metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()

	for _, s := range b.snapshot() {
		topic, ok := s.match(topics)
		if !ok {
			continue
		}
		delivered := ev
		delivered.Topic = topic
		if s.enqueue(delivered, b.opts.MaxOverflow) {
			continue
		}
		b.remove(s)
		metrics.SubscribersEvicted.Inc()
		b.logger.Warn("Evicted slow subscriber",
			zap.Uint64("subscriber", s.id),
			zap.Int("max_overflow", b.opts.MaxOverflow))
	}
}

func (b *Broadcaster) snapshot() []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		out = append(out, s)
	}
	return out
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	_, ok := b.subs[s.id]
	delete(b.subs, s.id)
	b.mu.Unlock()
	if ok {
		metrics.Subscribers.Dec()
	}
}

// SubscriberCount returns the number of registered subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()

	for _, s := range subs {
		s.shutdown(ErrClosed)
		metrics.Subscribers.Dec()
	}
}

// Subscription is one consumer's view of the broadcaster.
type Subscription struct {
	id     uint64
	b      *Broadcaster
	topics map[string]struct{}

	mu       sync.Mutex
	queue    []Event
	overflow int
	err      error
	notify   chan struct{}
	done     chan struct{}
}

func (s *Subscription) match(topics []string) (string, bool) {
	for _, t := range topics {
		if _, ok := s.topics[t]; ok {
			return t, true
		}
	}
	return "", false
}

// enqueue appends ev, dropping the oldest pending event when full. It
// returns false once the subscription has overflowed maxOverflow times and
// has been shut down.
func (s *Subscription) enqueue(ev Event, maxOverflow int) bool {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return true
	}
	if len(s.queue) == cap(s.queue) {
		copy(s.queue, s.queue[1:])
		s.queue = s.queue[:len(s.queue)-1]
		s.overflow++
		metrics.EventsDropped.Inc()
		if s.overflow >= maxOverflow {
			s.mu.Unlock()
			s.shutdown(ErrSlowConsumer)
			return false
		}
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

func (s *Subscription) shutdown(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = reason
	s.queue = nil
	close(s.done)
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() uint64 { return s.id }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the subscription ended, or nil while it is live.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns how many events this subscriber lost to overflow.
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overflow
}

// Next blocks until an event is available, the subscription ends, or ctx is
// done.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.err != nil {
			err := s.err
			s.mu.Unlock()
			return Event{}, err
		}
		if len(s.queue) > 0 {
			ev := s.queue[0]
			copy(s.queue, s.queue[1:])
			s.queue = s.queue[:len(s.queue)-1]
			s.mu.Unlock()
			return ev, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.done:
		case <-s.notify:
		}
	}
}

// Close unregisters the subscription.
func (s *Subscription) Close() {
	s.b.remove(s)
	s.shutdown(ErrClosed)
}
