package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/pkg/models"
)

func order(id uint64, status models.OrderStatus) *models.Order {
	return &models.Order{ID: id, Status: status, Type: models.OrderTypeDelivery, CustomerPhone: "+998901112233"}
}

func nextWithin(t *testing.T, s *Subscription, d time.Duration) (Event, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Next(ctx)
}

func TestSubscriberReceivesStatusChange(t *testing.T) {
	b := NewBroadcaster(Options{}, zap.NewNop())
	sub := b.Subscribe(TopicOrders)
	defer sub.Close()

	b.PublishOrder(EventOrderStatusChanged, order(7, models.OrderStatusReady))

	ev, err := nextWithin(t, sub, time.Second)
	require.NoError(t, err)
	assert.Equal(t, EventOrderStatusChanged, ev.Type)
	assert.Equal(t, TopicOrders, ev.Topic)
	assert.Equal(t, uint64(7), ev.Order.ID)
	assert.Equal(t, models.OrderStatusReady, ev.Order.Status)
	assert.NotEmpty(t, ev.ID)
}

func TestLateSubscriberGetsNoReplay(t *testing.T) {
	b := NewBroadcaster(Options{}, zap.NewNop())
	b.PublishOrder(EventOrderStatusChanged, order(7, models.OrderStatusReady))

	late := b.Subscribe(TopicOrders)
	defer late.Close()
	_, err := nextWithin(t, late, 50*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCustomerTopicIsolation(t *testing.T) {
	b := NewBroadcaster(Options{}, zap.NewNop())
	mine := b.Subscribe(CustomerTopic("+998901112233"))
	defer mine.Close()
	other := b.Subscribe(CustomerTopic("+998900000000"))
	defer other.Close()

	b.PublishOrder(EventOrderCreated, order(1, models.OrderStatusNew))

	ev, err := nextWithin(t, mine, time.Second)
	require.NoError(t, err)
	assert.Equal(t, CustomerTopic("+998901112233"), ev.Topic)

	_, err = nextWithin(t, other, 50*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscriberOnBothTopicsReceivesOnce(t *testing.T) {
	b := NewBroadcaster(Options{}, zap.NewNop())
	sub := b.Subscribe(TopicOrders, CustomerTopic("+998901112233"))
	defer sub.Close()

	b.PublishOrder(EventOrderCreated, order(1, models.OrderStatusNew))

	_, err := nextWithin(t, sub, time.Second)
	require.NoError(t, err)
	_, err = nextWithin(t, sub, 50*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPerSubscriberOrderMatchesPublishOrder(t *testing.T) {
	b := NewBroadcaster(Options{QueueSize: 100}, zap.NewNop())
	sub := b.Subscribe(TopicOrders)
	defer sub.Close()

	statuses := []models.OrderStatus{models.OrderStatusNew, models.OrderStatusCooking, models.OrderStatusReady, models.OrderStatusDelivery}
	for _, st := range statuses {
		b.PublishOrder(EventOrderStatusChanged, order(3, st))
	}

	var last uint64
	for _, want := range statuses {
		ev, err := nextWithin(t, sub, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, ev.Order.Status)
		assert.Greater(t, ev.Seq, last)
		last = ev.Seq
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBroadcaster(Options{QueueSize: 4, MaxOverflow: 1000}, zap.NewNop())
	slow := b.Subscribe(TopicOrders)
	defer slow.Close()
	fast := b.Subscribe(TopicOrders)
	defer fast.Close()

	var wg sync.WaitGroup
	received := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			if _, err := fast.Next(ctx); err != nil {
				return
			}
			received++
		}
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.PublishOrder(EventOrderStatusChanged, order(uint64(i), models.OrderStatusCooking))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Equal(t, 96, slow.Dropped())
	// The slow subscriber keeps the newest events.
	ev, err := nextWithin(t, slow, time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(96), ev.Order.ID)

	cancel()
	wg.Wait()
}

func TestOverflowingSubscriberIsEvicted(t *testing.T) {
	b := NewBroadcaster(Options{QueueSize: 2, MaxOverflow: 3}, zap.NewNop())
	sub := b.Subscribe(TopicOrders)

	for i := 0; i < 5; i++ {
		b.PublishOrder(EventOrderStatusChanged, order(uint64(i), models.OrderStatusCooking))
	}

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscriber should have been evicted")
	}
	assert.ErrorIs(t, sub.Err(), ErrSlowConsumer)
	assert.Equal(t, 0, b.SubscriberCount())

	_, err := sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrSlowConsumer)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	b := NewBroadcaster(Options{}, zap.NewNop())
	sub := b.Subscribe(TopicOrders)

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		errCh <- err
	}()

	b.Close()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}

	late := b.Subscribe(TopicOrders)
	assert.ErrorIs(t, late.Err(), ErrClosed)
}
