package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/pkg/models"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func TestForwarderMirrorsOperatorTopic(t *testing.T) {
	b := NewBroadcaster(Options{}, zap.NewNop())
	w := &recordingWriter{}
	f := NewForwarder(b, w, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	b.PublishOrder(EventOrderCreated, &models.Order{ID: 42, Status: models.OrderStatusNew})
	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.closed)
	assert.Equal(t, "42", string(w.msgs[0].Key))

	var ev Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, EventOrderCreated, ev.Type)
	assert.Equal(t, uint64(42), ev.Order.ID)
}

func TestForwarderStopsCleanlyWhenBroadcasterCloses(t *testing.T) {
	b := NewBroadcaster(Options{}, zap.NewNop())
	w := &recordingWriter{}
	f := NewForwarder(b, w, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- f.Run(context.Background()) }()

	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	b.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop after broadcaster close")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.closed)
}
