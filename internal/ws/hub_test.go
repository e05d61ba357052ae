package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/internal/identity"
	"github.com/Aidin1998/foodhub/internal/realtime"
	"github.com/Aidin1998/foodhub/pkg/models"
)

func serve(t *testing.T, hub *Hub, id identity.Identity) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, id)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev realtime.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestOperatorReceivesAllOrders(t *testing.T) {
	b := realtime.NewBroadcaster(realtime.Options{}, zap.NewNop())
	hub := NewHub(b, nil, zap.NewNop())
	defer hub.Close()

	conn := serve(t, hub, identity.Identity{Subject: "admin", Role: identity.RoleOperator})
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	b.PublishOrder(realtime.EventOrderStatusChanged, &models.Order{ID: 7, Status: models.OrderStatusReady, CustomerPhone: "+998901112233"})

	ev := readEvent(t, conn)
	assert.Equal(t, realtime.TopicOrders, ev.Topic)
	assert.Equal(t, uint64(7), ev.Order.ID)
	assert.Equal(t, models.OrderStatusReady, ev.Order.Status)
}

func TestCustomerReceivesOnlyOwnOrders(t *testing.T) {
	b := realtime.NewBroadcaster(realtime.Options{}, zap.NewNop())
	hub := NewHub(b, nil, zap.NewNop())
	defer hub.Close()

	phone := "+998901112233"
	conn := serve(t, hub, identity.Identity{Subject: phone, Role: identity.RoleCustomer, Phone: phone})
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	b.PublishOrder(realtime.EventOrderCreated, &models.Order{ID: 1, CustomerPhone: "+998900000000"})
	b.PublishOrder(realtime.EventOrderCreated, &models.Order{ID: 2, CustomerPhone: phone})

	ev := readEvent(t, conn)
	assert.Equal(t, uint64(2), ev.Order.ID)
	assert.Equal(t, realtime.CustomerTopic(phone), ev.Topic)
}

func TestDisconnectReleasesSubscription(t *testing.T) {
	b := realtime.NewBroadcaster(realtime.Options{}, zap.NewNop())
	hub := NewHub(b, nil, zap.NewNop())

	conn := serve(t, hub, identity.Identity{Subject: "admin", Role: identity.RoleOperator})
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 && hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTopicsFor(t *testing.T) {
	assert.Equal(t, []string{realtime.TopicOrders}, TopicsFor(identity.Identity{Role: identity.RoleOperator}))
	assert.Equal(t, []string{"orders.customer.+998901112233"}, TopicsFor(identity.Identity{Role: identity.RoleCustomer, Phone: "+998901112233"}))
}
