package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/models"
)

func TestTransitionTable(t *testing.T) {
	type tc struct {
		from, to models.OrderStatus
		typ      models.OrderType
		ok       bool
	}
	cases := []tc{
		{models.OrderStatusNew, models.OrderStatusCooking, models.OrderTypeDelivery, true},
		{models.OrderStatusNew, models.OrderStatusConfirmed, models.OrderTypeDelivery, true},
		{models.OrderStatusNew, models.OrderStatusCancelled, models.OrderTypePickup, true},
		{models.OrderStatusNew, models.OrderStatusDelivery, models.OrderTypeDelivery, false},
		{models.OrderStatusNew, models.OrderStatusReady, models.OrderTypeDelivery, false},
		{models.OrderStatusConfirmed, models.OrderStatusReady, models.OrderTypePickup, true},
		{models.OrderStatusCooking, models.OrderStatusReady, models.OrderTypeDelivery, true},
		{models.OrderStatusCooking, models.OrderStatusNew, models.OrderTypeDelivery, false},
		{models.OrderStatusReady, models.OrderStatusDelivery, models.OrderTypeDelivery, true},
		{models.OrderStatusReady, models.OrderStatusDelivery, models.OrderTypePickup, false},
		{models.OrderStatusReady, models.OrderStatusCompleted, models.OrderTypePickup, true},
		{models.OrderStatusReady, models.OrderStatusCompleted, models.OrderTypeDelivery, false},
		{models.OrderStatusDelivery, models.OrderStatusCompleted, models.OrderTypeDelivery, true},
		{models.OrderStatusDelivery, models.OrderStatusCancelled, models.OrderTypeDelivery, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to, c.typ), "%s -> %s (%s)", c.from, c.to, c.typ)
	}
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	for _, from := range []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusCancelled} {
		for _, to := range models.OrderStatuses {
			for _, typ := range []models.OrderType{models.OrderTypeDelivery, models.OrderTypePickup} {
				assert.False(t, CanTransition(from, to, typ))
			}
		}
		err := ValidateTransition(&models.Order{ID: 1, Status: from, Type: models.OrderTypePickup}, models.OrderStatusNew)
		assert.True(t, errors.Is(err, errors.InvalidTransition))
	}
}

func TestEveryTransitionMovesForwardOrCancels(t *testing.T) {
	rank := map[models.OrderStatus]int{}
	for i, s := range models.OrderStatuses {
		rank[s] = i
	}
	for from, tos := range validTransitions {
		for _, to := range tos {
			if to == models.OrderStatusCancelled {
				continue
			}
			assert.Greater(t, rank[to], rank[from], "%s -> %s", from, to)
		}
	}
}

func TestValidateTransitionDetails(t *testing.T) {
	order := &models.Order{ID: 7, Status: models.OrderStatusNew, Type: models.OrderTypeDelivery}
	assert.NoError(t, ValidateTransition(order, models.OrderStatusCooking))

	err := ValidateTransition(order, models.OrderStatusDelivery)
	var e *errors.Error
	assert.True(t, errors.As(err, &e))
	assert.True(t, errors.Is(err, errors.InvalidTransition))
	assert.Equal(t, models.OrderStatusNew, e.Details["from"])
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.OrderStatusCooking, models.OrderStatusConfirmed, models.OrderStatusCancelled},
		e.Details["allowed"])
}

func TestLegacyStatusesRejected(t *testing.T) {
	for _, s := range []string{"PREPARING", "DELIVERED", "new", ""} {
		_, ok := models.ParseOrderStatus(s)
		assert.False(t, ok, s)
	}
}
