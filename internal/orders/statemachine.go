package orders

import (
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/models"
)

var validTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusNew:       {models.OrderStatusCooking, models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusCooking, models.OrderStatusReady, models.OrderStatusCancelled},
	models.OrderStatusCooking:   {models.OrderStatusReady, models.OrderStatusCancelled},
	models.OrderStatusReady:     {models.OrderStatusDelivery, models.OrderStatusCompleted, models.OrderStatusCancelled},
	models.OrderStatusDelivery:  {models.OrderStatusCompleted, models.OrderStatusCancelled},
	models.OrderStatusCompleted: {}, // Terminal state
	models.OrderStatusCancelled: {}, // Terminal state
}

// Successors returns the statuses an order of the given type may move to.
func Successors(from models.OrderStatus, typ models.OrderType) []models.OrderStatus {
	var out []models.OrderStatus
	for _, to := range validTransitions[from] {
		if allowedForType(from, to, typ) {
			out = append(out, to)
		}
	}
	return out
}

// CanTransition reports whether from -> to is allowed for an order of type typ.
func CanTransition(from, to models.OrderStatus, typ models.OrderType) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return allowedForType(from, to, typ)
		}
	}
	return false
}

// READY forks on the order type: deliveries go out, pickups complete at the counter.
func allowedForType(from, to models.OrderStatus, typ models.OrderType) bool {
	if from != models.OrderStatusReady {
		return true
	}
	switch to {
	case models.OrderStatusDelivery:
		return typ == models.OrderTypeDelivery
	case models.OrderStatusCompleted:
		return typ == models.OrderTypePickup
	}
	return true
}

// ValidateTransition returns errors.InvalidTransition when order may not move
// to requested.
func ValidateTransition(order *models.Order, requested models.OrderStatus) error {
	if order.Status.IsTerminal() {
		return errors.InvalidTransition.
			Explain("order %d is %s and cannot change", order.ID, order.Status).
			WithDetail("from", order.Status).
			WithDetail("to", requested)
	}
	if !CanTransition(order.Status, requested, order.Type) {
		return errors.InvalidTransition.
			Explain("cannot move %s order %d from %s to %s", order.Type, order.ID, order.Status, requested).
			WithDetail("from", order.Status).
			WithDetail("to", requested).
			WithDetail("allowed", Successors(order.Status, order.Type))
	}
	return nil
}
