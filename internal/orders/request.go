package orders

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Aidin1998/foodhub/pkg/models"
)

// ItemRequest is one requested line.
type ItemRequest struct {
	ProductID string `json:"product_id" binding:"required,max=64"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=100"`
}

// CreateOrderRequest is the customer-supplied part of a new order.
type CreateOrderRequest struct {
	CustomerName  string           `json:"customer_name" binding:"required,max=120"`
	CustomerPhone string           `json:"customer_phone" binding:"required,e164"`
	Type          models.OrderType `json:"type" binding:"required,oneof=DELIVERY PICKUP"`
	Address       string           `json:"address" binding:"max=500"`
	LocationLat   *float64         `json:"location_lat" binding:"omitempty,latitude"`
	LocationLon   *float64         `json:"location_lon" binding:"omitempty,longitude"`
	Comment       string           `json:"comment" binding:"max=1000"`
	PaymentType   string           `json:"payment_type" binding:"required,oneof=cash card click payme"`
	Items         []ItemRequest    `json:"items" binding:"required,min=1,max=50,dive"`
}

// ChangeStatusRequest is the operator's status update. From is the status
// the operator's view shows; the update is refused if the order has moved on.
type ChangeStatusRequest struct {
	From   string `json:"from" binding:"required"`
	Status string `json:"status" binding:"required"`
}

var textPolicy = bluemonday.StrictPolicy()

// sanitize strips markup from free-text fields before they are stored and
// echoed to dashboards.
func (r *CreateOrderRequest) sanitize() {
	r.CustomerName = clean(r.CustomerName)
	r.Address = clean(r.Address)
	r.Comment = clean(r.Comment)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
}

func clean(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}
