package orders

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/internal/catalog"
	"github.com/Aidin1998/foodhub/internal/settings"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/models"
)

// UnresolvedPolicy decides what happens to line items whose product cannot
// be found.
type UnresolvedPolicy string

const (
	// UnresolvedSkip drops the line and logs it.
	UnresolvedSkip UnresolvedPolicy = "skip"
	// UnresolvedReject fails the whole order with errors.NotFound.
	UnresolvedReject UnresolvedPolicy = "reject"
)

// ResolveItems snapshots the current unit price of every requested line.
// Duplicate product ids stay separate lines.
func ResolveItems(ctx context.Context, lookup catalog.Lookup, items []ItemRequest, policy UnresolvedPolicy, logger *zap.Logger) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, errors.Invalid.
				Explain("quantity must be positive").
				WithField("min", "items.quantity", "must be at least 1")
		}
		p, err := lookup.GetProduct(ctx, it.ProductID)
		if err != nil {
			if !errors.Is(err, errors.NotFound) {
				return nil, err
			}
			if policy == UnresolvedReject {
				return nil, err
			}
			logger.Warn("Skipping unresolved product",
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity))
			continue
		}
		out = append(out, models.OrderItem{
			ProductID: p.ID,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
	}
	if len(out) == 0 {
		return nil, errors.Invalid.Explain("order has no purchasable items")
	}
	return out, nil
}

// Subtotal is Σ price × quantity.
func Subtotal(items []models.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// ComputeTotal returns the delivery fee snapshot and the order total for
// the resolved items. PICKUP orders never pay a fee.
func ComputeTotal(items []models.OrderItem, typ models.OrderType, p settings.Pricing) (fee, total decimal.Decimal, err error) {
	subtotal := Subtotal(items)
	if p.MinOrder != nil && subtotal.LessThan(*p.MinOrder) {
		return decimal.Zero, decimal.Zero, errors.Invalid.
			Explain("minimum order amount is %s", p.MinOrder.String()).
			WithDetail("min_order", p.MinOrder.String()).
			WithDetail("subtotal", subtotal.String())
	}

	fee = decimal.Zero
	if typ == models.OrderTypeDelivery {
		fee = p.DeliveryPrice
		if p.FreeDeliveryFrom != nil && subtotal.GreaterThanOrEqual(*p.FreeDeliveryFrom) {
			fee = decimal.Zero
		}
	}
	return fee, subtotal.Add(fee), nil
}
