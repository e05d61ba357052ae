package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/internal/settings"
	"github.com/Aidin1998/foodhub/pkg/errors"
	"github.com/Aidin1998/foodhub/pkg/models"
)

type staticCatalog map[string]int64

func (c staticCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	price, ok := c[id]
	if !ok {
		return nil, errors.NotFound.Explain("product %s not found", id)
	}
	return &models.Product{ID: id, Price: decimal.NewFromInt(price), IsAvailable: true}, nil
}

var menu = staticCatalog{"plov": 45000, "tea": 10000}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestComputeTotalDelivery(t *testing.T) {
	items, err := ResolveItems(context.Background(), menu, []ItemRequest{
		{ProductID: "plov", Quantity: 2},
		{ProductID: "tea", Quantity: 1},
	}, UnresolvedSkip, zap.NewNop())
	require.NoError(t, err)

	fee, total, err := ComputeTotal(items, models.OrderTypeDelivery, settings.Pricing{DeliveryPrice: dec(15000)})
	require.NoError(t, err)
	assert.True(t, dec(15000).Equal(fee))
	assert.True(t, dec(115000).Equal(total), total.String())
}

func TestComputeTotalPickupHasNoFee(t *testing.T) {
	items, err := ResolveItems(context.Background(), menu, []ItemRequest{{ProductID: "plov", Quantity: 1}}, UnresolvedSkip, zap.NewNop())
	require.NoError(t, err)

	fee, total, err := ComputeTotal(items, models.OrderTypePickup, settings.Pricing{DeliveryPrice: dec(15000)})
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
	assert.True(t, dec(45000).Equal(total))
}

func TestFreeDeliveryThreshold(t *testing.T) {
	items := []models.OrderItem{{ProductID: "plov", Quantity: 3, Price: dec(45000)}}
	from := dec(100000)

	fee, total, err := ComputeTotal(items, models.OrderTypeDelivery, settings.Pricing{DeliveryPrice: dec(15000), FreeDeliveryFrom: &from})
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
	assert.True(t, dec(135000).Equal(total))
}

func TestMinOrder(t *testing.T) {
	items := []models.OrderItem{{ProductID: "tea", Quantity: 1, Price: dec(10000)}}
	minOrder := dec(20000)

	_, _, err := ComputeTotal(items, models.OrderTypePickup, settings.Pricing{MinOrder: &minOrder})
	assert.True(t, errors.Is(err, errors.Invalid))
}

func TestUnresolvedProductPolicies(t *testing.T) {
	req := []ItemRequest{{ProductID: "plov", Quantity: 1}, {ProductID: "ghost", Quantity: 5}}

	items, err := ResolveItems(context.Background(), menu, req, UnresolvedSkip, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "plov", items[0].ProductID)

	_, err = ResolveItems(context.Background(), menu, req, UnresolvedReject, zap.NewNop())
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestAllItemsUnresolvedIsValidationError(t *testing.T) {
	_, err := ResolveItems(context.Background(), menu, []ItemRequest{{ProductID: "ghost", Quantity: 1}}, UnresolvedSkip, zap.NewNop())
	assert.True(t, errors.Is(err, errors.Invalid))
}

func TestDuplicateLinesKept(t *testing.T) {
	items, err := ResolveItems(context.Background(), menu, []ItemRequest{
		{ProductID: "tea", Quantity: 1},
		{ProductID: "tea", Quantity: 2},
	}, UnresolvedSkip, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, dec(30000).Equal(Subtotal(items)))
}

func TestNonPositiveQuantityRejected(t *testing.T) {
	_, err := ResolveItems(context.Background(), menu, []ItemRequest{{ProductID: "tea", Quantity: 0}}, UnresolvedSkip, zap.NewNop())
	assert.True(t, errors.Is(err, errors.Invalid))
}
