package service

import (
	"context"
	"testing"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddTwiceMergesLine(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Endpoint Guard", 19.99, 10)
	sessionID := env.guestSession(t).Identity.SessionID()

	_, err := env.cart.Add(ctx, sessionID, product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)
	item, err := env.cart.Add(ctx, sessionID, product.ID, 2, model.PlanMonthly)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	view, err := env.cart.GetCart(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, "59.97", view.Quote.Subtotal.StringFixed(2))
	assert.Equal(t, "11.99", view.Quote.Tax.StringFixed(2))
	assert.Equal(t, "71.96", view.Quote.Total.StringFixed(2))
}

func TestCartService_StockViolationLeavesCartUnchanged(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Tunnel VPN", 6.50, 3)
	sessionID := env.guestSession(t).Identity.SessionID()

	_, err := env.cart.Add(ctx, sessionID, product.ID, 2, model.PlanMonthly)
	require.NoError(t, err)

	_, err = env.cart.Add(ctx, sessionID, product.ID, 2, model.PlanMonthly)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = env.cart.Add(ctx, sessionID, product.ID, 4, model.PlanYearly)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	items, err := env.cart.GetItems(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCartService_AddValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Endpoint Guard", 19.99, 10)
	sessionID := env.guestSession(t).Identity.SessionID()

	tests := []struct {
		name      string
		productID uint
		quantity  int
		plan      model.SubscriptionPlan
		wantErr   error
	}{
		{"zero quantity", product.ID, 0, model.PlanMonthly, ErrInvalidQuantity},
		{"unknown plan", product.ID, 1, "WEEKLY", ErrInvalidPlan},
		{"missing product", 9999, 1, model.PlanMonthly, ErrProductNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.cart.Add(ctx, sessionID, tt.productID, tt.quantity, tt.plan)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCartService_UpdateChangesPlanAndMerges(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Perimeter Firewall", 49, 10)
	sessionID := env.guestSession(t).Identity.SessionID()

	monthly, err := env.cart.Add(ctx, sessionID, product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)
	_, err = env.cart.Add(ctx, sessionID, product.ID, 2, model.PlanYearly)
	require.NoError(t, err)

	merged, err := env.cart.Update(ctx, sessionID, monthly.ID, 1, model.PlanYearly)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Quantity)
	assert.Equal(t, model.PlanYearly, merged.Plan)

	items, err := env.cart.GetItems(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// quantity only keeps the plan
	kept, err := env.cart.Update(ctx, sessionID, merged.ID, 5, "")
	require.NoError(t, err)
	assert.Equal(t, 5, kept.Quantity)
	assert.Equal(t, model.PlanYearly, kept.Plan)

	_, err = env.cart.Update(ctx, sessionID, merged.ID, 11, model.PlanYearly)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCartService_RemoveIsNoOpSafe(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Endpoint Guard", 19.99, 10)
	mine := env.guestSession(t).Identity.SessionID()
	theirs := env.guestSession(t).Identity.SessionID()

	item, err := env.cart.Add(ctx, mine, product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)

	assert.ErrorIs(t, env.cart.Remove(ctx, theirs, item.ID), ErrCartItemNotFound)

	require.NoError(t, env.cart.Remove(ctx, mine, item.ID))
	require.NoError(t, env.cart.Remove(ctx, mine, item.ID))
	require.NoError(t, env.cart.Remove(ctx, mine, 424242))

	items, err := env.cart.GetItems(ctx, mine)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartService_Clear(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	a := env.product(t, "Endpoint Guard", 19.99, 10)
	b := env.product(t, "Tunnel VPN", 6.50, 10)
	sessionID := env.guestSession(t).Identity.SessionID()

	_, err := env.cart.Add(ctx, sessionID, a.ID, 1, model.PlanMonthly)
	require.NoError(t, err)
	_, err = env.cart.Add(ctx, sessionID, b.ID, 1, model.PlanPerUser)
	require.NoError(t, err)

	require.NoError(t, env.cart.Clear(ctx, sessionID))

	view, err := env.cart.GetCart(ctx, sessionID)
	require.NoError(t, err)
	assert.Zero(t, view.Count)
	assert.True(t, view.Quote.Total.IsZero())
}
