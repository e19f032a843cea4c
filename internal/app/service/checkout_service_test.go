package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guestInput(email string) *GuestCheckoutInput {
	return &GuestCheckoutInput{
		Email: email,
		Name:  "Guest Buyer",
		Address: AddressInput{
			FullName: "Guest Buyer", Address1: "10 Downing Street", PostalCode: "SW1A 2AA", City: "London", Country: "GB",
		},
		Payment: PaymentMethodInput{
			CardName: "Guest Buyer", StripePaymentID: "pm_card_mastercard", Brand: "mastercard", Last4: "4444",
		},
	}
}

func TestCheckoutService_EmptyCart(t *testing.T) {
	env := setupEnv(t)
	_, address, method, res := env.customer(t, "buyer@example.com")

	_, err := env.checkout.CreateCheckoutSession(context.Background(), res.Identity, CheckoutRequest{
		AddressID: address.ID, PaymentID: method.ID,
	})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, env.provider.requests)
}

func TestCheckoutService_UserValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Endpoint Guard", 19.99, 10)

	user, address, method, res := env.customer(t, "buyer@example.com")
	_, otherAddress, otherMethod, _ := env.customer(t, "other@example.com")
	_, err := env.cart.Add(ctx, res.Identity.SessionID(), product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     CheckoutRequest
		wantErr error
	}{
		{"missing address", CheckoutRequest{PaymentID: method.ID}, ErrMissingAddress},
		{"missing payment", CheckoutRequest{AddressID: address.ID}, ErrMissingPayment},
		{"foreign address", CheckoutRequest{AddressID: otherAddress.ID, PaymentID: method.ID}, ErrAddressNotFound},
		{"foreign payment", CheckoutRequest{AddressID: address.ID, PaymentID: otherMethod.ID}, ErrPaymentMethodNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.checkout.CreateCheckoutSession(ctx, res.Identity, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	require.NoError(t, env.db.Model(&model.User{}).Where("id = ?", user.ID).Update("stripe_customer_id", "").Error)
	_, err = env.checkout.CreateCheckoutSession(ctx, res.Identity, CheckoutRequest{AddressID: address.ID, PaymentID: method.ID})
	assert.ErrorIs(t, err, ErrNoProviderCustomer)

	var orders int64
	env.db.Model(&model.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

func TestCheckoutService_UserCheckoutReservesOrder(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Endpoint Guard", 19.99, 10)
	edr := env.product(t, "Sentinel EDR", 50, 10)

	user, address, method, res := env.customer(t, "buyer@example.com")
	sessionID := res.Identity.SessionID()
	_, err := env.cart.Add(ctx, sessionID, product.ID, 3, model.PlanMonthly)
	require.NoError(t, err)
	_, err = env.cart.Add(ctx, sessionID, edr.ID, 1, model.PlanYearly)
	require.NoError(t, err)

	result, err := env.checkout.CreateCheckoutSession(ctx, res.Identity, CheckoutRequest{
		AddressID: address.ID, PaymentID: method.ID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ClientSecret)
	assert.Zero(t, result.GuestID)

	order, err := env.orderRepo.FindByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, user.ID, order.UserID)
	require.NotNil(t, order.ProviderSessionID)
	assert.Equal(t, result.ProviderSessionID, *order.ProviderSessionID)
	assert.Regexp(t, `^INV-[A-Z0-9]{8}$`, order.InvoiceNumber)
	assert.InDelta(t, 659.97, order.Subtotal, 0.001)
	assert.InDelta(t, 791.96, order.TotalAmount, 0.001)
	assert.Equal(t, int64(79196), order.AmountMinor)
	assert.Equal(t, "visa •••• 4242", order.PaymentSnapshot)
	assert.Len(t, order.OrderItems, 2)

	req := env.provider.lastRequest()
	assert.Equal(t, user.StripeCustomerID, req.CustomerID)
	assert.Equal(t, "pm_card_visa", req.PaymentMethodID)
	assert.Equal(t, user.StripeCustomerID, env.provider.attached["pm_card_visa"])
	require.Len(t, req.LineItems, 3)
	assert.Equal(t, int64(1999), req.LineItems[0].UnitAmount)
	assert.Equal(t, int64(3), req.LineItems[0].Quantity)
	assert.Equal(t, int64(60000), req.LineItems[1].UnitAmount)
	assert.Equal(t, int64(13199), req.LineItems[2].UnitAmount)
	assert.Equal(t, order.AmountMinor, sumMinor(req.LineItems))
	assert.Equal(t, "false", req.Metadata[MetaGuest])
	assert.NotEmpty(t, req.Metadata[MetaSessionID])

	// the cart stays until payment is confirmed
	items, err := env.cart.GetItems(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCheckoutService_ProviderFailureAbandonsOrder(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Endpoint Guard", 19.99, 10)

	_, address, method, res := env.customer(t, "buyer@example.com")
	_, err := env.cart.Add(ctx, res.Identity.SessionID(), product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)

	env.provider.failSession = errProviderDown
	_, err = env.checkout.CreateCheckoutSession(ctx, res.Identity, CheckoutRequest{
		AddressID: address.ID, PaymentID: method.ID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentProvider)
	assert.True(t, errors.Is(err, errProviderDown))

	var order model.Order
	require.NoError(t, env.db.First(&order).Error)
	assert.Equal(t, model.OrderStatusAbandoned, order.Status)
	assert.NotNil(t, order.AbandonedAt)
	assert.Nil(t, order.ProviderSessionID)
}

func TestCheckoutService_GuestScenario(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Tunnel VPN", 20, 5)

	guest := env.guestSession(t)
	_, err := env.cart.Add(ctx, guest.Identity.SessionID(), product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)

	result, err := env.checkout.CreateCheckoutSession(ctx, guest.Identity, CheckoutRequest{
		Guest: guestInput("Guest@Example.com"),
	})
	require.NoError(t, err)
	require.NotZero(t, result.GuestID)

	user, err := env.userRepo.FindByID(ctx, result.GuestID)
	require.NoError(t, err)
	assert.True(t, user.IsGuest)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, "guest@example.com", user.Email)
	assert.Equal(t, "cus_test_1", user.StripeCustomerID)

	address, err := env.addressRepo.FindByIDForUser(ctx, result.AddressID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "London", address.City)
	method, err := env.paymentRepo.FindByIDForUser(ctx, result.PaymentID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "pm_card_mastercard", method.StripePaymentID)

	order, err := env.orderRepo.FindByID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.InDelta(t, 20, order.Subtotal, 0.001)
	assert.InDelta(t, 4, order.TaxAmount, 0.001)
	assert.InDelta(t, 24, order.TotalAmount, 0.001)

	req := env.provider.lastRequest()
	assert.Equal(t, user.StripeCustomerID, req.CustomerID)
	assert.Equal(t, "pm_card_mastercard", req.PaymentMethodID)
	assert.Equal(t, user.StripeCustomerID, env.provider.attached["pm_card_mastercard"])
	assert.Equal(t, "true", req.Metadata[MetaGuest])
	assert.Equal(t, int64(2400), sumMinor(req.LineItems))
}

func TestCheckoutService_GuestRepeatCheckoutCreatesNewUser(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Tunnel VPN", 20, 5)

	var ids []uint
	for i := 0; i < 2; i++ {
		guest := env.guestSession(t)
		_, err := env.cart.Add(ctx, guest.Identity.SessionID(), product.ID, 1, model.PlanMonthly)
		require.NoError(t, err)
		result, err := env.checkout.CreateCheckoutSession(ctx, guest.Identity, CheckoutRequest{Guest: guestInput("same@example.com")})
		require.NoError(t, err)
		ids = append(ids, result.GuestID)
	}
	assert.NotEqual(t, ids[0], ids[1])
}

func TestCheckoutService_GuestValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Tunnel VPN", 20, 5)
	guest := env.guestSession(t)
	_, err := env.cart.Add(ctx, guest.Identity.SessionID(), product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)

	noAddress := guestInput("guest@example.com")
	noAddress.Address.City = ""
	noCard := guestInput("guest@example.com")
	noCard.Payment.StripePaymentID = ""

	tests := []struct {
		name    string
		req     CheckoutRequest
		wantErr error
	}{
		{"no guest details", CheckoutRequest{}, ErrMissingGuestEmail},
		{"no email", CheckoutRequest{Guest: guestInput("")}, ErrMissingGuestEmail},
		{"bad email", CheckoutRequest{Guest: guestInput("not-an-email")}, ErrMissingGuestEmail},
		{"incomplete address", CheckoutRequest{Guest: noAddress}, ErrInvalidAddress},
		{"incomplete card", CheckoutRequest{Guest: noCard}, ErrInvalidPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.checkout.CreateCheckoutSession(ctx, guest.Identity, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var users int64
	env.db.Model(&model.User{}).Where("is_guest = ?", true).Count(&users)
	assert.Zero(t, users)
}

func TestCheckoutService_GuestProviderCustomerFailureRollsBack(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Tunnel VPN", 20, 5)
	guest := env.guestSession(t)
	_, err := env.cart.Add(ctx, guest.Identity.SessionID(), product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)

	env.provider.failCustomer = errProviderDown
	_, err = env.checkout.CreateCheckoutSession(ctx, guest.Identity, CheckoutRequest{Guest: guestInput("guest@example.com")})
	assert.ErrorIs(t, err, ErrPaymentProvider)

	var users, addresses int64
	env.db.Model(&model.User{}).Count(&users)
	env.db.Model(&model.Address{}).Count(&addresses)
	assert.Zero(t, users)
	assert.Zero(t, addresses)
}

func TestCheckoutService_AttachFailureReservesNothing(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Endpoint Guard", 19.99, 10)

	_, address, method, res := env.customer(t, "buyer@example.com")
	_, err := env.cart.Add(ctx, res.Identity.SessionID(), product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)

	env.provider.failAttach = errProviderDown
	_, err = env.checkout.CreateCheckoutSession(ctx, res.Identity, CheckoutRequest{
		AddressID: address.ID, PaymentID: method.ID,
	})
	assert.ErrorIs(t, err, ErrPaymentProvider)

	var orders int64
	env.db.Model(&model.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

func TestCheckoutService_GuestAttachFailureRollsBack(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Tunnel VPN", 20, 5)
	guest := env.guestSession(t)
	_, err := env.cart.Add(ctx, guest.Identity.SessionID(), product.ID, 1, model.PlanMonthly)
	require.NoError(t, err)

	env.provider.failAttach = errProviderDown
	_, err = env.checkout.CreateCheckoutSession(ctx, guest.Identity, CheckoutRequest{Guest: guestInput("guest@example.com")})
	assert.ErrorIs(t, err, ErrPaymentProvider)

	var users, methods int64
	env.db.Model(&model.User{}).Count(&users)
	env.db.Model(&model.PaymentMethodInfo{}).Count(&methods)
	assert.Zero(t, users)
	assert.Zero(t, methods)
}
