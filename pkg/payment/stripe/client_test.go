package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"embedded", Config{SecretKey: "sk", Currency: "eur", UIMode: UIModeEmbedded, ReturnURL: "http://x/return"}, false},
		{"hosted", Config{SecretKey: "sk", Currency: "eur", UIMode: UIModeHosted, SuccessURL: "s", CancelURL: "c"}, false},
		{"embedded without return", Config{SecretKey: "sk", Currency: "eur", UIMode: UIModeEmbedded}, true},
		{"missing key", Config{Currency: "eur", UIMode: UIModeHosted, SuccessURL: "s", CancelURL: "c"}, true},
		{"unknown mode", Config{SecretKey: "sk", Currency: "eur", UIMode: "popup"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseEvent_CheckoutCompleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"status": "complete",
			"amount_total": 2400,
			"currency": "eur",
			"customer": "cus_123",
			"metadata": {"order_id": "42", "address_id": "7", "payment_id": "8"}
		}}
	}`)

	evt, err := ParseEvent(payload, sign(payload, testWebhookSecret, time.Now()), testWebhookSecret)
	require.NoError(t, err)

	assert.Equal(t, EventCheckoutCompleted, evt.Type)
	require.NotNil(t, evt.Session)
	assert.Equal(t, "cs_test_1", evt.Session.ID)
	assert.True(t, evt.Session.Paid())
	assert.Equal(t, "cus_123", evt.Session.CustomerID)
	assert.Equal(t, int64(2400), evt.Session.AmountTotal)
	assert.Equal(t, "42", evt.Session.Metadata["order_id"])
}

func TestParseEvent_BadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := ParseEvent(payload, sign(payload, "whsec_other", time.Now()), testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseEvent_OtherTypeHasNoSession(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	evt, err := ParseEvent(payload, sign(payload, testWebhookSecret, time.Now()), testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, "customer.created", evt.Type)
	assert.Nil(t, evt.Session)
}

func TestSessionParams_SavedPaymentMethod(t *testing.T) {
	c, err := NewClient(Config{SecretKey: "sk_test", Currency: "EUR", UIMode: UIModeEmbedded, ReturnURL: "http://x/return"})
	require.NoError(t, err)

	params := c.sessionParams(CheckoutSessionRequest{
		CustomerID:      "cus_1",
		PaymentMethodID: "pm_123",
		LineItems:       []LineItem{{Name: "Endpoint Guard (MONTHLY)", UnitAmount: 1000, Quantity: 2}},
		Metadata:        map[string]string{"order_id": "7"},
	})

	assert.Equal(t, "cus_1", *params.Customer)
	assert.Equal(t, "http://x/return", *params.ReturnURL)
	require.NotNil(t, params.PaymentIntentData)
	assert.Equal(t, "pm_123", params.PaymentIntentData.Metadata[MetaPaymentMethod])
	require.NotNil(t, params.SavedPaymentMethodOptions)
	assert.Len(t, params.SavedPaymentMethodOptions.AllowRedisplayFilters, 3)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "eur", *params.LineItems[0].PriceData.Currency)
	assert.Equal(t, "7", params.Metadata["order_id"])
}

func TestSessionParams_WithoutPaymentMethod(t *testing.T) {
	c, err := NewClient(Config{SecretKey: "sk_test", Currency: "eur", UIMode: UIModeHosted, SuccessURL: "s", CancelURL: "c"})
	require.NoError(t, err)

	params := c.sessionParams(CheckoutSessionRequest{
		CustomerID: "cus_1",
		LineItems:  []LineItem{{Name: "x", UnitAmount: 1, Quantity: 1}},
	})
	assert.Nil(t, params.PaymentIntentData)
	assert.Nil(t, params.SavedPaymentMethodOptions)
	assert.Equal(t, "s", *params.SuccessURL)
}

func TestAttachPaymentMethod_RequiresIDs(t *testing.T) {
	c, err := NewClient(Config{SecretKey: "sk_test", Currency: "eur", UIMode: UIModeHosted, SuccessURL: "s", CancelURL: "c"})
	require.NoError(t, err)

	assert.ErrorIs(t, c.AttachPaymentMethod(context.Background(), "", "pm_1"), ErrInvalidRequest)
	assert.ErrorIs(t, c.AttachPaymentMethod(context.Background(), "cus_1", ""), ErrInvalidRequest)
}
