package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderFixture struct {
	db      *gorm.DB
	repo    OrderRepository
	user    *model.User
	session *model.Session
	product *model.Product
}

func setupOrderTest(t *testing.T) orderFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	user := &model.User{Email: "buyer@example.com", Name: "Buyer", Role: model.RoleUser}
	require.NoError(t, testDB.Create(user).Error)

	session := &model.Session{Token: "tok-order", UserID: &user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, testDB.Create(session).Error)

	product := &model.Product{Name: "Tunnel VPN", Price: 6.5, StockQuantity: 100}
	require.NoError(t, testDB.Create(product).Error)

	return orderFixture{db: testDB, repo: NewOrderRepository(testDB), user: user, session: session, product: product}
}

func (f orderFixture) pendingOrder(t *testing.T, invoice string) *model.Order {
	order := &model.Order{
		UserID:        f.user.ID,
		SessionID:     f.session.ID,
		Status:        model.OrderStatusPending,
		Subtotal:      13,
		TaxAmount:     2.6,
		TotalAmount:   15.6,
		AmountMinor:   1560,
		Currency:      "eur",
		InvoiceNumber: invoice,
		OrderItems: []model.OrderItem{{
			ProductID:   f.product.ID,
			ProductName: f.product.Name,
			Quantity:    2,
			UnitPrice:   6.5,
			Plan:        model.PlanMonthly,
			LineTotal:   13,
		}},
	}
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()

	order := f.pendingOrder(t, "INV-AAAA0001")
	assert.NotZero(t, order.ID)

	found, err := f.repo.FindByIDForUser(ctx, order.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-AAAA0001", found.InvoiceNumber)
	assert.Len(t, found.OrderItems, 1)

	_, err = f.repo.FindByIDForUser(ctx, order.ID, f.user.ID+1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	list, err := f.repo.FindByUserID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOrderRepository_AttachProviderSession(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()

	order := f.pendingOrder(t, "INV-AAAA0002")
	require.NoError(t, f.repo.AttachProviderSession(ctx, order.ID, "cs_test_1"))

	found, err := f.repo.FindByProviderSessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	err = f.repo.AttachProviderSession(ctx, order.ID, "cs_test_2")
	assert.ErrorIs(t, err, ErrOrderNotPending, "the idempotency key is set once")
}

func TestOrderRepository_MarkAbandoned(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()

	order := f.pendingOrder(t, "INV-AAAA0003")

	changed, err := f.repo.MarkAbandoned(ctx, order.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.repo.MarkAbandoned(ctx, order.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	found, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusAbandoned, found.Status)
	assert.NotNil(t, found.AbandonedAt)
}

func TestOrderRepository_AbandonStale(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()

	old := f.pendingOrder(t, "INV-AAAA0004")
	fresh := f.pendingOrder(t, "INV-AAAA0005")
	require.NoError(t, f.db.Model(&model.Order{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	n, err := f.repo.AbandonStale(ctx, time.Now().Add(-24*time.Hour), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
}

func TestOrderRepository_Confirm(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()

	order := f.pendingOrder(t, "INV-AAAA0006")
	cart := NewCartRepository(f.db)
	_, err := cart.AddOrIncrement(ctx, f.session.ID, f.product.ID, model.PlanMonthly, 3)
	require.NoError(t, err)

	params := ConfirmParams{
		OrderID:         order.ID,
		UserID:          f.user.ID,
		InvoiceNumber:   "INV-20260309-1234",
		InvoicePath:     "/invoices/INV-20260309-1234.pdf",
		Subtotal:        19.5,
		TaxAmount:       3.9,
		TotalAmount:     23.4,
		AmountMinor:     2340,
		AddressID:       7,
		PaymentMethodID: 8,
		AddressSnapshot: "1 Rue X, 75000 Paris, FR",
		PaymentSnapshot: "visa •••• 4242",
		Items: []model.OrderItem{{
			ProductID:   f.product.ID,
			ProductName: f.product.Name,
			Quantity:    3,
			UnitPrice:   6.5,
			Plan:        model.PlanMonthly,
			LineTotal:   19.5,
		}},
		ClearSessionID: f.session.ID,
		ConfirmedAt:    time.Now(),
	}

	confirmed, err := f.repo.Confirm(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, confirmed.Status)
	assert.Equal(t, "INV-20260309-1234", confirmed.InvoiceNumber)
	require.Len(t, confirmed.OrderItems, 1)
	assert.Equal(t, 3, confirmed.OrderItems[0].Quantity)
	assert.NotNil(t, confirmed.ConfirmedAt)

	count, err := cart.CountBySessionID(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.repo.Confirm(ctx, params)
	assert.ErrorIs(t, err, ErrOrderNotPending)
}
