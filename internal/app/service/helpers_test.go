package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/internal/db"
	"github.com/sentinelshop/storefront-api/internal/invoice"
	"github.com/sentinelshop/storefront-api/pkg/payment/stripe"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errProviderDown = errors.New("card declined by test provider")

// fakeProvider records requests and serves sessions from memory.
type fakeProvider struct {
	mu            sync.Mutex
	customers     []string
	sessions      map[string]*stripe.CheckoutSession
	requests      []stripe.CheckoutSessionRequest
	failSession   error
	failCustomer  error
	failAttach    error
	attached      map[string]string // payment method -> customer
	retrieveCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions: make(map[string]*stripe.CheckoutSession),
		attached: make(map[string]string),
	}
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCustomer != nil {
		return "", f.failCustomer
	}
	id := fmt.Sprintf("cus_test_%d", len(f.customers)+1)
	f.customers = append(f.customers, id)
	return id, nil
}

func (f *fakeProvider) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAttach != nil {
		return f.failAttach
	}
	f.attached[paymentMethodID] = customerID
	return nil
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.failSession != nil {
		return nil, f.failSession
	}

	var total int64
	for _, li := range req.LineItems {
		total += li.UnitAmount * li.Quantity
	}
	id := fmt.Sprintf("cs_test_%d", len(f.sessions)+1)
	sess := &stripe.CheckoutSession{
		ID:            id,
		ClientSecret:  id + "_secret",
		Status:        "open",
		PaymentStatus: stripe.PaymentStatusUnpaid,
		CustomerID:    req.CustomerID,
		AmountTotal:   total,
		Metadata:      req.Metadata,
	}
	f.sessions[id] = sess
	out := *sess
	return &out, nil
}

func (f *fakeProvider) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveCalls++
	sess, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	out := *sess
	return &out, nil
}

func (f *fakeProvider) markPaid(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id].PaymentStatus = stripe.PaymentStatusPaid
	f.sessions[id].Status = "complete"
}

func (f *fakeProvider) lastRequest() stripe.CheckoutSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// memStore keeps invoices in memory.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (m *memStore) Save(ctx context.Context, number string, pdf []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[number]; ok {
		return "", invoice.ErrNumberTaken
	}
	m.files[number] = pdf
	return "/invoices/" + invoice.FileName(number), nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events map[uint][]*OrderSummary
}

func (n *recordingNotifier) OrderConfirmed(sessionID uint, summary *OrderSummary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[uint][]*OrderSummary)
	}
	n.events[sessionID] = append(n.events[sessionID], summary)
}

// testEnv wires every service on one in-memory database.
type testEnv struct {
	db       *gorm.DB
	provider *fakeProvider
	store    *memStore
	notifier *recordingNotifier

	sessionRepo repository.SessionRepository
	cartRepo    repository.CartRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	addressRepo repository.AddressRepository
	paymentRepo repository.PaymentMethodRepository
	productRepo repository.ProductRepository

	sessions     SessionService
	cart         CartService
	checkout     CheckoutService
	confirmation ConfirmationService
	orders       OrderService
	auth         AuthService
	accounts     AccountService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	env := &testEnv{
		db:          testDB,
		provider:    newFakeProvider(),
		store:       newMemStore(),
		notifier:    &recordingNotifier{},
		sessionRepo: repository.NewSessionRepository(testDB),
		cartRepo:    repository.NewCartRepository(testDB),
		orderRepo:   repository.NewOrderRepository(testDB),
		userRepo:    repository.NewUserRepository(testDB),
		addressRepo: repository.NewAddressRepository(testDB),
		paymentRepo: repository.NewPaymentMethodRepository(testDB),
		productRepo: repository.NewProductRepository(testDB),
	}

	env.sessions = NewSessionService(env.sessionRepo, env.cartRepo, 7*24*time.Hour, 24*time.Hour)
	env.cart = NewCartService(env.cartRepo, env.productRepo)
	env.checkout = NewCheckoutService(
		env.cartRepo, env.orderRepo, env.userRepo, env.addressRepo, env.paymentRepo,
		NewGuestPromotionService(testDB, env.provider), env.provider, "eur",
	)
	env.confirmation = NewConfirmationService(ConfirmationDeps{
		OrderRepo:   env.orderRepo,
		CartRepo:    env.cartRepo,
		SessionRepo: env.sessionRepo,
		UserRepo:    env.userRepo,
		AddressRepo: env.addressRepo,
		PaymentRepo: env.paymentRepo,
		Provider:    env.provider,
		Renderer:    invoice.NewRenderer("Sentinel Shop", "1 Rue de Test", "75001 Paris"),
		Store:       env.store,
		Notifier:    env.notifier,
	})
	env.orders = NewOrderService(env.orderRepo, 24*time.Hour)
	env.auth = NewAuthService(env.userRepo, env.provider, "test-jwt-secret", 15*time.Minute, 7*24*time.Hour)
	env.accounts = NewAccountService(env.addressRepo, env.paymentRepo)
	return env
}

func (e *testEnv) product(t *testing.T, name string, price float64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: price, Category: model.CategoryAntivirus, StockQuantity: stock}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) guestSession(t *testing.T) *ResolveResult {
	t.Helper()
	res, err := e.sessions.Resolve(context.Background(), ResolveInput{})
	require.NoError(t, err)
	return res
}

// customer creates a registered user with a payment customer, an address and
// a payment method, and resolves their session.
func (e *testEnv) customer(t *testing.T, email string) (*model.User, *model.Address, *model.PaymentMethodInfo, *ResolveResult) {
	t.Helper()
	ctx := context.Background()

	user, _, err := e.auth.Register(ctx, email, "password123", "Test Customer")
	require.NoError(t, err)
	require.NotEmpty(t, user.StripeCustomerID)

	address, err := e.accounts.CreateAddress(ctx, user.ID, AddressInput{
		FullName: "Test Customer", Address1: "1 Rue de la Paix", PostalCode: "75002", City: "Paris", Country: "fr",
	})
	require.NoError(t, err)

	method, err := e.accounts.CreatePaymentMethod(ctx, user.ID, PaymentMethodInput{
		CardName: "Test Customer", StripePaymentID: "pm_card_visa", Brand: "Visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030,
	})
	require.NoError(t, err)

	res, err := e.sessions.Resolve(ctx, ResolveInput{UserID: &user.ID})
	require.NoError(t, err)
	return user, address, method, res
}
