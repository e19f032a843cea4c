package invoice

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumber_Format(t *testing.T) {
	at := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)

	n, err := NewNumber(at)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INV-20260309-\d{4}$`), n)
}

func TestNewReservationNumber_Format(t *testing.T) {
	n, err := NewReservationNumber()
	require.NoError(t, err)
	assert.Regexp(t, `^INV-[A-Z0-9]{8}$`, n)
}

func TestRenderer_RenderProducesPDF(t *testing.T) {
	r := NewRenderer("Sentinel Shop", "12 Rue de la Paix", "75002 Paris, FR")

	data, err := r.RenderBytes(Document{
		Number:         "INV-20260309-0042",
		IssuedAt:       time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		CustomerEmail:  "a@b.com",
		BillingAddress: []string{"A B", "1 Rue X", "75000 Paris, FR"},
		PaymentSummary: "visa •••• 4242",
		Currency:       "eur",
		Lines: []Line{{
			Description: "Endpoint Guard",
			Plan:        "MONTHLY",
			Quantity:    2,
			UnitPrice:   decimal.NewFromInt(10),
			Total:       decimal.NewFromInt(20),
		}},
		Subtotal: decimal.NewFromInt(20),
		Tax:      decimal.NewFromInt(4),
		Total:    decimal.NewFromInt(24),
	})

	require.NoError(t, err)
	assert.True(t, len(data) > 100)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestLocalStore_Save(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/invoices")

	p, err := store.Save(context.Background(), "INV-20260309-0042", []byte("%PDF-1.3 test"))
	require.NoError(t, err)
	assert.Equal(t, "/invoices/INV-20260309-0042.pdf", p)

	content, err := os.ReadFile(filepath.Join(dir, "INV-20260309-0042.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 test", string(content))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLocalStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalStore(t.TempDir(), "").Save(ctx, "INV-X", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_SaveKeepsExistingInvoice(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/invoices")
	ctx := context.Background()

	_, err := store.Save(ctx, "INV-20261017-0001", []byte("customer A invoice"))
	require.NoError(t, err)

	_, err = store.Save(ctx, "INV-20261017-0001", []byte("customer B invoice"))
	assert.ErrorIs(t, err, ErrNumberTaken)

	content, err := os.ReadFile(filepath.Join(dir, "INV-20261017-0001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "customer A invoice", string(content))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
