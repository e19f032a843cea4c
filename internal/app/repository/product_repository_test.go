package repository

import (
	"context"
	"testing"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductTest(t *testing.T) ProductRepository {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	repo := NewProductRepository(testDB)
	for _, p := range db.DefaultCatalog() {
		p := p
		require.NoError(t, repo.Create(context.Background(), &p))
	}
	return repo
}

func TestProductRepository_FindWithFilter(t *testing.T) {
	repo := setupProductTest(t)
	ctx := context.Background()

	vpn := model.CategoryVPN
	tests := []struct {
		name   string
		filter ProductFilter
		want   int
	}{
		{"all", ProductFilter{}, 4},
		{"by category", ProductFilter{Category: &vpn}, 1},
		{"search", ProductFilter{Search: "Endpoint"}, 2},
		{"limit", ProductFilter{Limit: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.FindWithFilter(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, products, tt.want)
		})
	}
}

func TestProductRepository_SortByPrice(t *testing.T) {
	repo := setupProductTest(t)

	products, err := repo.FindWithFilter(context.Background(), ProductFilter{SortBy: ProductSortPrice, SortAscending: true})
	require.NoError(t, err)
	require.Len(t, products, 4)
	assert.Equal(t, 6.5, products[0].Price)
	assert.Equal(t, 49.0, products[3].Price)
}

func TestProductRepository_FindByIDs(t *testing.T) {
	repo := setupProductTest(t)
	ctx := context.Background()

	found, err := repo.FindByIDs(ctx, []uint{1, 2, 999})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Contains(t, found, uint(1))
	assert.NotContains(t, found, uint(999))
}

func TestProductRepository_UpsertByName(t *testing.T) {
	repo := setupProductTest(t)
	ctx := context.Background()

	p := &model.Product{Name: "Tunnel VPN", Price: 7.25, StockQuantity: 50, Category: model.CategoryVPN}
	require.NoError(t, repo.UpsertByName(ctx, p))

	all, err := repo.FindWithFilter(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7.25, got.Price)

	fresh := &model.Product{Name: "Mail Shield", Price: 3, StockQuantity: 10}
	require.NoError(t, repo.UpsertByName(ctx, fresh))
	assert.NotZero(t, fresh.ID)
}
