package repository

import (
	"context"
	"testing"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return testDB, NewUserRepository(testDB)
}

func TestUserRepository_GuestsMayShareEmail(t *testing.T) {
	_, repo := setupUserTest(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		guest := &model.User{Email: "a@b.com", IsGuest: true, Role: model.RoleUser}
		require.NoError(t, repo.Create(ctx, guest))
		assert.NotZero(t, guest.ID)
	}

	_, err := repo.FindRegisteredByEmail(ctx, "a@b.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_FindRegisteredByEmail(t *testing.T) {
	_, repo := setupUserTest(t)
	ctx := context.Background()

	registered := &model.User{Email: "a@b.com", PasswordHash: "hash", Name: "A", Role: model.RoleUser}
	require.NoError(t, repo.Create(ctx, registered))
	require.NoError(t, repo.Create(ctx, &model.User{Email: "a@b.com", IsGuest: true}))

	found, err := repo.FindRegisteredByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, found.ID)
}

func TestUserRepository_SetStripeCustomerID(t *testing.T) {
	_, repo := setupUserTest(t)
	ctx := context.Background()

	user := &model.User{Email: "c@d.com", Role: model.RoleUser}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.SetStripeCustomerID(ctx, user.ID, "cus_123"))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_123", found.StripeCustomerID)

	assert.ErrorIs(t, repo.SetStripeCustomerID(ctx, 9999, "cus_x"), gorm.ErrRecordNotFound)
}
