package service

import (
	"context"
	"testing"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid registration", "Test@Example.com", "password123", nil},
		{"duplicate email", "test@example.com", "password456", ErrEmailAlreadyExists},
		{"weak password", "weak@example.com", "short", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := env.auth.Register(ctx, tt.email, tt.password, "Test User")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				assert.Nil(t, tokens)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test@example.com", user.Email)
			assert.False(t, user.IsGuest)
			assert.Equal(t, model.RoleUser, user.Role)
			assert.NotEmpty(t, user.StripeCustomerID)
			assert.NotEmpty(t, tokens.AccessToken)

			claims, err := util.ValidateToken(tokens.AccessToken, "test-jwt-secret")
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
		})
	}
}

func TestAuthService_RegisterAfterGuestCheckout(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	guest := &model.User{Email: "shopper@example.com", IsGuest: true, Role: model.RoleUser}
	require.NoError(t, env.db.Create(guest).Error)

	user, _, err := env.auth.Register(ctx, "shopper@example.com", "password123", "Shopper")
	require.NoError(t, err)
	assert.NotEqual(t, guest.ID, user.ID)
}

func TestAuthService_RegisterSurvivesProviderOutage(t *testing.T) {
	env := setupEnv(t)
	env.provider.failCustomer = errProviderDown

	user, tokens, err := env.auth.Register(context.Background(), "offline@example.com", "password123", "Offline")
	require.NoError(t, err)
	assert.NotNil(t, tokens)
	assert.Empty(t, user.StripeCustomerID)
}

func TestAuthService_Login(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	_, _, err := env.auth.Register(ctx, "login@example.com", "password123", "Login User")
	require.NoError(t, err)

	guest := &model.User{Email: "guest-only@example.com", IsGuest: true, Role: model.RoleUser}
	require.NoError(t, env.db.Create(guest).Error)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", "login@example.com", "password123", nil},
		{"email is case insensitive", " LOGIN@example.com ", "password123", nil},
		{"wrong password", "login@example.com", "wrongpassword", ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", "password123", ErrInvalidCredentials},
		{"guest accounts cannot log in", "guest-only@example.com", "", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := env.auth.Login(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "login@example.com", user.Email)
			assert.NotEmpty(t, tokens.RefreshToken)
		})
	}
}

func TestAuthService_GetUserAndUpdateProfile(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	user, _, err := env.auth.Register(ctx, "profile@example.com", "password123", "Before")
	require.NoError(t, err)

	updated, err := env.auth.UpdateProfile(ctx, user.ID, "  After  ")
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)

	_, err = env.auth.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
