package service

import (
	"context"
	"testing"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_AnonymousCreatesSessionAndCookie(t *testing.T) {
	env := setupEnv(t)

	res, err := env.sessions.Resolve(context.Background(), ResolveInput{})
	require.NoError(t, err)

	assert.True(t, res.IsNewlyCreated)
	assert.True(t, res.IsGuest())
	assert.True(t, res.SetCookie)
	assert.Len(t, res.CookieToken, 64)
	assert.True(t, res.Session.ExpiresAt.After(time.Now().Add(6*24*time.Hour)))
	assert.Nil(t, res.Session.UserID)
	assert.NotZero(t, res.Identity.SessionID())
}

func TestSessionService_AnonymousIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first, err := env.sessions.Resolve(ctx, ResolveInput{})
	require.NoError(t, err)

	second, err := env.sessions.Resolve(ctx, ResolveInput{CookieToken: first.CookieToken})
	require.NoError(t, err)

	assert.False(t, second.IsNewlyCreated)
	assert.False(t, second.SetCookie)
	assert.Equal(t, first.Identity.SessionID(), second.Identity.SessionID())
	assert.True(t, second.Session.ExpiresAt.After(time.Now()))
}

func TestSessionService_AnonymousExpiredCookieStartsOver(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	old := &model.Session{Token: "expired-token", ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, env.db.Create(old).Error)

	res, err := env.sessions.Resolve(ctx, ResolveInput{CookieToken: old.Token})
	require.NoError(t, err)

	assert.True(t, res.IsNewlyCreated)
	assert.NotEqual(t, old.ID, res.Identity.SessionID())
	assert.NotEqual(t, old.Token, res.CookieToken)
}

func TestSessionService_AnonymousRenewsNearExpiry(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	s := &model.Session{Token: "about-to-expire", ExpiresAt: time.Now().Add(2 * time.Hour)}
	require.NoError(t, env.db.Create(s).Error)

	res, err := env.sessions.Resolve(ctx, ResolveInput{CookieToken: s.Token})
	require.NoError(t, err)

	assert.Equal(t, s.ID, res.Identity.SessionID())
	assert.True(t, res.SetCookie)
	assert.True(t, res.CookieExpires.After(time.Now().Add(6*24*time.Hour)))

	stored, err := env.sessionRepo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.After(time.Now().Add(6*24*time.Hour)))
}

func TestSessionService_UserSessionReusedAndExtended(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	user := &model.User{Email: "member@example.com", Role: model.RoleUser}
	require.NoError(t, env.db.Create(user).Error)

	first, err := env.sessions.Resolve(ctx, ResolveInput{UserID: &user.ID})
	require.NoError(t, err)
	assert.True(t, first.IsNewlyCreated)
	assert.False(t, first.IsGuest())
	assert.False(t, first.SetCookie)

	uid, ok := UserIDOf(first.Identity)
	require.True(t, ok)
	assert.Equal(t, user.ID, uid)

	require.NoError(t, env.db.Model(&model.Session{}).Where("id = ?", first.Session.ID).
		Update("expires_at", time.Now().Add(time.Hour)).Error)

	second, err := env.sessions.Resolve(ctx, ResolveInput{UserID: &user.ID})
	require.NoError(t, err)
	assert.False(t, second.IsNewlyCreated)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.True(t, second.Session.ExpiresAt.After(time.Now().Add(6*24*time.Hour)))
}

func TestSessionService_LoginCarriesAnonymousCart(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	product := env.product(t, "Endpoint Guard", 19.99, 10)

	anon := env.guestSession(t)
	_, err := env.cart.Add(ctx, anon.Identity.SessionID(), product.ID, 2, model.PlanMonthly)
	require.NoError(t, err)

	user := &model.User{Email: "member@example.com", Role: model.RoleUser}
	require.NoError(t, env.db.Create(user).Error)

	res, err := env.sessions.Resolve(ctx, ResolveInput{UserID: &user.ID, CookieToken: anon.CookieToken})
	require.NoError(t, err)

	assert.True(t, res.ClearCookie)
	assert.Equal(t, 1, res.CarriedOver)

	items, err := env.cart.GetItems(ctx, res.Identity.SessionID())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	left, err := env.cart.GetItems(ctx, anon.Identity.SessionID())
	require.NoError(t, err)
	assert.Empty(t, left)

	// the anonymous session is not re-owned
	stored, err := env.sessionRepo.FindByID(ctx, anon.Identity.SessionID())
	require.NoError(t, err)
	assert.True(t, stored.IsAnonymous())
}

func TestSessionService_PurgeExpired(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	expired := &model.Session{Token: "gone", ExpiresAt: time.Now().Add(-time.Hour)}
	live := &model.Session{Token: "live", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, env.db.Create(expired).Error)
	require.NoError(t, env.db.Create(live).Error)

	n, err := env.sessions.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = env.sessionRepo.FindByID(ctx, live.ID)
	assert.NoError(t, err)
}
