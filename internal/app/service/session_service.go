package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"github.com/sentinelshop/storefront-api/pkg/util"
	"gorm.io/gorm"
)

var ErrSessionUnavailable = errors.New("session could not be established")

// ResolveInput is what the session middleware knows about a request.
type ResolveInput struct {
	UserID      *uint  // set when a valid bearer token was presented
	CookieToken string // value of the anonymous session cookie, may be empty
}

// ResolveResult carries the identity plus cookie instructions for the caller.
type ResolveResult struct {
	Identity       Identity
	Session        *model.Session
	IsNewlyCreated bool

	// SetCookie asks the caller to (re)issue the anonymous cookie with
	// CookieToken until CookieExpires.
	SetCookie     bool
	CookieToken   string
	CookieExpires time.Time

	// ClearCookie asks the caller to drop the anonymous cookie.
	ClearCookie bool
	CarriedOver int
}

// IsGuest reports whether the request is anonymous.
func (r *ResolveResult) IsGuest() bool {
	_, ok := r.Identity.(GuestIdentity)
	return ok
}

type SessionService interface {
	Resolve(ctx context.Context, in ResolveInput) (*ResolveResult, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type sessionService struct {
	sessionRepo   repository.SessionRepository
	cartRepo      repository.CartRepository
	ttl           time.Duration
	renewalWindow time.Duration
	now           func() time.Time
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	cartRepo repository.CartRepository,
	ttl, renewalWindow time.Duration,
) SessionService {
	return &sessionService{
		sessionRepo:   sessionRepo,
		cartRepo:      cartRepo,
		ttl:           ttl,
		renewalWindow: renewalWindow,
		now:           time.Now,
	}
}

func (s *sessionService) Resolve(ctx context.Context, in ResolveInput) (*ResolveResult, error) {
	if in.UserID != nil {
		return s.resolveUser(ctx, *in.UserID, in.CookieToken)
	}
	return s.resolveAnonymous(ctx, in.CookieToken)
}

func (s *sessionService) resolveUser(ctx context.Context, userID uint, cookieToken string) (*ResolveResult, error) {
	log := logger.FromContext(ctx)
	now := s.now()

	res := &ResolveResult{}
	session, err := s.sessionRepo.FindLatestActiveByUser(ctx, userID, now)
	switch {
	case err == nil:
		if err := s.renew(ctx, session, now); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		session, err = s.create(ctx, &userID, now)
		if err != nil {
			return nil, err
		}
		res.IsNewlyCreated = true
	default:
		log.Error("Failed to load user session", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	res.Session = session
	res.Identity = UserIdentity{UserID: userID, Session: session.ID}

	if cookieToken != "" {
		res.CarriedOver, res.ClearCookie = s.carryOver(ctx, cookieToken, session, now)
	}
	return res, nil
}

// carryOver moves the cart of a still-valid anonymous session into the user
// session. The anonymous session itself is left anonymous.
func (s *sessionService) carryOver(ctx context.Context, cookieToken string, target *model.Session, now time.Time) (int, bool) {
	log := logger.FromContext(ctx)

	anon, err := s.sessionRepo.FindActiveByToken(ctx, cookieToken, now)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Failed to look up anonymous session for carry-over", map[string]interface{}{
				"error": err.Error(),
			})
			return 0, false
		}
		return 0, true
	}
	if !anon.IsAnonymous() || anon.ID == target.ID {
		return 0, true
	}

	moved, err := s.cartRepo.MergeSessions(ctx, anon.ID, target.ID)
	if err != nil {
		log.Warn("Failed to carry anonymous cart into user session", map[string]interface{}{
			"from_session_id": anon.ID,
			"to_session_id":   target.ID,
			"error":           err.Error(),
		})
		return 0, false
	}
	if moved > 0 {
		log.Info("Anonymous cart carried into user session", map[string]interface{}{
			"from_session_id": anon.ID,
			"to_session_id":   target.ID,
			"lines":           moved,
		})
	}
	return moved, true
}

func (s *sessionService) resolveAnonymous(ctx context.Context, cookieToken string) (*ResolveResult, error) {
	log := logger.FromContext(ctx)
	now := s.now()

	if cookieToken != "" {
		session, err := s.sessionRepo.FindActiveByToken(ctx, cookieToken, now)
		switch {
		case err == nil && session.IsAnonymous():
			renewed := session.ExpiresAt.Sub(now) < s.renewalWindow
			if err := s.renew(ctx, session, now); err != nil {
				return nil, err
			}
			return &ResolveResult{
				Identity:      GuestIdentity{Session: session.ID},
				Session:       session,
				SetCookie:     renewed,
				CookieToken:   session.Token,
				CookieExpires: session.ExpiresAt,
			}, nil
		case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
			// expired, unknown or user-owned token: start over
		default:
			log.Error("Failed to load anonymous session", err)
			return nil, err
		}
	}

	session, err := s.create(ctx, nil, now)
	if err != nil {
		return nil, err
	}
	return &ResolveResult{
		Identity:       GuestIdentity{Session: session.ID},
		Session:        session,
		IsNewlyCreated: true,
		SetCookie:      true,
		CookieToken:    session.Token,
		CookieExpires:  session.ExpiresAt,
	}, nil
}

func (s *sessionService) renew(ctx context.Context, session *model.Session, now time.Time) error {
	if session.ExpiresAt.Sub(now) >= s.renewalWindow {
		return nil
	}
	expiresAt := now.Add(s.ttl)
	if err := s.sessionRepo.ExtendExpiry(ctx, session.ID, expiresAt); err != nil {
		logger.FromContext(ctx).Error("Failed to extend session", err, map[string]interface{}{
			"session_id": session.ID,
		})
		return err
	}
	session.ExpiresAt = expiresAt
	return nil
}

func (s *sessionService) create(ctx context.Context, userID *uint, now time.Time) (*model.Session, error) {
	log := logger.FromContext(ctx)

	session := &model.Session{
		Token:     util.NewSessionToken(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		log.Error("Failed to create session", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if session.ID == 0 {
		log.Error("Session created without identifier", ErrSessionUnavailable)
		return nil, ErrSessionUnavailable
	}

	log.Debug("Session created", map[string]interface{}{
		"session_id": session.ID,
		"anonymous":  userID == nil,
	})
	return session, nil
}

// PurgeExpired deletes expired sessions and their carts. Sessions still
// referenced by a pending order are kept.
func (s *sessionService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.FromContext(ctx).Info("Expired sessions purged", map[string]interface{}{
			"count": n,
		})
	}
	return n, nil
}
