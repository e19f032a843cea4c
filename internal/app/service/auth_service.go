package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"github.com/sentinelshop/storefront-api/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = util.ErrPasswordPolicy
)

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*model.User, *util.TokenPair, error)
	Login(ctx context.Context, email, password string) (*model.User, *util.TokenPair, error)
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, name string) (*model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	provider      PaymentProvider
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService builds the auth service. provider may be nil, in which case
// new accounts get no payment customer until one is attached.
func NewAuthService(
	userRepo repository.UserRepository,
	provider PaymentProvider,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		provider:      provider,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, email, password, name string) (*model.User, *util.TokenPair, error) {
	log := logger.FromContext(ctx)
	email = normalizeEmail(email)

	log.Info("Attempting user registration", map[string]interface{}{
		"email": email,
	})

	if err := util.CheckPasswordPolicy(password); err != nil {
		return nil, nil, ErrWeakPassword
	}

	// guest rows may share the address; only registered accounts are unique
	existing, err := s.userRepo.FindRegisteredByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}
	if existing != nil {
		log.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		log.Error("Failed to hash password", err)
		return nil, nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         strings.TrimSpace(name),
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Error("Failed to create user in database", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	s.attachCustomer(ctx, user)

	tokens, err := s.issueTokens(user)
	if err != nil {
		log.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, err
	}

	log.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return user, tokens, nil
}

// attachCustomer creates the payment customer for a new account. Failure is
// logged and left for checkout to report.
func (s *authService) attachCustomer(ctx context.Context, user *model.User) {
	if s.provider == nil {
		return
	}
	log := logger.FromContext(ctx)

	customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		log.Warn("Failed to create payment customer for new user", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return
	}
	if err := s.userRepo.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
		log.Warn("Failed to store payment customer id", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return
	}
	user.StripeCustomerID = customerID
}

func (s *authService) Login(ctx context.Context, email, password string) (*model.User, *util.TokenPair, error) {
	log := logger.FromContext(ctx)
	email = normalizeEmail(email)

	log.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindRegisteredByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		log.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		log.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		log.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, err
	}

	log.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	return util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
}

func (s *authService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.FromContext(ctx).Error("Failed to get user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uint, name string) (*model.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = strings.TrimSpace(name)
	if err := s.userRepo.Update(ctx, user); err != nil {
		logger.FromContext(ctx).Error("Failed to update profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.FromContext(ctx).Info("Profile updated", map[string]interface{}{
		"user_id": userID,
	})
	return user, nil
}
