package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

var ErrMissingGuestEmail = errors.New("guest email is required")

// validate applies the same tag rules gin binding uses on request structs.
var validate = validator.New()

// GuestCheckoutInput is what an anonymous shopper submits at checkout.
type GuestCheckoutInput struct {
	Email   string
	Name    string
	Address AddressInput
	Payment PaymentMethodInput
}

// GuestAccount is the provisional account created for a guest checkout.
type GuestAccount struct {
	User          *model.User
	Address       *model.Address
	PaymentMethod *model.PaymentMethodInfo
}

// GuestPromotionService turns guest checkout details into a provisional
// user with its address, payment method and payment customer. The card is
// attached to the new customer.
type GuestPromotionService interface {
	Promote(ctx context.Context, in GuestCheckoutInput) (*GuestAccount, error)
}

type guestPromotionService struct {
	db       *gorm.DB
	provider PaymentProvider
}

func NewGuestPromotionService(db *gorm.DB, provider PaymentProvider) GuestPromotionService {
	return &guestPromotionService{db: db, provider: provider}
}

// Promote always creates a new guest user. Repeat checkouts with the same
// email are not merged.
func (s *guestPromotionService) Promote(ctx context.Context, in GuestCheckoutInput) (*GuestAccount, error) {
	log := logger.FromContext(ctx)

	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, ErrMissingGuestEmail
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, ErrMissingGuestEmail
	}

	// validated before anything is written
	address, err := in.Address.toModel(0)
	if err != nil {
		return nil, err
	}
	method, err := in.Payment.toModel(0)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = address.FullName
	}

	account := &GuestAccount{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userRepo := repository.NewUserRepository(tx)
		addressRepo := repository.NewAddressRepository(tx)
		paymentRepo := repository.NewPaymentMethodRepository(tx)

		user := &model.User{
			Email:   email,
			Name:    name,
			IsGuest: true,
			Role:    model.RoleUser,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return err
		}

		address.UserID = user.ID
		if err := addressRepo.Create(ctx, address); err != nil {
			return err
		}
		method.UserID = user.ID
		if err := paymentRepo.Create(ctx, method); err != nil {
			return err
		}

		customerID, err := s.provider.CreateCustomer(ctx, email, name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentProvider, err)
		}
		if err := s.provider.AttachPaymentMethod(ctx, customerID, method.StripePaymentID); err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentProvider, err)
		}
		if err := userRepo.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
			return err
		}
		user.StripeCustomerID = customerID

		account.User = user
		account.Address = address
		account.PaymentMethod = method
		return nil
	})
	if err != nil {
		log.Error("Guest promotion failed", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	log.Info("Guest promoted to provisional user", map[string]interface{}{
		"user_id":           account.User.ID,
		"address_id":        account.Address.ID,
		"payment_method_id": account.PaymentMethod.ID,
	})
	return account, nil
}
