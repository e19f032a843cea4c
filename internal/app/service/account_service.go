package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrAddressNotFound       = errors.New("address not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrInvalidAddress        = errors.New("address is incomplete")
	ErrInvalidPaymentMethod  = errors.New("payment method is incomplete")
)

// AddressInput is the user-supplied part of an address.
type AddressInput struct {
	FullName   string
	Address1   string
	Address2   string
	PostalCode string
	City       string
	Country    string
}

func (in AddressInput) toModel(userID uint) (*model.Address, error) {
	a := &model.Address{
		UserID:     userID,
		FullName:   strings.TrimSpace(in.FullName),
		Address1:   strings.TrimSpace(in.Address1),
		Address2:   strings.TrimSpace(in.Address2),
		PostalCode: strings.TrimSpace(in.PostalCode),
		City:       strings.TrimSpace(in.City),
		Country:    strings.ToUpper(strings.TrimSpace(in.Country)),
	}
	if a.Address1 == "" || a.PostalCode == "" || a.City == "" || len(a.Country) != 2 {
		return nil, ErrInvalidAddress
	}
	return a, nil
}

// PaymentMethodInput describes a card already tokenised by the provider.
type PaymentMethodInput struct {
	CardName        string
	StripePaymentID string
	Brand           string
	Last4           string
	ExpMonth        int
	ExpYear         int
}

func (in PaymentMethodInput) toModel(userID uint) (*model.PaymentMethodInfo, error) {
	m := &model.PaymentMethodInfo{
		UserID:          userID,
		CardName:        strings.TrimSpace(in.CardName),
		StripePaymentID: strings.TrimSpace(in.StripePaymentID),
		Brand:           strings.ToLower(strings.TrimSpace(in.Brand)),
		Last4:           strings.TrimSpace(in.Last4),
		ExpMonth:        in.ExpMonth,
		ExpYear:         in.ExpYear,
	}
	if m.CardName == "" || m.StripePaymentID == "" {
		return nil, ErrInvalidPaymentMethod
	}
	if validate.Var(m.Last4, "omitempty,len=4,numeric") != nil {
		return nil, ErrInvalidPaymentMethod
	}
	if m.ExpMonth < 0 || m.ExpMonth > 12 {
		return nil, ErrInvalidPaymentMethod
	}
	return m, nil
}

// AccountService manages the addresses and payment methods a user checks
// out with.
type AccountService interface {
	ListAddresses(ctx context.Context, userID uint) ([]model.Address, error)
	CreateAddress(ctx context.Context, userID uint, in AddressInput) (*model.Address, error)
	GetAddress(ctx context.Context, userID, addressID uint) (*model.Address, error)
	ListPaymentMethods(ctx context.Context, userID uint) ([]model.PaymentMethodInfo, error)
	CreatePaymentMethod(ctx context.Context, userID uint, in PaymentMethodInput) (*model.PaymentMethodInfo, error)
	GetPaymentMethod(ctx context.Context, userID, methodID uint) (*model.PaymentMethodInfo, error)
}

type accountService struct {
	addressRepo repository.AddressRepository
	paymentRepo repository.PaymentMethodRepository
}

func NewAccountService(addressRepo repository.AddressRepository, paymentRepo repository.PaymentMethodRepository) AccountService {
	return &accountService{
		addressRepo: addressRepo,
		paymentRepo: paymentRepo,
	}
}

func (s *accountService) ListAddresses(ctx context.Context, userID uint) ([]model.Address, error) {
	return s.addressRepo.FindByUserID(ctx, userID)
}

func (s *accountService) CreateAddress(ctx context.Context, userID uint, in AddressInput) (*model.Address, error) {
	address, err := in.toModel(userID)
	if err != nil {
		return nil, err
	}
	if err := s.addressRepo.Create(ctx, address); err != nil {
		logger.FromContext(ctx).Error("Failed to create address", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.FromContext(ctx).Info("Address created", map[string]interface{}{
		"user_id":    userID,
		"address_id": address.ID,
	})
	return address, nil
}

func (s *accountService) GetAddress(ctx context.Context, userID, addressID uint) (*model.Address, error) {
	address, err := s.addressRepo.FindByIDForUser(ctx, addressID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	return address, nil
}

func (s *accountService) ListPaymentMethods(ctx context.Context, userID uint) ([]model.PaymentMethodInfo, error) {
	return s.paymentRepo.FindByUserID(ctx, userID)
}

func (s *accountService) CreatePaymentMethod(ctx context.Context, userID uint, in PaymentMethodInput) (*model.PaymentMethodInfo, error) {
	method, err := in.toModel(userID)
	if err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Create(ctx, method); err != nil {
		logger.FromContext(ctx).Error("Failed to create payment method", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.FromContext(ctx).Info("Payment method created", map[string]interface{}{
		"user_id":           userID,
		"payment_method_id": method.ID,
		"brand":             method.Brand,
	})
	return method, nil
}

func (s *accountService) GetPaymentMethod(ctx context.Context, userID, methodID uint) (*model.PaymentMethodInfo, error) {
	method, err := s.paymentRepo.FindByIDForUser(ctx, methodID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return method, nil
}
