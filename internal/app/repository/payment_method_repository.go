package repository

import (
	"context"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

type PaymentMethodRepository interface {
	Create(ctx context.Context, method *model.PaymentMethodInfo) error
	FindByUserID(ctx context.Context, userID uint) ([]model.PaymentMethodInfo, error)
	FindByID(ctx context.Context, id uint) (*model.PaymentMethodInfo, error)
	FindByIDForUser(ctx context.Context, id, userID uint) (*model.PaymentMethodInfo, error)
}

type paymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) PaymentMethodRepository {
	return &paymentMethodRepository{db: db}
}

func (r *paymentMethodRepository) Create(ctx context.Context, method *model.PaymentMethodInfo) error {
	logger.Debug("Creating payment method in database", map[string]interface{}{
		"user_id": method.UserID,
		"brand":   method.Brand,
	})

	if err := r.db.WithContext(ctx).Create(method).Error; err != nil {
		logger.Error("Failed to create payment method in database", err, map[string]interface{}{
			"user_id": method.UserID,
		})
		return err
	}
	return nil
}

func (r *paymentMethodRepository) FindByUserID(ctx context.Context, userID uint) ([]model.PaymentMethodInfo, error) {
	var methods []model.PaymentMethodInfo
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&methods).Error
	if err != nil {
		logger.Error("Failed to find payment methods by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return methods, nil
}

func (r *paymentMethodRepository) FindByID(ctx context.Context, id uint) (*model.PaymentMethodInfo, error) {
	var method model.PaymentMethodInfo
	if err := r.db.WithContext(ctx).First(&method, id).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *paymentMethodRepository) FindByIDForUser(ctx context.Context, id, userID uint) (*model.PaymentMethodInfo, error) {
	var method model.PaymentMethodInfo
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&method).Error
	if err != nil {
		return nil, err
	}
	return &method, nil
}
