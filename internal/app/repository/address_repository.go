package repository

import (
	"context"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

type AddressRepository interface {
	Create(ctx context.Context, address *model.Address) error
	FindByUserID(ctx context.Context, userID uint) ([]model.Address, error)
	FindByID(ctx context.Context, id uint) (*model.Address, error)
	FindByIDForUser(ctx context.Context, id, userID uint) (*model.Address, error)
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *model.Address) error {
	logger.Debug("Creating address in database", map[string]interface{}{
		"user_id": address.UserID,
		"country": address.Country,
	})

	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		logger.Error("Failed to create address in database", err, map[string]interface{}{
			"user_id": address.UserID,
		})
		return err
	}

	logger.Debug("Address created in database", map[string]interface{}{
		"address_id": address.ID,
		"user_id":    address.UserID,
	})
	return nil
}

func (r *addressRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Address, error) {
	var addresses []model.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&addresses).Error
	if err != nil {
		logger.Error("Failed to find addresses by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return addresses, nil
}

func (r *addressRepository) FindByID(ctx context.Context, id uint) (*model.Address, error) {
	var address model.Address
	if err := r.db.WithContext(ctx).First(&address, id).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *addressRepository) FindByIDForUser(ctx context.Context, id, userID uint) (*model.Address, error) {
	var address model.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}
