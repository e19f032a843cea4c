package repository

import (
	"context"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindRegisteredByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	SetStripeCustomerID(ctx context.Context, id uint, customerID string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"email":    user.Email,
		"is_guest": user.IsGuest,
	})

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email":    user.Email,
			"is_guest": user.IsGuest,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id":  user.ID,
		"is_guest": user.IsGuest,
	})
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		logger.Error("Failed to find user by ID in database", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return &user, nil
}

// FindRegisteredByEmail ignores guest rows, which may share an email.
func (r *userRepository) FindRegisteredByEmail(ctx context.Context, email string) (*model.User, error) {
	logger.Debug("Finding registered user by email in database", map[string]interface{}{
		"email": email,
	})

	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_guest = ?", email, false).
		First(&user).Error
	if err != nil {
		return nil, err
	}

	logger.Debug("Registered user found by email in database", map[string]interface{}{
		"user_id": user.ID,
	})
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

func (r *userRepository) SetStripeCustomerID(ctx context.Context, id uint, customerID string) error {
	logger.Debug("Backfilling stripe customer on user", map[string]interface{}{
		"user_id":     id,
		"customer_id": customerID,
	})

	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("stripe_customer_id", customerID)
	if result.Error != nil {
		logger.Error("Failed to set stripe customer on user", result.Error, map[string]interface{}{
			"user_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
