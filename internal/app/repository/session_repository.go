package repository

import (
	"context"
	"time"

	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id uint) (*model.Session, error)
	FindActiveByToken(ctx context.Context, token string, now time.Time) (*model.Session, error)
	FindLatestActiveByUser(ctx context.Context, userID uint, now time.Time) (*model.Session, error)
	ExtendExpiry(ctx context.Context, id uint, expiresAt time.Time) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	logger.Debug("Creating session in database", map[string]interface{}{
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt,
	})

	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		logger.Error("Failed to create session in database", err, map[string]interface{}{
			"user_id": session.UserID,
		})
		return err
	}

	logger.Debug("Session created in database", map[string]interface{}{
		"session_id": session.ID,
		"user_id":    session.UserID,
	})
	return nil
}

func (r *sessionRepository) FindByID(ctx context.Context, id uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) FindActiveByToken(ctx context.Context, token string, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindLatestActiveByUser returns the canonical session of a user: the most
// recently created one that has not expired.
func (r *sessionRepository) FindLatestActiveByUser(ctx context.Context, userID uint, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("created_at DESC, id DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ExtendExpiry(ctx context.Context, id uint, expiresAt time.Time) error {
	logger.Debug("Extending session expiry in database", map[string]interface{}{
		"session_id": id,
		"expires_at": expiresAt,
	})

	err := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", id).
		Update("expires_at", expiresAt).Error
	if err != nil {
		logger.Error("Failed to extend session expiry", err, map[string]interface{}{
			"session_id": id,
		})
	}
	return err
}

// PurgeExpired deletes expired sessions together with their cart rows.
// Sessions a pending order still points at are kept so confirmation can
// read the cart.
func (r *sessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&model.Session{}).
			Select("id").
			Where("expires_at <= ?", now).
			Where("NOT EXISTS (SELECT 1 FROM orders WHERE orders.session_id = sessions.id AND orders.status = ?)", model.OrderStatusPending)

		if err := tx.Where("session_id IN (?)", expired).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		result := tx.Where("id IN (?)", expired).Delete(&model.Session{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to purge expired sessions", err)
		return 0, err
	}

	logger.Debug("Expired sessions purged", map[string]interface{}{
		"deleted": deleted,
	})
	return deleted, nil
}
