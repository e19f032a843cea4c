package model

import "time"

// CartItem rows are hard-deleted; the unique index backs the atomic
// add-or-increment upsert.
type CartItem struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	SessionID uint             `gorm:"not null;uniqueIndex:idx_cart_session_product_plan,priority:1" json:"session_id"`
	ProductID uint             `gorm:"not null;uniqueIndex:idx_cart_session_product_plan,priority:2;index" json:"product_id"`
	Plan      SubscriptionPlan `gorm:"type:varchar(20);not null;uniqueIndex:idx_cart_session_product_plan,priority:3" json:"subscription_type"`
	Quantity  int              `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	Session Session `gorm:"foreignKey:SessionID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
