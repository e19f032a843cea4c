package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PaymentMethodInfo keeps a display summary of a saved card. Full card data
// never reaches this service; StripePaymentID points at the provider's record.
type PaymentMethodInfo struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	CardName        string         `gorm:"size:100;not null" json:"card_name"`
	Brand           string         `gorm:"size:20" json:"brand"`
	Last4           string         `gorm:"size:4" json:"last4"`
	ExpMonth        int            `json:"exp_month,omitempty"`
	ExpYear         int            `json:"exp_year,omitempty"`
	StripePaymentID string         `gorm:"type:varchar(64);not null" json:"stripe_payment_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PaymentMethodInfo) TableName() string {
	return "payment_methods"
}

// Summary is the brand/last-4 text shown on orders and invoices.
func (p *PaymentMethodInfo) Summary() string {
	brand := p.Brand
	if brand == "" {
		brand = "card"
	}
	if p.Last4 == "" {
		return fmt.Sprintf("%s (%s)", brand, p.CardName)
	}
	return fmt.Sprintf("%s •••• %s", brand, p.Last4)
}
