package model

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus moves Pending -> Confirmed or Pending -> Abandoned, never back.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // reserved, provider session open
	OrderStatusConfirmed OrderStatus = "confirmed" // provider reported paid
	OrderStatusAbandoned OrderStatus = "abandoned" // provider failed, expired or never paid
)

type Order struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	UserID            uint           `gorm:"not null;index" json:"user_id"`
	SessionID         uint           `gorm:"not null;index" json:"session_id"` // cart session the order was built from
	Status            OrderStatus    `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Subtotal          float64        `gorm:"not null" json:"subtotal"`
	TaxAmount         float64        `gorm:"not null" json:"tax_amount"`
	TotalAmount       float64        `gorm:"not null" json:"total_amount"` // tax inclusive
	AmountMinor       int64          `gorm:"not null" json:"amount_minor"`
	Currency          string         `gorm:"type:varchar(3);not null" json:"currency"`
	InvoiceNumber     string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"invoice_number"`
	InvoicePath       string         `json:"invoice_path,omitempty"`
	ProviderSessionID *string        `gorm:"type:varchar(255);uniqueIndex" json:"provider_session_id,omitempty"`
	AddressID         uint           `gorm:"index" json:"address_id"`
	PaymentMethodID   uint           `gorm:"index" json:"payment_method_id"`
	AddressSnapshot   string         `gorm:"type:text" json:"address_snapshot"`
	PaymentSnapshot   string         `gorm:"type:varchar(100)" json:"payment_snapshot"` // brand and last 4 only
	ConfirmedAt       *time.Time     `json:"confirmed_at,omitempty"`
	AbandonedAt       *time.Time     `json:"abandoned_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	User       User        `gorm:"foreignKey:UserID" json:"-"`
	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a price snapshot taken from the cart; later catalog changes
// do not touch it.
type OrderItem struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	OrderID     uint             `gorm:"not null;index" json:"order_id"`
	ProductID   uint             `gorm:"not null;index" json:"product_id"`
	ProductName string           `gorm:"not null" json:"product_name"`
	Quantity    int              `gorm:"not null" json:"quantity"`
	UnitPrice   float64          `gorm:"not null" json:"unit_price"` // base catalog price at order time
	Plan        SubscriptionPlan `gorm:"type:varchar(20);not null" json:"subscription_type"`
	LineTotal   float64          `gorm:"not null" json:"line_total"` // plan adjusted, before tax
	CreatedAt   time.Time        `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
