package model

import (
	"time"

	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryAntivirus ProductCategory = "antivirus"
	CategoryVPN       ProductCategory = "vpn"
	CategoryFirewall  ProductCategory = "firewall"
	CategoryEDR       ProductCategory = "edr"
	CategoryOther     ProductCategory = "other"
)

type Product struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `gorm:"not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Category      ProductCategory `gorm:"type:varchar(50);default:'other'" json:"category"`
	Price         float64         `gorm:"not null" json:"price"` // base unit price, one month or one seat
	StockQuantity int             `gorm:"default:0" json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	CartItems []CartItem `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
