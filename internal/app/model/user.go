package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is either a registered customer or a provisional guest created at checkout.
// Email is not unique at the table level: repeat guest checkouts create new rows.
type User struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Email            string         `gorm:"index;not null" json:"email"`
	PasswordHash     string         `json:"-"` // empty for guests
	Name             string         `json:"name"`
	IsGuest          bool           `gorm:"default:false;index" json:"is_guest"`
	Role             UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"`
	StripeCustomerID string         `gorm:"type:varchar(64);index" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}
