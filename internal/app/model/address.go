package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Address struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	FullName   string         `gorm:"size:100" json:"full_name"`
	Address1   string         `gorm:"type:text;not null" json:"address1"`
	Address2   string         `gorm:"type:text" json:"address2"`
	PostalCode string         `gorm:"size:20;not null" json:"postal_code"`
	City       string         `gorm:"size:100;not null" json:"city"`
	Country    string         `gorm:"size:2;not null" json:"country"` // ISO 3166-1 alpha-2
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Address) TableName() string {
	return "addresses"
}

// Lines renders the address the way it is printed on an invoice.
func (a *Address) Lines() []string {
	lines := make([]string, 0, 4)
	if a.FullName != "" {
		lines = append(lines, a.FullName)
	}
	lines = append(lines, a.Address1)
	if a.Address2 != "" {
		lines = append(lines, a.Address2)
	}
	lines = append(lines, strings.TrimSpace(fmt.Sprintf("%s %s, %s", a.PostalCode, a.City, a.Country)))
	return lines
}

// Snapshot is the single-line copy embedded in an order.
func (a *Address) Snapshot() string {
	return strings.Join(a.Lines(), ", ")
}
