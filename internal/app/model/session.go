package model

import "time"

// Session identifies a shopper, anonymous or logged in. The token is the
// cookie value for anonymous shoppers.
type Session struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Token     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"` // nil for anonymous sessions
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Session) TableName() string {
	return "sessions"
}

// IsAnonymous reports whether no user owns the session.
func (s *Session) IsAnonymous() bool {
	return s.UserID == nil
}

// ExpiredAt reports whether the session is no longer valid at t.
func (s *Session) ExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.After(t)
}
