package models

import "time"

// User mirrors a Telegram account.
// TelegramID is issued by Telegram and never changes; display fields are re-synced.
type User struct {
	ID         int       `json:"id" gorm:"primaryKey;autoIncrement"`
	TelegramID int64     `json:"telegram_id" gorm:"not null;uniqueIndex"`
	Username   *string   `json:"username" gorm:"size:255"`
	FirstName  *string   `json:"first_name" gorm:"size:255"`
	LastName   *string   `json:"last_name" gorm:"size:255"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
}

// TelegramUser is the identity carried by Web App initData and by bot updates.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// Profile converts the Telegram identity into the user's display attributes.
func (u TelegramUser) Profile() UserProfile {
	return UserProfile{
		Username:  nonEmpty(u.Username),
		FirstName: nonEmpty(u.FirstName),
		LastName:  nonEmpty(u.LastName),
	}
}

// UserProfile holds the mutable display attributes of a user.
type UserProfile struct {
	Username  *string
	FirstName *string
	LastName  *string
}

// SessionTokenResponse is returned by POST /api/auth/token.
type SessionTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
