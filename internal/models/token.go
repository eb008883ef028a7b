package models

import "time"

type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationSent      VerificationStatus = "sent"
	VerificationConfirmed VerificationStatus = "confirmed"
)

// SessionToken is an opaque bearer credential. At most one live session
// exists per user; issuing a new one revokes the rest.
type SessionToken struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

type EmailVerificationToken struct {
	ID          uint64             `gorm:"primarykey" json:"id"`
	UserID      uint64             `gorm:"not null;index" json:"user_id"`
	Token       string             `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	Status      VerificationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	ConfirmedAt *time.Time         `json:"confirmed_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

type PasswordResetToken struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	UserID    uint64     `gorm:"not null;index" json:"user_id"`
	Token     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}
