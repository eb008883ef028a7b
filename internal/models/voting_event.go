package models

import "time"

// DelegateLockOverride values. An unset override means the lock is derived
// from the delegate deadline.
const (
	LockOverrideLocked   = "locked"
	LockOverrideUnlocked = "unlocked"
)

// VotingEvent is a federation-wide vote. At most one event is active at a
// time, and is_voting_enabled is only meaningful on the active event.
type VotingEvent struct {
	ID                   uint64     `gorm:"primarykey" json:"id"`
	Title                string     `gorm:"type:varchar(255);not null" json:"title"`
	Description          *string    `gorm:"type:text" json:"description"`
	EventDate            *time.Time `json:"event_date"`
	DelegateDeadline     *time.Time `json:"delegate_deadline"`
	IsActive             bool       `gorm:"not null;default:false;index" json:"is_active"`
	IsVotingEnabled      bool       `gorm:"not null;default:false" json:"is_voting_enabled"`
	DelegateLimit        int        `gorm:"not null;default:1" json:"delegate_limit"`
	DelegateLockOverride *string    `gorm:"type:varchar(20)" json:"delegate_lock_override"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Relations
	Delegates   []EventDelegate    `gorm:"foreignKey:EventID" json:"delegates,omitempty"`
	AccessCodes []VotingAccessCode `gorm:"foreignKey:EventID" json:"-"`
}

// EventDelegate assigns a user to represent an organization in one event.
// A user is counted at most once per event, even across organizations.
type EventDelegate struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	EventID        uint64    `gorm:"not null;uniqueIndex:uq_event_user,priority:1" json:"event_id"`
	OrganizationID uint64    `gorm:"not null;index" json:"organization_id"`
	UserID         uint64    `gorm:"not null;uniqueIndex:uq_event_user,priority:2" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`

	// Relations
	Event        VotingEvent  `gorm:"foreignKey:EventID" json:"-"`
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
