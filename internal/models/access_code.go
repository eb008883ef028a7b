package models

import "time"

// VotingAccessCode is a pre-generated single-use admission code scoped to
// one event. Redemption stamps used_at and used_by exactly once.
type VotingAccessCode struct {
	ID           uint64     `gorm:"primarykey" json:"id"`
	EventID      uint64     `gorm:"not null;uniqueIndex:uq_event_code,priority:1" json:"event_id"`
	Code         string     `gorm:"type:varchar(20);not null;uniqueIndex:uq_event_code,priority:2" json:"code"`
	UsedAt       *time.Time `json:"used_at"`
	UsedByUserID *uint64    `json:"used_by_user_id"`
	CreatedAt    time.Time  `json:"created_at"`

	// Relations
	Event      VotingEvent `gorm:"foreignKey:EventID" json:"-"`
	UsedByUser *User       `gorm:"foreignKey:UsedByUserID" json:"used_by_user,omitempty"`
}

// IsUsed reports whether the code has already been redeemed.
func (c *VotingAccessCode) IsUsed() bool {
	return c.UsedAt != nil
}
