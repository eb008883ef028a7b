package models

import "time"

type InvitationRole string

const (
	InvitationRoleContact InvitationRole = "contact"
	InvitationRoleMember  InvitationRole = "member"
)

// OrganizationInvitation onboards a user into an organization by email.
// A contact invitation is unique per organization while pending or accepted.
type OrganizationInvitation struct {
	ID               uint64         `gorm:"primarykey" json:"id"`
	OrganizationID   uint64         `gorm:"not null;index" json:"organization_id"`
	Email            string         `gorm:"type:varchar(255);not null;index" json:"email"`
	Role             InvitationRole `gorm:"type:varchar(20);not null" json:"role"`
	Token            string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	FirstName        *string        `gorm:"type:varchar(255)" json:"first_name"`
	LastName         *string        `gorm:"type:varchar(255)" json:"last_name"`
	InvitedByUserID  *uint64        `json:"invited_by_user_id"`
	AcceptedByUserID *uint64        `json:"accepted_by_user_id"`
	CreatedAt        time.Time      `json:"created_at"`
	AcceptedAt       *time.Time     `json:"accepted_at"`

	// Relations
	Organization   Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	InvitedByUser  *User        `gorm:"foreignKey:InvitedByUserID" json:"invited_by_user,omitempty"`
	AcceptedByUser *User        `gorm:"foreignKey:AcceptedByUserID" json:"-"`
}

// IsPending reports whether the invitation has not been accepted yet.
func (i *OrganizationInvitation) IsPending() bool {
	return i.AcceptedAt == nil
}
