package models

import "time"

type ApprovalDecision string

const (
	DecisionPending  ApprovalDecision = "pending"
	DecisionApproved ApprovalDecision = "approved"
	DecisionDenied   ApprovalDecision = "denied"
)

type User struct {
	ID                    uint64           `gorm:"primarykey" json:"id"`
	Email                 string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName             *string          `gorm:"type:varchar(255)" json:"first_name"`
	LastName              *string          `gorm:"type:varchar(255)" json:"last_name"`
	PasswordHash          string           `gorm:"type:varchar(255);not null" json:"-"`
	PasswordSalt          string           `gorm:"type:varchar(255);not null" json:"-"`
	OrganizationID        *uint64          `gorm:"index" json:"organization_id"`
	IsEmailVerified       bool             `gorm:"not null;default:false" json:"is_email_verified"`
	IsAdmin               bool             `gorm:"not null;default:false" json:"is_admin"`
	AdminDecision         ApprovalDecision `gorm:"type:varchar(20);not null;default:'pending'" json:"admin_decision"`
	IsVotingDelegate      bool             `gorm:"not null;default:false" json:"is_voting_delegate"`
	IsOrganizationContact bool             `gorm:"not null;default:false" json:"is_organization_contact"`
	MustChangePassword    bool             `gorm:"not null;default:false" json:"must_change_password"`
	SeedPasswordChangedAt *time.Time       `json:"-"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`

	// Relations
	Organization       *Organization            `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	VerificationTokens []EmailVerificationToken `gorm:"foreignKey:UserID" json:"-"`
}

// FullName joins the optional name parts for display and token payloads.
func (u *User) FullName() string {
	first := ""
	if u.FirstName != nil {
		first = *u.FirstName
	}
	last := ""
	if u.LastName != nil {
		last = *u.LastName
	}
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
