package dto

import (
	"time"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

// UserDTO represents user information in responses
type UserDTO struct {
	ID                    uint64                  `json:"id"`
	Email                 string                  `json:"email"`
	FirstName             string                  `json:"first_name"`
	LastName              string                  `json:"last_name"`
	OrganizationID        *uint64                 `json:"organization_id"`
	OrganizationName      string                  `json:"organization_name,omitempty"`
	IsEmailVerified       bool                    `json:"is_email_verified"`
	IsAdmin               bool                    `json:"is_admin"`
	AdminDecision         models.ApprovalDecision `json:"admin_decision"`
	IsVotingDelegate      bool                    `json:"is_voting_delegate"`
	IsOrganizationContact bool                    `json:"is_organization_contact"`
	MustChangePassword    bool                    `json:"must_change_password"`
	CreatedAt             time.Time               `json:"created_at"`
}

// ToUserDTO converts a user model to DTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:                    user.ID,
		Email:                 user.Email,
		OrganizationID:        user.OrganizationID,
		IsEmailVerified:       user.IsEmailVerified,
		IsAdmin:               user.IsAdmin,
		AdminDecision:         user.AdminDecision,
		IsVotingDelegate:      user.IsVotingDelegate,
		IsOrganizationContact: user.IsOrganizationContact,
		MustChangePassword:    user.MustChangePassword,
		CreatedAt:             user.CreatedAt,
	}
	if user.FirstName != nil {
		dto.FirstName = *user.FirstName
	}
	if user.LastName != nil {
		dto.LastName = *user.LastName
	}
	if user.Organization != nil {
		dto.OrganizationName = user.Organization.Name
	}
	return dto
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, user := range users {
		dtos[i] = ToUserDTO(user)
	}
	return dtos
}
