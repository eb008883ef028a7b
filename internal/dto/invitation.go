package dto

import (
	"time"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

// InvitationDTO represents an organization invitation
type InvitationDTO struct {
	ID               uint64                `json:"id"`
	OrganizationID   uint64                `json:"organization_id"`
	OrganizationName string                `json:"organization_name,omitempty"`
	Email            string                `json:"email"`
	Role             models.InvitationRole `json:"role"`
	FirstName        string                `json:"first_name"`
	LastName         string                `json:"last_name"`
	InvitedBy        string                `json:"invited_by,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	AcceptedAt       *time.Time            `json:"accepted_at"`
}

// ToInvitationDTO converts an invitation model to DTO
func ToInvitationDTO(inv models.OrganizationInvitation) InvitationDTO {
	dto := InvitationDTO{
		ID:               inv.ID,
		OrganizationID:   inv.OrganizationID,
		OrganizationName: inv.Organization.Name,
		Email:            inv.Email,
		Role:             inv.Role,
		CreatedAt:        inv.CreatedAt,
		AcceptedAt:       inv.AcceptedAt,
	}
	if inv.FirstName != nil {
		dto.FirstName = *inv.FirstName
	}
	if inv.LastName != nil {
		dto.LastName = *inv.LastName
	}
	if inv.InvitedByUser != nil {
		dto.InvitedBy = inv.InvitedByUser.Email
	}
	return dto
}

// ToInvitationDTOs converts a slice of invitations
func ToInvitationDTOs(invs []models.OrganizationInvitation) []InvitationDTO {
	dtos := make([]InvitationDTO, len(invs))
	for i, inv := range invs {
		dtos[i] = ToInvitationDTO(inv)
	}
	return dtos
}
