package dto

import "github.com/orgfed/voting-dashboard-api/internal/models"

// OrganizationDTO represents basic organization information
type OrganizationDTO struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	FeePaid bool   `json:"fee_paid"`
}

// OrganizationDetailDTO adds billing, members, and pending invitations
type OrganizationDetailDTO struct {
	OrganizationDTO
	BankName            string          `json:"bank_name"`
	BankAccountNumber   string          `json:"bank_account_number"`
	PaymentInstructions string          `json:"payment_instructions"`
	Members             []UserDTO       `json:"members"`
	PendingInvitations  []InvitationDTO `json:"pending_invitations"`
	DelegateCount       int             `json:"delegate_count"`
}

// SiteSettingsDTO represents the federation-wide default bank details
type SiteSettingsDTO struct {
	BankName            string `json:"bank_name"`
	BankAccountNumber   string `json:"bank_account_number"`
	PaymentInstructions string `json:"payment_instructions"`
}

// ToOrganizationDTO converts an organization model to DTO
func ToOrganizationDTO(org models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:      org.ID,
		Name:    org.Name,
		FeePaid: org.FeePaid,
	}
}

// ToOrganizationDTOs converts a slice of organizations
func ToOrganizationDTOs(orgs []models.Organization) []OrganizationDTO {
	dtos := make([]OrganizationDTO, len(orgs))
	for i, org := range orgs {
		dtos[i] = ToOrganizationDTO(org)
	}
	return dtos
}

// ToOrganizationDetailDTO converts a preloaded organization to detailed DTO
func ToOrganizationDetailDTO(org models.Organization) OrganizationDetailDTO {
	detail := OrganizationDetailDTO{
		OrganizationDTO: ToOrganizationDTO(org),
		Members:         ToUserDTOs(org.Users),
		DelegateCount:   len(org.EventDelegates),
	}
	if org.BankName != nil {
		detail.BankName = *org.BankName
	}
	if org.BankAccountNumber != nil {
		detail.BankAccountNumber = *org.BankAccountNumber
	}
	if org.PaymentInstructions != nil {
		detail.PaymentInstructions = *org.PaymentInstructions
	}
	detail.PendingInvitations = make([]InvitationDTO, 0, len(org.Invitations))
	for _, inv := range org.Invitations {
		if inv.IsPending() {
			detail.PendingInvitations = append(detail.PendingInvitations, ToInvitationDTO(inv))
		}
	}
	return detail
}

// ToSiteSettingsDTO converts the settings singleton to DTO
func ToSiteSettingsDTO(settings models.SiteSettings) SiteSettingsDTO {
	dto := SiteSettingsDTO{}
	if settings.BankName != nil {
		dto.BankName = *settings.BankName
	}
	if settings.BankAccountNumber != nil {
		dto.BankAccountNumber = *settings.BankAccountNumber
	}
	if settings.PaymentInstructions != nil {
		dto.PaymentInstructions = *settings.PaymentInstructions
	}
	return dto
}
