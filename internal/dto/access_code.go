package dto

import (
	"time"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/services"
)

// AccessCodeDTO represents one admission code
type AccessCodeDTO struct {
	ID        uint64     `json:"id"`
	Code      string     `json:"code"`
	UsedAt    *time.Time `json:"used_at"`
	UsedBy    string     `json:"used_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AccessCodeSummaryDTO represents the event's code pool
type AccessCodeSummaryDTO struct {
	Codes     []AccessCodeDTO `json:"codes"`
	Total     int             `json:"total"`
	Available int             `json:"available"`
	Used      int             `json:"used"`
}

// ToAccessCodeDTO converts a code model to DTO
func ToAccessCodeDTO(code models.VotingAccessCode) AccessCodeDTO {
	dto := AccessCodeDTO{
		ID:        code.ID,
		Code:      code.Code,
		UsedAt:    code.UsedAt,
		CreatedAt: code.CreatedAt,
	}
	if code.UsedByUser != nil {
		dto.UsedBy = code.UsedByUser.Email
	}
	return dto
}

// ToAccessCodeSummaryDTO converts a pool summary to DTO
func ToAccessCodeSummaryDTO(summary services.AccessCodeSummary) AccessCodeSummaryDTO {
	dto := AccessCodeSummaryDTO{
		Codes:     make([]AccessCodeDTO, len(summary.Codes)),
		Total:     summary.Total,
		Available: summary.Available,
		Used:      summary.Used,
	}
	for i, code := range summary.Codes {
		dto.Codes[i] = ToAccessCodeDTO(code)
	}
	return dto
}
