package dto

import (
	"time"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/services"
)

// EventDTO represents a voting event with its computed lock state
type EventDTO struct {
	ID                   uint64                      `json:"id"`
	Title                string                      `json:"title"`
	Description          string                      `json:"description"`
	EventDate            *time.Time                  `json:"event_date"`
	DelegateDeadline     *time.Time                  `json:"delegate_deadline"`
	IsActive             bool                        `json:"is_active"`
	IsVotingEnabled      bool                        `json:"is_voting_enabled"`
	DelegateLimit        int                         `json:"delegate_limit"`
	DelegateLockOverride string                      `json:"delegate_lock_override"`
	DelegateCount        int                         `json:"delegate_count"`
	LockState            services.DelegateLockState  `json:"lock_state"`
	CreatedAt            time.Time                   `json:"created_at"`
}

// DelegateDTO represents one delegate row
type DelegateDTO struct {
	ID             uint64  `json:"id"`
	EventID        uint64  `json:"event_id"`
	OrganizationID uint64  `json:"organization_id"`
	User           UserDTO `json:"user"`
}

// OrganizationRosterDTO groups an event's delegates by organization
type OrganizationRosterDTO struct {
	OrganizationID   uint64        `json:"organization_id"`
	OrganizationName string        `json:"organization_name"`
	Delegates        []DelegateDTO `json:"delegates"`
}

// ToEventDTO converts an event model, computing the lock state at now
func ToEventDTO(event models.VotingEvent, now time.Time) EventDTO {
	dto := EventDTO{
		ID:               event.ID,
		Title:            event.Title,
		EventDate:        event.EventDate,
		DelegateDeadline: event.DelegateDeadline,
		IsActive:         event.IsActive,
		IsVotingEnabled:  event.IsVotingEnabled,
		DelegateLimit:    event.DelegateLimit,
		DelegateCount:    len(event.Delegates),
		LockState:        services.ComputeDelegateLockState(&event, now),
		CreatedAt:        event.CreatedAt,
	}
	if event.Description != nil {
		dto.Description = *event.Description
	}
	if event.DelegateLockOverride != nil {
		dto.DelegateLockOverride = *event.DelegateLockOverride
	}
	return dto
}

// ToEventDTOs converts a slice of events
func ToEventDTOs(events []models.VotingEvent, now time.Time) []EventDTO {
	dtos := make([]EventDTO, len(events))
	for i, event := range events {
		dtos[i] = ToEventDTO(event, now)
	}
	return dtos
}

// ToDelegateDTO converts a delegate row with its user preloaded
func ToDelegateDTO(row models.EventDelegate) DelegateDTO {
	return DelegateDTO{
		ID:             row.ID,
		EventID:        row.EventID,
		OrganizationID: row.OrganizationID,
		User:           ToUserDTO(row.User),
	}
}

// ToDelegateDTOs converts a slice of delegate rows
func ToDelegateDTOs(rows []models.EventDelegate) []DelegateDTO {
	dtos := make([]DelegateDTO, len(rows))
	for i, row := range rows {
		dtos[i] = ToDelegateDTO(row)
	}
	return dtos
}

// GroupDelegatesByOrganization partitions delegate rows per organization,
// in first-appearance order.
func GroupDelegatesByOrganization(rows []models.EventDelegate) []OrganizationRosterDTO {
	index := make(map[uint64]int)
	grouped := make([]OrganizationRosterDTO, 0)
	for _, row := range rows {
		i, ok := index[row.OrganizationID]
		if !ok {
			i = len(grouped)
			index[row.OrganizationID] = i
			grouped = append(grouped, OrganizationRosterDTO{
				OrganizationID:   row.OrganizationID,
				OrganizationName: row.Organization.Name,
			})
		}
		grouped[i].Delegates = append(grouped[i].Delegates, ToDelegateDTO(row))
	}
	return grouped
}
