package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orgfed/voting-dashboard-api/internal/dto"
	apierrors "github.com/orgfed/voting-dashboard-api/internal/errors"
	"github.com/orgfed/voting-dashboard-api/internal/middleware"
	"github.com/orgfed/voting-dashboard-api/internal/services"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

// EventHandler covers the voting-event lifecycle, delegate rosters, and
// the access-code pool.
type EventHandler struct {
	eventService *services.EventService
	codeService  *services.AccessCodeService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService *services.EventService, codeService *services.AccessCodeService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		codeService:  codeService,
	}
}

type eventRequest struct {
	Title            string     `json:"title" binding:"required"`
	Description      *string    `json:"description"`
	EventDate        *time.Time `json:"event_date"`
	DelegateDeadline *time.Time `json:"delegate_deadline"`
	DelegateLimit    int        `json:"delegate_limit"`
	Activate         bool       `json:"activate"`
	EnableVoting     bool       `json:"enable_voting"`
}

func (r eventRequest) toInput() services.EventInput {
	limit := r.DelegateLimit
	if limit == 0 {
		limit = 1
	}
	return services.EventInput{
		Title:            r.Title,
		Description:      r.Description,
		EventDate:        r.EventDate,
		DelegateDeadline: r.DelegateDeadline,
		DelegateLimit:    limit,
		Activate:         r.Activate,
		EnableVoting:     r.EnableVoting,
	}
}

// Create stores a new voting event.
func (h *EventHandler) Create(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	event, err := h.eventService.CreateEvent(req.toInput())
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToEventDTO(*event, time.Now()))
}

// Update applies metadata changes to an event.
func (h *EventHandler) Update(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	event, err := h.eventService.UpdateEvent(eventID, req.toInput())
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEventDTO(*event, time.Now()))
}

// List returns all events, newest first.
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.eventService.ListEvents()
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, dto.ToEventDTOs(events, time.Now()))
}

// Get returns one event.
func (h *EventHandler) Get(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(eventID)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEventDTO(*event, time.Now()))
}

// Active returns the active event or a null body when none is active.
func (h *EventHandler) Active(c *gin.Context) {
	event, err := h.eventService.ActiveEvent()
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	if event == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, dto.ToEventDTO(*event, time.Now()))
}

// Activate makes the target the single active event.
func (h *EventHandler) Activate(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	event, err := h.eventService.ActivateEvent(eventID)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEventDTO(*event, time.Now()))
}

// SetVotingEnabled toggles the voting flag on the event.
func (h *EventHandler) SetVotingEnabled(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type VotingRequest struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}

	var req VotingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	event, err := h.eventService.SetVotingEnabled(eventID, *req.Enabled)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEventDTO(*event, time.Now()))
}

// Delete removes a non-active event.
func (h *EventHandler) Delete(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(eventID); err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Event deleted",
	})
}

// ResetAll deletes every event and clears all delegate assignments.
func (h *EventHandler) ResetAll(c *gin.Context) {
	removed, err := h.eventService.ResetAllEvents()
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "All events removed",
		"removed_events": removed,
	})
}

// LockState reports the computed delegate lock for the event.
func (h *EventHandler) LockState(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	_, state, err := h.eventService.LockState(eventID)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SetLockOverride sets the manual lock override on the event.
func (h *EventHandler) SetLockOverride(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type OverrideRequest struct {
		Mode string `json:"mode" binding:"required,oneof=auto locked unlocked"`
	}

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	event, state, err := h.eventService.SetDelegateLockOverride(eventID, req.Mode)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"event":      dto.ToEventDTO(*event, time.Now()),
		"lock_state": state,
	})
}

// ListDelegates returns the event's roster grouped by organization.
func (h *EventHandler) ListDelegates(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rows, err := h.eventService.ListDelegates(eventID)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.GroupDelegatesByOrganization(rows))
}

// SetOrganizationDelegates replaces one organization's roster on the
// event. Non-admin callers may only change their own organization.
func (h *EventHandler) SetOrganizationDelegates(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	orgID, ok := parseIDParam(c, "orgId")
	if !ok {
		return
	}

	caller, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}
	if !caller.IsAdmin && (caller.OrganizationID == nil || *caller.OrganizationID != orgID) {
		apierrors.Forbidden(c, "You can only manage your own organization's delegates")
		return
	}

	type RosterRequest struct {
		UserIDs []uint64 `json:"user_ids"`
	}

	var req RosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	rows, err := h.eventService.SetDelegatesForOrganization(eventID, orgID, req.UserIDs)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDelegateDTOs(rows))
}

// GenerateCodes sizes the event's access-code pool to its delegate count.
func (h *EventHandler) GenerateCodes(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type GenerateRequest struct {
		Regenerate bool `json:"regenerate"`
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	summary, err := h.codeService.Generate(eventID, req.Regenerate)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccessCodeSummaryDTO(*summary))
}

// CodeSummary returns the event's codes with pool counts.
func (h *EventHandler) CodeSummary(c *gin.Context) {
	eventID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.eventService.GetEvent(eventID); err != nil {
		respondEventError(c, err)
		return
	}

	summary, err := h.codeService.Summary(eventID)
	if err != nil {
		respondEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccessCodeSummaryDTO(*summary))
}

func respondEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrAccessCodeNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrEventTitleTooShort),
		errors.Is(err, services.ErrInvalidDelegateLimit),
		errors.Is(err, services.ErrDeadlineAfterEvent),
		errors.Is(err, services.ErrInvalidLockOverride),
		errors.Is(err, services.ErrUserNotInOrganization),
		errors.Is(err, services.ErrDelegateNotVerified),
		errors.Is(err, services.ErrDelegateNotApproved),
		errors.Is(err, utils.ErrMalformedAccessCode):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrRosterLocked):
		apierrors.Locked(c, err.Error())
	case errors.Is(err, services.ErrEventNotActive),
		errors.Is(err, services.ErrActiveEventDelete),
		errors.Is(err, services.ErrDelegateLimitExceeded),
		errors.Is(err, services.ErrAccessCodeAlreadyUsed):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrNoDelegatesForCodes):
		apierrors.Unavailable(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
