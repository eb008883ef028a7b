package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orgfed/voting-dashboard-api/internal/dto"
	apierrors "github.com/orgfed/voting-dashboard-api/internal/errors"
	"github.com/orgfed/voting-dashboard-api/internal/middleware"
	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/security"
	"github.com/orgfed/voting-dashboard-api/internal/services"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

// OrganizationHandler covers the organization registry and invitations.
type OrganizationHandler struct {
	orgService    *services.OrganizationService
	inviteService *services.InvitationService
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(orgService *services.OrganizationService, inviteService *services.InvitationService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:    orgService,
		inviteService: inviteService,
	}
}

// Create registers a new organization.
func (h *OrganizationHandler) Create(c *gin.Context) {
	type CreateRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.Create(req.Name)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToOrganizationDTO(*org))
}

// List returns every organization with details.
func (h *OrganizationHandler) List(c *gin.Context) {
	page := utils.ParsePagination(c.Query("page"), c.Query("page_size"))
	orgs, err := h.orgService.List(page)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	details := make([]dto.OrganizationDetailDTO, len(orgs))
	for i, org := range orgs {
		details[i] = dto.ToOrganizationDetailDTO(org)
	}
	c.JSON(http.StatusOK, details)
}

// Get returns one organization with members and pending invitations.
func (h *OrganizationHandler) Get(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	org, err := h.orgService.Get(orgID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationDetailDTO(*org))
}

// Search lists organizations by name fragment. Public, used by the
// registration form.
func (h *OrganizationHandler) Search(c *gin.Context) {
	orgs, err := h.orgService.Search(c.Query("q"))
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationDTOs(orgs))
}

// SetFeePaid flips the fee flag.
func (h *OrganizationHandler) SetFeePaid(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type FeeRequest struct {
		Paid *bool `json:"paid" binding:"required"`
	}

	var req FeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.SetFeePaid(orgID, *req.Paid)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// UpdateBilling stores the organization's bank details.
func (h *OrganizationHandler) UpdateBilling(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type BillingRequest struct {
		BankName            *string `json:"bank_name"`
		BankAccountNumber   *string `json:"bank_account_number"`
		PaymentInstructions *string `json:"payment_instructions"`
	}

	var req BillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.UpdateBilling(orgID, services.BillingInput{
		BankName:            req.BankName,
		BankAccountNumber:   req.BankAccountNumber,
		PaymentInstructions: req.PaymentInstructions,
	})
	if err != nil {
		respondOrganizationError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationDetailDTO(*org))
}

// Delete removes an organization without members.
func (h *OrganizationHandler) Delete(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.orgService.Delete(orgID); err != nil {
		respondOrganizationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Organization deleted",
	})
}

// RemoveMember detaches a user from the organization.
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.orgService.RemoveMember(orgID, userID); err != nil {
		respondOrganizationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed",
	})
}

// SetContact marks a member as the organization's contact.
func (h *OrganizationHandler) SetContact(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type ContactRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.orgService.SetContact(orgID, req.UserID)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser removes a user account entirely.
func (h *OrganizationHandler) DeleteUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.orgService.DeleteUser(userID); err != nil {
		respondOrganizationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted",
	})
}

// Invite sends an organization invitation.
func (h *OrganizationHandler) Invite(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type InviteRequest struct {
		Email     string `json:"email" binding:"required,email"`
		Role      string `json:"role" binding:"required,oneof=contact member"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var invitedBy *uint64
	if actor, ok := middleware.GetUser(c); ok {
		invitedBy = &actor.ID
	}

	invitation, err := h.inviteService.Invite(services.InviteInput{
		OrganizationID: orgID,
		Email:          req.Email,
		Role:           models.InvitationRole(req.Role),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		InvitedBy:      invitedBy,
	})
	if err != nil {
		respondInvitationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToInvitationDTO(*invitation))
}

// ListInvitations returns the organization's pending invitations.
func (h *OrganizationHandler) ListInvitations(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var role *models.InvitationRole
	if raw := c.Query("role"); raw != "" {
		value := models.InvitationRole(raw)
		role = &value
	}

	invitations, err := h.inviteService.ListPending(orgID, role)
	if err != nil {
		respondInvitationError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInvitationDTOs(invitations))
}

// DeleteInvitation withdraws a pending invitation.
func (h *OrganizationHandler) DeleteInvitation(c *gin.Context) {
	invitationID, ok := parseIDParam(c, "invitationId")
	if !ok {
		return
	}

	if err := h.inviteService.Delete(invitationID); err != nil {
		respondInvitationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Invitation deleted",
	})
}

// LookupInvitation resolves an invitation token for the public accept page.
func (h *OrganizationHandler) LookupInvitation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		apierrors.BadRequest(c, "Missing invitation token")
		return
	}

	invitation, err := h.inviteService.Lookup(token)
	if err != nil {
		respondInvitationError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInvitationDTO(*invitation))
}

// AcceptInvitation consumes an invitation and creates the member account.
func (h *OrganizationHandler) AcceptInvitation(c *gin.Context) {
	type AcceptRequest struct {
		Token     string `json:"token" binding:"required"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.inviteService.Accept(services.AcceptInput{
		Token:     req.Token,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondInvitationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

func respondOrganizationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrganizationNameTooShort):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrOrganizationNameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrOrganizationHasMembers):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrUserNotMember):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

func respondInvitationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvitationNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrOrganizationNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrContactAlreadyExists),
		errors.Is(err, services.ErrInvitationEmailTaken),
		errors.Is(err, services.ErrInvitationAccepted):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, security.ErrPasswordTooShort),
		errors.Is(err, security.ErrPasswordNeedsUpper),
		errors.Is(err, security.ErrPasswordNeedsSpecial):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
