package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orgfed/voting-dashboard-api/internal/dto"
	apierrors "github.com/orgfed/voting-dashboard-api/internal/errors"
	"github.com/orgfed/voting-dashboard-api/internal/middleware"
	"github.com/orgfed/voting-dashboard-api/internal/services"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

// AdminHandler covers the approval queue, administrator accounts, and
// site-level settings. All routes require the admin middleware.
type AdminHandler struct {
	authService *services.AuthService
	orgService  *services.OrganizationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authService *services.AuthService, orgService *services.OrganizationService) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		orgService:  orgService,
	}
}

// ListUsers returns a page of every account for the admin user browser.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page := utils.ParsePagination(c.Query("page"), c.Query("page_size"))
	users, total, err := h.authService.ListUsers(page)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": dto.ToUserDTOs(users),
		"total": total,
		"page":  page.Page,
	})
}

// ListPendingRegistrations returns users awaiting a decision.
func (h *AdminHandler) ListPendingRegistrations(c *gin.Context) {
	users, err := h.authService.ListPendingRegistrations()
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTOs(users))
}

// DecideRegistration approves or denies one pending registration.
func (h *AdminHandler) DecideRegistration(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type DecisionRequest struct {
		Approve *bool `json:"approve" binding:"required"`
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.DecideRegistration(userID, *req.Approve)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// ListAdmins returns all administrator accounts.
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	admins, err := h.authService.ListAdmins()
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTOs(admins))
}

// CreateAdmin provisions a new administrator with a temporary password.
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	type CreateRequest struct {
		Email     string `json:"email" binding:"required,email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, _, err := h.authService.CreateAdminAccount(req.Email, req.FirstName, req.LastName)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// ResetAdminPassword issues a fresh temporary password for an admin.
func (h *AdminHandler) ResetAdminPassword(c *gin.Context) {
	adminID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, _, err := h.authService.ResetAdminPassword(adminID)
	if err != nil {
		respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Temporary password sent",
		"user":    dto.ToUserDTO(*user),
	})
}

// DeleteAdmin removes an administrator account.
func (h *AdminHandler) DeleteAdmin(c *gin.Context) {
	actor, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.authService.DeleteAdminAccount(actor.ID, targetID); err != nil {
		respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Administrator deleted",
	})
}

// GetSiteSettings returns the default bank details singleton.
func (h *AdminHandler) GetSiteSettings(c *gin.Context) {
	settings, err := h.orgService.SiteSettings()
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, dto.ToSiteSettingsDTO(*settings))
}

// UpdateSiteSettings stores the default bank details.
func (h *AdminHandler) UpdateSiteSettings(c *gin.Context) {
	type SettingsRequest struct {
		BankName            *string `json:"bank_name"`
		BankAccountNumber   *string `json:"bank_account_number"`
		PaymentInstructions *string `json:"payment_instructions"`
	}

	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	settings, err := h.orgService.UpdateSiteSettings(services.BillingInput{
		BankName:            req.BankName,
		BankAccountNumber:   req.BankAccountNumber,
		PaymentInstructions: req.PaymentInstructions,
	})
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, dto.ToSiteSettingsDTO(*settings))
}

func respondAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotAdminAccount):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrCannotDeleteSelf),
		errors.Is(err, services.ErrLastAdmin):
		apierrors.Conflict(c, err.Error())
	default:
		respondAuthError(c, err)
	}
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}
