package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orgfed/voting-dashboard-api/internal/dto"
	apierrors "github.com/orgfed/voting-dashboard-api/internal/errors"
	"github.com/orgfed/voting-dashboard-api/internal/middleware"
	"github.com/orgfed/voting-dashboard-api/internal/services"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

// VotingHandler covers the cross-application handoff: launch tokens for
// dashboard users and the endpoints the voting application calls back on.
type VotingHandler struct {
	handoffService *services.HandoffService
	eventService   *services.EventService
	codeService    *services.AccessCodeService
}

// NewVotingHandler creates a new VotingHandler.
func NewVotingHandler(handoffService *services.HandoffService, eventService *services.EventService, codeService *services.AccessCodeService) *VotingHandler {
	return &VotingHandler{
		handoffService: handoffService,
		eventService:   eventService,
		codeService:    codeService,
	}
}

// Launch mints a signed launch token and redirect for the caller.
func (h *VotingHandler) Launch(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	result, err := h.handoffService.MintLaunchToken(user, c.Query("view"))
	if err != nil {
		respondVotingError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Authenticate verifies a signed credential check from the voting
// application.
func (h *VotingHandler) Authenticate(c *gin.Context) {
	type AuthRequest struct {
		Email     string `json:"email" binding:"required"`
		Password  string `json:"password" binding:"required"`
		Timestamp int64  `json:"timestamp" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}

	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.handoffService.AuthenticateInbound(services.InboundAuthInput{
		Email:     req.Email,
		Password:  req.Password,
		Timestamp: req.Timestamp,
		Signature: req.Signature,
	})
	if err != nil {
		respondVotingError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RedeemCode consumes a single-use access code against the active event.
// The voting application calls this without a dashboard session; when an
// authenticated user presents the code, the redemption is attributed.
func (h *VotingHandler) RedeemCode(c *gin.Context) {
	type RedeemRequest struct {
		Code string `json:"code" binding:"required"`
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	event, err := h.eventService.ActiveEvent()
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	if event == nil {
		respondVotingError(c, services.ErrNoActiveEvent)
		return
	}

	var userID *uint64
	if user, ok := middleware.GetUser(c); ok {
		userID = &user.ID
	}

	code, err := h.codeService.Redeem(event.ID, req.Code, userID)
	if err != nil {
		respondVotingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Access code accepted",
		"code":    dto.ToAccessCodeDTO(*code),
		"event":   event.ID,
	})
}

func respondVotingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoOrganization),
		errors.Is(err, services.ErrOrganizationNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrFeeNotPaid),
		errors.Is(err, services.ErrAdminViewForbidden),
		errors.Is(err, services.ErrNotEventDelegate),
		errors.Is(err, services.ErrInvalidAuthSignature):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNoActiveEvent),
		errors.Is(err, services.ErrVotingNotOpen):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAuthRequestExpired),
		errors.Is(err, utils.ErrMalformedAccessCode):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrAccessCodeNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAccessCodeAlreadyUsed):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
