package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/config"
	"github.com/orgfed/voting-dashboard-api/internal/mailer"
	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/security"
)

var (
	ErrInvitationNotFound    = errors.New("invitation not found")
	ErrInvitationAccepted    = errors.New("invitation has already been accepted")
	ErrContactAlreadyExists  = errors.New("organization already has a contact")
	ErrInvitationEmailTaken  = errors.New("email address is already registered")
	ErrFailedToSaveInvite    = errors.New("failed to save invitation")
)

// InvitationService onboards contacts and members into organizations by
// emailed single-use tokens.
type InvitationService struct {
	inviteRepo repository.InvitationRepository
	orgRepo    repository.OrganizationRepository
	userRepo   repository.UserRepository
	sender     mailer.Sender
	cfg        *config.Config
	logger     *zap.Logger
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(
	inviteRepo repository.InvitationRepository,
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	sender mailer.Sender,
	cfg *config.Config,
	logger *zap.Logger,
) *InvitationService {
	return &InvitationService{
		inviteRepo: inviteRepo,
		orgRepo:    orgRepo,
		userRepo:   userRepo,
		sender:     sender,
		cfg:        cfg,
		logger:     logger,
	}
}

// InviteInput carries an invitation request.
type InviteInput struct {
	OrganizationID uint64
	Email          string
	Role           models.InvitationRole
	FirstName      string
	LastName       string
	InvitedBy      *uint64
}

// Invite creates (or reissues) an invitation and emails the accept link.
// A contact invitation is unique per organization: a second one is
// rejected while a contact invitation is pending or accepted, or while a
// contact user exists. Re-inviting a pending email reissues its token.
func (s *InvitationService) Invite(input InviteInput) (*models.OrganizationInvitation, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Role != models.InvitationRoleContact && input.Role != models.InvitationRoleMember {
		return nil, fmt.Errorf("role must be contact or member")
	}

	org, err := s.orgRepo.FindByID(input.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrInvitationEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if input.Role == models.InvitationRoleContact {
		if err := s.checkContactUnique(org.ID, email); err != nil {
			return nil, err
		}
	}

	invitation, err := s.inviteRepo.FindPending(org.ID, email, input.Role)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check pending invitation: %w", err)
	}

	if invitation != nil {
		// Reissue: fresh token, updated names and inviter.
		invitation.Token = uuid.NewString()
		invitation.InvitedByUserID = input.InvitedBy
		setOptional(&invitation.FirstName, input.FirstName)
		setOptional(&invitation.LastName, input.LastName)
		if err := s.inviteRepo.Save(invitation); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToSaveInvite, err)
		}
	} else {
		invitation = &models.OrganizationInvitation{
			OrganizationID:  org.ID,
			Email:           email,
			Role:            input.Role,
			Token:           uuid.NewString(),
			InvitedByUserID: input.InvitedBy,
		}
		setOptional(&invitation.FirstName, input.FirstName)
		setOptional(&invitation.LastName, input.LastName)
		if err := s.inviteRepo.Create(invitation); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToSaveInvite, err)
		}
	}

	roleLabel := "a member"
	if input.Role == models.InvitationRoleContact {
		roleLabel = "the organization contact"
	}
	link := fmt.Sprintf("%s/accept-invitation?token=%s", s.cfg.PublicBaseURL, invitation.Token)
	msg := mailer.InvitationEmail(org.Name, roleLabel, link)
	if _, err := s.sender.Send(email, "", msg.Subject, msg.HTML, msg.Text); err != nil {
		s.logger.Warn("invitation email not delivered",
			zap.String("email", email), zap.Error(err))
	}
	return invitation, nil
}

// checkContactUnique rejects a contact invitation while another contact
// invitation is live or a contact user exists.
func (s *InvitationService) checkContactUnique(orgID uint64, email string) error {
	contactRole := models.InvitationRoleContact
	pending, err := s.inviteRepo.ListPending(orgID, &contactRole)
	if err != nil {
		return fmt.Errorf("failed to list contact invitations: %w", err)
	}
	for _, inv := range pending {
		if inv.Email != email {
			return ErrContactAlreadyExists
		}
	}
	if _, err := s.orgRepo.FindContact(orgID); err == nil {
		return ErrContactAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check contact: %w", err)
	}
	return nil
}

// Lookup resolves an invitation token for the accept page.
func (s *InvitationService) Lookup(rawToken string) (*models.OrganizationInvitation, error) {
	invitation, err := s.inviteRepo.FindByToken(strings.TrimSpace(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	return invitation, nil
}

// AcceptInput carries the invitee's chosen account details.
type AcceptInput struct {
	Token     string
	Password  string
	FirstName string
	LastName  string
}

// Accept consumes the invitation and creates a pre-approved, verified user
// inside the inviting organization.
func (s *InvitationService) Accept(input AcceptInput) (*models.User, error) {
	invitation, err := s.Lookup(input.Token)
	if err != nil {
		return nil, err
	}
	if !invitation.IsPending() {
		return nil, ErrInvitationAccepted
	}
	if err := security.ValidateStrength(input.Password); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByEmail(invitation.Email); err == nil {
		return nil, ErrInvitationEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	salt, hash, err := security.Derive(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	orgID := invitation.OrganizationID
	user := &models.User{
		Email:                 invitation.Email,
		PasswordHash:          hash,
		PasswordSalt:          salt,
		OrganizationID:        &orgID,
		IsEmailVerified:       true,
		AdminDecision:         models.DecisionApproved,
		IsOrganizationContact: invitation.Role == models.InvitationRoleContact,
	}
	firstName := strings.TrimSpace(input.FirstName)
	if firstName == "" && invitation.FirstName != nil {
		firstName = *invitation.FirstName
	}
	lastName := strings.TrimSpace(input.LastName)
	if lastName == "" && invitation.LastName != nil {
		lastName = *invitation.LastName
	}
	setOptional(&user.FirstName, firstName)
	setOptional(&user.LastName, lastName)

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	now := time.Now()
	invitation.AcceptedAt = &now
	invitation.AcceptedByUserID = &user.ID
	if err := s.inviteRepo.Save(invitation); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSaveInvite, err)
	}
	return user, nil
}

// ListPending returns the organization's un-accepted invitations, newest
// first, optionally filtered by role.
func (s *InvitationService) ListPending(orgID uint64, role *models.InvitationRole) ([]models.OrganizationInvitation, error) {
	if _, err := s.orgRepo.FindByID(orgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return s.inviteRepo.ListPending(orgID, role)
}

// Delete withdraws a pending invitation. Accepted invitations are kept as
// an onboarding record and cannot be deleted.
func (s *InvitationService) Delete(id uint64) error {
	invitation, err := s.inviteRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("failed to load invitation: %w", err)
	}
	if !invitation.IsPending() {
		return ErrInvitationAccepted
	}
	return s.inviteRepo.Delete(id)
}

func setOptional(field **string, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	*field = &value
}
