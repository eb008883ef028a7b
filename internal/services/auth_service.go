package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/captcha"
	"github.com/orgfed/voting-dashboard-api/internal/config"
	"github.com/orgfed/voting-dashboard-api/internal/mailer"
	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/security"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

var (
	ErrEmailTaken           = errors.New("email address is already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailNotVerified     = errors.New("email address has not been verified")
	ErrRegistrationPending  = errors.New("registration is awaiting administrator approval")
	ErrRegistrationDenied   = errors.New("registration has been denied")
	ErrSessionInvalid       = errors.New("session is invalid or expired")
	ErrVerificationInvalid  = errors.New("verification token is invalid")
	ErrResetTokenInvalid    = errors.New("password reset token is invalid")
	ErrResetTokenExpired    = errors.New("password reset token has expired")
	ErrCaptchaFailed        = errors.New("captcha verification failed")
	ErrNotAdminAccount      = errors.New("target user is not an administrator")
	ErrCannotDeleteSelf     = errors.New("administrators cannot delete their own account")
	ErrLastAdmin            = errors.New("the last administrator account cannot be deleted")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrEmailDeliveryFailed  = errors.New("failed to send email")
)

// AuthService implements registration, email verification, login sessions,
// password lifecycle, and the admin approval queue.
type AuthService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	orgRepo   repository.OrganizationRepository
	sender    mailer.Sender
	verifier  captcha.Verifier
	cfg       *config.Config
	logger    *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	orgRepo repository.OrganizationRepository,
	sender mailer.Sender,
	verifier captcha.Verifier,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		orgRepo:   orgRepo,
		sender:    sender,
		verifier:  verifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// RegisterInput carries a public registration request.
type RegisterInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	OrganizationID uint64
	CaptchaToken   string
	RemoteIP       string
}

// Register creates an unverified, pending user in the given organization
// and emails a verification link. Emails on the admin allow-list register
// directly as approved administrators.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	if s.cfg.Captcha.Enabled {
		ok, err := s.verifier.Verify(input.CaptchaToken, input.RemoteIP)
		if err != nil {
			s.logger.Warn("captcha verification errored", zap.Error(err))
			return nil, ErrCaptchaFailed
		}
		if !ok {
			return nil, ErrCaptchaFailed
		}
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if err := security.ValidateStrength(input.Password); err != nil {
		return nil, err
	}

	if _, err := s.orgRepo.FindByID(input.OrganizationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	salt, hash, err := security.Derive(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	orgID := input.OrganizationID
	user := &models.User{
		Email:          email,
		PasswordHash:   hash,
		PasswordSalt:   salt,
		OrganizationID: &orgID,
		AdminDecision:  models.DecisionPending,
	}
	if first := strings.TrimSpace(input.FirstName); first != "" {
		user.FirstName = &first
	}
	if last := strings.TrimSpace(input.LastName); last != "" {
		user.LastName = &last
	}
	if s.isAllowListedAdmin(email) {
		user.IsAdmin = true
		user.AdminDecision = models.DecisionApproved
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	if err := s.sendVerificationEmail(user); err != nil {
		// The account exists; the link can be re-sent later.
		s.logger.Warn("verification email not delivered",
			zap.String("email", user.Email), zap.Error(err))
	}
	return user, nil
}

func (s *AuthService) isAllowListedAdmin(email string) bool {
	for _, allowed := range s.cfg.Admin.AdminEmails {
		if allowed == email {
			return true
		}
	}
	return false
}

func (s *AuthService) sendVerificationEmail(user *models.User) error {
	token := &models.EmailVerificationToken{
		UserID: user.ID,
		Token:  uuid.NewString(),
		Status: models.VerificationPending,
	}
	if err := s.tokenRepo.CreateVerification(token); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.PublicBaseURL, token.Token)
	msg := mailer.VerificationEmail(user.FullName(), link)
	if _, err := s.sender.Send(user.Email, user.FullName(), msg.Subject, msg.HTML, msg.Text); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDeliveryFailed, err)
	}

	token.Status = models.VerificationSent
	if err := s.tokenRepo.SaveVerification(token); err != nil {
		s.logger.Warn("failed to mark verification token sent", zap.Error(err))
	}
	return nil
}

// ResendVerification issues and sends a fresh verification link for an
// unverified account.
func (s *AuthService) ResendVerification(email string) error {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Do not reveal whether the address is registered.
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsEmailVerified {
		return nil
	}
	return s.sendVerificationEmail(user)
}

// VerifyEmail confirms the address behind a verification token.
func (s *AuthService) VerifyEmail(rawToken string) (*models.User, error) {
	token, err := s.tokenRepo.FindVerification(strings.TrimSpace(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationInvalid
		}
		return nil, fmt.Errorf("failed to load verification token: %w", err)
	}

	user := &token.User
	if token.Status != models.VerificationConfirmed {
		now := time.Now()
		token.Status = models.VerificationConfirmed
		token.ConfirmedAt = &now
		if err := s.tokenRepo.SaveVerification(token); err != nil {
			return nil, fmt.Errorf("failed to confirm verification token: %w", err)
		}
	}
	if !user.IsEmailVerified {
		user.IsEmailVerified = true
		if err := s.userRepo.Save(user); err != nil {
			return nil, fmt.Errorf("failed to mark email verified: %w", err)
		}
	}
	return user, nil
}

// Login authenticates the user and issues a session token, revoking any
// prior session. Passwords on the legacy scheme are transparently
// re-derived on success.
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}

	check := security.Verify(password, user.PasswordSalt, user.PasswordHash)
	if !check.Valid {
		return nil, "", ErrInvalidCredentials
	}
	if check.NeedsRehash {
		if salt, hash, err := security.Derive(password); err == nil {
			user.PasswordSalt = salt
			user.PasswordHash = hash
			if err := s.userRepo.Save(user); err != nil {
				s.logger.Warn("failed to persist password rehash", zap.Error(err))
			} else {
				s.logger.Info("password scheme upgraded",
					zap.Uint64("user_id", user.ID), zap.String("from", check.Scheme))
			}
		}
	}

	if !user.IsEmailVerified {
		return nil, "", ErrEmailNotVerified
	}
	switch user.AdminDecision {
	case models.DecisionApproved:
	case models.DecisionDenied:
		return nil, "", ErrRegistrationDenied
	default:
		return nil, "", ErrRegistrationPending
	}

	token, err := s.issueSession(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) issueSession(userID uint64) (string, error) {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	expiresAt := time.Now().Add(time.Duration(s.cfg.Session.TokenTTLHours) * time.Hour)
	if _, err := s.tokenRepo.CreateSession(userID, token, expiresAt); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

// ResolveSession maps a bearer token to its user. Expired rows are removed
// on touch.
func (s *AuthService) ResolveSession(rawToken string) (*models.User, error) {
	session, err := s.tokenRepo.FindSession(strings.TrimSpace(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		if err := s.tokenRepo.DeleteSessionByID(session.ID); err != nil {
			s.logger.Warn("failed to drop expired session", zap.Error(err))
		}
		return nil, ErrSessionInvalid
	}
	return &session.User, nil
}

// Logout revokes the presented session token.
func (s *AuthService) Logout(rawToken string) error {
	existed, err := s.tokenRepo.DeleteSession(strings.TrimSpace(rawToken))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !existed {
		return ErrSessionInvalid
	}
	return nil
}

// ChangePassword verifies the current password, stores the new one, and
// replaces every session with a single fresh token.
func (s *AuthService) ChangePassword(user *models.User, currentPassword, newPassword string) (string, error) {
	check := security.Verify(currentPassword, user.PasswordSalt, user.PasswordHash)
	if !check.Valid {
		return "", ErrInvalidCredentials
	}
	if err := security.ValidateStrength(newPassword); err != nil {
		return "", err
	}

	salt, hash, err := security.Derive(newPassword)
	if err != nil {
		return "", fmt.Errorf("failed to derive password: %w", err)
	}
	user.PasswordSalt = salt
	user.PasswordHash = hash
	if user.MustChangePassword {
		user.MustChangePassword = false
		now := time.Now()
		user.SeedPasswordChangedAt = &now
	}
	if err := s.userRepo.Save(user); err != nil {
		return "", fmt.Errorf("failed to save password: %w", err)
	}

	if err := s.tokenRepo.DeleteSessionsForUser(user.ID); err != nil {
		return "", fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return s.issueSession(user.ID)
}

// RequestPasswordReset issues a single-use reset link. Unknown addresses
// succeed silently so the endpoint cannot be used to probe registrations.
func (s *AuthService) RequestPasswordReset(email string) error {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now()
	if err := s.tokenRepo.InvalidateActiveResets(user.ID, now); err != nil {
		return fmt.Errorf("failed to invalidate prior reset tokens: %w", err)
	}

	ttl := time.Duration(s.cfg.Session.ResetTokenTTLMinutes) * time.Minute
	token := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}
	if err := s.tokenRepo.CreateReset(token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.PublicBaseURL, token.Token)
	msg := mailer.PasswordResetEmail(user.FullName(), link, s.cfg.Session.ResetTokenTTLMinutes)
	if _, err := s.sender.Send(user.Email, user.FullName(), msg.Subject, msg.HTML, msg.Text); err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDeliveryFailed, err)
	}
	return nil
}

// CompletePasswordReset consumes a reset token, stores the new password,
// confirms the email address, and revokes every session.
func (s *AuthService) CompletePasswordReset(rawToken, newPassword string) error {
	token, err := s.tokenRepo.FindReset(strings.TrimSpace(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}
	if token.UsedAt != nil {
		return ErrResetTokenInvalid
	}
	now := time.Now()
	if now.After(token.ExpiresAt) {
		return ErrResetTokenExpired
	}
	if err := security.ValidateStrength(newPassword); err != nil {
		return err
	}

	salt, hash, err := security.Derive(newPassword)
	if err != nil {
		return fmt.Errorf("failed to derive password: %w", err)
	}

	user := &token.User
	user.PasswordSalt = salt
	user.PasswordHash = hash
	// Following a mailed link proves control of the address.
	user.IsEmailVerified = true
	if err := s.userRepo.Save(user); err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}

	token.UsedAt = &now
	if err := s.tokenRepo.SaveReset(token); err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if err := s.tokenRepo.ConfirmVerificationsForUser(user.ID, now); err != nil {
		s.logger.Warn("failed to confirm verification tokens", zap.Error(err))
	}
	if err := s.tokenRepo.DeleteSessionsForUser(user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// ListPendingRegistrations returns users awaiting an admin decision.
func (s *AuthService) ListPendingRegistrations() ([]models.User, error) {
	return s.userRepo.ListPendingRegistrations()
}

// DecideRegistration approves or denies a pending registration. Approval
// also confirms any outstanding verification tokens.
func (s *AuthService) DecideRegistration(userID uint64, approve bool) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now()
	if approve {
		user.AdminDecision = models.DecisionApproved
		user.IsEmailVerified = true
		if err := s.tokenRepo.ConfirmVerificationsForUser(user.ID, now); err != nil {
			s.logger.Warn("failed to confirm verification tokens", zap.Error(err))
		}
	} else {
		user.AdminDecision = models.DecisionDenied
	}
	if err := s.userRepo.Save(user); err != nil {
		return nil, fmt.Errorf("failed to save decision: %w", err)
	}
	return user, nil
}

// ListUsers returns one page of all accounts plus the total count.
func (s *AuthService) ListUsers(page utils.PaginationParams) ([]models.User, int64, error) {
	return s.userRepo.List(page)
}

// ListAdmins returns all administrator accounts.
func (s *AuthService) ListAdmins() ([]models.User, error) {
	return s.userRepo.ListAdmins()
}

// CreateAdminAccount provisions an approved, verified administrator with a
// generated temporary password and emails it to them.
func (s *AuthService) CreateAdminAccount(email, firstName, lastName string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}

	tempPassword, err := security.GenerateTempPassword(security.MinTempPasswordLength)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}
	salt, hash, err := security.Derive(tempPassword)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	user := &models.User{
		Email:              email,
		PasswordHash:       hash,
		PasswordSalt:       salt,
		IsEmailVerified:    true,
		IsAdmin:            true,
		AdminDecision:      models.DecisionApproved,
		MustChangePassword: true,
	}
	if first := strings.TrimSpace(firstName); first != "" {
		user.FirstName = &first
	}
	if last := strings.TrimSpace(lastName); last != "" {
		user.LastName = &last
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFailedToCreateUser, err)
	}

	msg := mailer.AdminAccountEmail(user.FullName(), tempPassword, s.cfg.PublicBaseURL+"/login")
	if _, err := s.sender.Send(user.Email, user.FullName(), msg.Subject, msg.HTML, msg.Text); err != nil {
		s.logger.Warn("admin account email not delivered",
			zap.String("email", user.Email), zap.Error(err))
	}
	return user, tempPassword, nil
}

// ResetAdminPassword replaces an administrator's password with a fresh
// temporary one, forces a change on next login, and revokes sessions.
func (s *AuthService) ResetAdminPassword(adminID uint64) (*models.User, string, error) {
	user, err := s.userRepo.FindByID(adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsAdmin {
		return nil, "", ErrNotAdminAccount
	}

	tempPassword, err := security.GenerateTempPassword(security.MinTempPasswordLength)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate password: %w", err)
	}
	salt, hash, err := security.Derive(tempPassword)
	if err != nil {
		return nil, "", fmt.Errorf("failed to derive password: %w", err)
	}

	user.PasswordSalt = salt
	user.PasswordHash = hash
	user.MustChangePassword = true
	if err := s.userRepo.Save(user); err != nil {
		return nil, "", fmt.Errorf("failed to save password: %w", err)
	}
	if err := s.tokenRepo.DeleteSessionsForUser(user.ID); err != nil {
		return nil, "", fmt.Errorf("failed to revoke sessions: %w", err)
	}

	msg := mailer.AdminAccountEmail(user.FullName(), tempPassword, s.cfg.PublicBaseURL+"/login")
	if _, err := s.sender.Send(user.Email, user.FullName(), msg.Subject, msg.HTML, msg.Text); err != nil {
		s.logger.Warn("admin password email not delivered",
			zap.String("email", user.Email), zap.Error(err))
	}
	return user, tempPassword, nil
}

// DeleteAdminAccount removes an administrator. Self-deletion and deleting
// the last remaining administrator are both rejected.
func (s *AuthService) DeleteAdminAccount(actorID, targetID uint64) error {
	if actorID == targetID {
		return ErrCannotDeleteSelf
	}
	user, err := s.userRepo.FindByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsAdmin {
		return ErrNotAdminAccount
	}

	count, err := s.userRepo.CountAdmins()
	if err != nil {
		return fmt.Errorf("failed to count administrators: %w", err)
	}
	if count <= 1 {
		return ErrLastAdmin
	}
	return s.userRepo.DeleteCascade(targetID)
}

// EnsureSeedAdmin creates the bootstrap administrator from configuration
// when it does not already exist. Runs once at startup after migration.
func (s *AuthService) EnsureSeedAdmin() error {
	email := strings.ToLower(strings.TrimSpace(s.cfg.Admin.SeedEmail))
	if email == "" || s.cfg.Admin.SeedPassword == "" {
		return nil
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check seed admin: %w", err)
	}

	salt, hash, err := security.Derive(s.cfg.Admin.SeedPassword)
	if err != nil {
		return fmt.Errorf("failed to derive seed password: %w", err)
	}
	user := &models.User{
		Email:              email,
		PasswordHash:       hash,
		PasswordSalt:       salt,
		IsEmailVerified:    true,
		IsAdmin:            true,
		AdminDecision:      models.DecisionApproved,
		MustChangePassword: true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to create seed admin: %w", err)
	}
	s.logger.Info("seed administrator created", zap.String("email", email))
	return nil
}
