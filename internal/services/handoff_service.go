package services

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/config"
	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/security"
	"github.com/orgfed/voting-dashboard-api/internal/signing"
)

var (
	ErrNoOrganization       = errors.New("user does not belong to an organization")
	ErrFeeNotPaid           = errors.New("organization membership fee is not paid")
	ErrNoActiveEvent        = errors.New("no active voting event")
	ErrAdminViewForbidden   = errors.New("admin view requires an administrator account")
	ErrNotEventDelegate     = errors.New("user is not a delegate for the active event")
	ErrAuthRequestExpired   = errors.New("authentication request timestamp outside the freshness window")
	ErrInvalidAuthSignature = errors.New("authentication request signature mismatch")
	ErrVotingNotOpen        = errors.New("voting is not open on the active event")
)

// naiveLayout renders stored naive-local datetimes inside signed payloads.
const naiveLayout = "2006-01-02T15:04:05"

// ViewAdmin and ViewPublic are the recognized values of the optional view
// selector on launch.
const (
	ViewAdmin  = "admin"
	ViewPublic = "public"
)

// LaunchResult is a minted launch token plus the redirect that carries it.
type LaunchResult struct {
	Token       string    `json:"token"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// InboundAuthInput is the credential payload the voting application sends
// back for out-of-band verification.
type InboundAuthInput struct {
	Email     string
	Password  string
	Timestamp int64
	Signature string
}

// InboundAuthResult reports the verified caller's standing.
type InboundAuthResult struct {
	UserID             uint64  `json:"user_id"`
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	Role               string  `json:"role"`
	OrganizationID     *uint64 `json:"organization_id"`
	EventID            *uint64 `json:"event_id"`
	IsDelegate         bool    `json:"is_delegate"`
	MustChangePassword bool    `json:"must_change_password"`
}

// HandoffService bridges dashboard identity into the external voting
// application: signed launch tokens out, signed credential checks in, and
// best-effort event-state pushes.
type HandoffService struct {
	cfg       config.VotingConfig
	userRepo  repository.UserRepository
	orgRepo   repository.OrganizationRepository
	eventRepo repository.EventRepository
	client    *http.Client
	logger    *zap.Logger
}

// NewHandoffService creates a new HandoffService.
func NewHandoffService(
	cfg config.VotingConfig,
	userRepo repository.UserRepository,
	orgRepo repository.OrganizationRepository,
	eventRepo repository.EventRepository,
	logger *zap.Logger,
) *HandoffService {
	timeout := time.Duration(cfg.SyncTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HandoffService{
		cfg:       cfg,
		userRepo:  userRepo,
		orgRepo:   orgRepo,
		eventRepo: eventRepo,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// MintLaunchToken authorizes the user against the active event and returns
// a signed, time-limited token plus the voting-app redirect. Preconditions
// are checked in a fixed order so each failure is distinct: organization,
// paid fee, active event, admin view rights, delegate membership.
func (s *HandoffService) MintLaunchToken(user *models.User, view string) (*LaunchResult, error) {
	view = strings.ToLower(strings.TrimSpace(view))

	if user.OrganizationID == nil {
		return nil, ErrNoOrganization
	}
	org, err := s.orgRepo.FindByID(*user.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	if !org.FeePaid {
		return nil, ErrFeeNotPaid
	}

	event, err := s.eventRepo.FindActive()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveEvent
		}
		return nil, fmt.Errorf("failed to load active event: %w", err)
	}

	if view == ViewAdmin && !user.IsAdmin {
		return nil, ErrAdminViewForbidden
	}
	if !user.IsAdmin && view != ViewPublic {
		rows, err := s.eventRepo.DelegatesForOrganization(event.ID, org.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load delegate roster: %w", err)
		}
		isDelegate := false
		for _, row := range rows {
			if row.UserID == user.ID {
				isDelegate = true
				break
			}
		}
		if !isDelegate {
			return nil, ErrNotEventDelegate
		}
	}

	delegateCount, err := s.eventRepo.CountDelegates(event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count delegates: %w", err)
	}

	role := "voter"
	if user.IsAdmin {
		role = "admin"
	}

	expiresAt := time.Now().Add(time.Duration(s.cfg.LaunchTokenTTLSeconds) * time.Second)
	payload := map[string]any{
		"uid":               user.ID,
		"org":               org.ID,
		"email":             strings.ToLower(user.Email),
		"role":              role,
		"exp":               expiresAt.Unix(),
		"first_name":        stringOrEmpty(user.FirstName),
		"last_name":         stringOrEmpty(user.LastName),
		"event":             event.ID,
		"event_title":       event.Title,
		"event_date":        naiveOrNil(event.EventDate),
		"delegate_deadline": naiveOrNil(event.DelegateDeadline),
		"is_voting_enabled": event.IsVotingEnabled,
		"delegate_count":    delegateCount,
	}
	if view != "" {
		payload["view"] = view
	}

	token, err := signing.EncodeToken([]byte(s.cfg.SharedSecret), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign launch token: %w", err)
	}

	redirect := fmt.Sprintf("%s/o2auth?token=%s", s.cfg.AppBaseURL, url.QueryEscape(token))
	if view != "" {
		redirect += "&view=" + url.QueryEscape(view)
	}

	return &LaunchResult{Token: token, RedirectURL: redirect, ExpiresAt: expiresAt}, nil
}

// AuthenticateInbound verifies a signed credential check from the voting
// application. The freshness window is enforced before the signature so an
// expired request never leaks whether its signature would have matched.
func (s *HandoffService) AuthenticateInbound(input InboundAuthInput) (*InboundAuthResult, error) {
	now := time.Now().Unix()
	ttl := int64(s.cfg.AuthTTLSeconds)
	if ttl < 1 {
		ttl = 1
	}
	delta := now - input.Timestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > ttl {
		return nil, ErrAuthRequestExpired
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	message := fmt.Sprintf("%d:%s:%s", input.Timestamp, email, input.Password)
	if !signing.VerifyHex([]byte(s.cfg.SharedSecret), []byte(message), input.Signature) {
		return nil, ErrInvalidAuthSignature
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	check := security.Verify(input.Password, user.PasswordSalt, user.PasswordHash)
	if !check.Valid {
		return nil, ErrInvalidCredentials
	}
	if check.NeedsRehash {
		if salt, hash, err := security.Derive(input.Password); err == nil {
			user.PasswordSalt = salt
			user.PasswordHash = hash
			if err := s.userRepo.Save(user); err != nil {
				s.logger.Warn("failed to persist password rehash", zap.Error(err))
			}
		}
	}

	result := &InboundAuthResult{
		UserID:             user.ID,
		Email:              user.Email,
		Name:               user.FullName(),
		OrganizationID:     user.OrganizationID,
		Role:               "voter",
		MustChangePassword: user.MustChangePassword,
	}
	if user.IsAdmin {
		result.Role = "admin"
	}

	event, err := s.eventRepo.FindActive()
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load active event: %w", err)
		}
		event = nil
	}

	// Admins are reported regardless of event state; voters need an open
	// event. Delegate standing is reported, not enforced: the voting
	// application decides what a non-delegate may do.
	if !user.IsAdmin {
		if event == nil {
			return nil, ErrNoActiveEvent
		}
		if !event.IsVotingEnabled {
			return nil, ErrVotingNotOpen
		}
	}

	if event != nil {
		result.EventID = &event.ID
		if user.OrganizationID != nil {
			rows, err := s.eventRepo.DelegatesForOrganization(event.ID, *user.OrganizationID)
			if err != nil {
				return nil, fmt.Errorf("failed to load delegate roster: %w", err)
			}
			for _, row := range rows {
				if row.UserID == user.ID {
					result.IsDelegate = true
					break
				}
			}
		}
	}
	if user.IsAdmin {
		result.IsDelegate = true
	}
	return result, nil
}

// PushEventState notifies the voting application of the current active
// event state. It is strictly best-effort: failures are logged and
// swallowed so the triggering admin operation never fails on this path.
func (s *HandoffService) PushEventState(event *models.VotingEvent) {
	if s.cfg.AppBaseURL == "" {
		return
	}

	payload := map[string]any{"active": false}
	if event != nil {
		delegateCount, err := s.eventRepo.CountDelegates(event.ID)
		if err != nil {
			s.logger.Warn("event sync push skipped, delegate count failed", zap.Error(err))
			return
		}
		payload = map[string]any{
			"active":            true,
			"event":             event.ID,
			"title":             event.Title,
			"event_date":        naiveOrNil(event.EventDate),
			"delegate_deadline": naiveOrNil(event.DelegateDeadline),
			"is_voting_enabled": event.IsVotingEnabled,
			"delegate_count":    delegateCount,
		}
	}

	body, err := signing.CanonicalJSON(payload)
	if err != nil {
		s.logger.Warn("event sync push skipped, payload not serializable", zap.Error(err))
		return
	}

	timestamp := time.Now().Unix()
	signature := signing.SignTimestamped([]byte(s.cfg.SharedSecret), timestamp, string(body))

	req, err := http.NewRequest(http.MethodPost, s.cfg.AppBaseURL+"/api/internal/event-sync", bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("event sync push skipped, request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-voting-timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("x-voting-signature", signature)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("event sync push failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("event sync push rejected", zap.Int("status", resp.StatusCode))
		return
	}
	s.logger.Debug("event sync push delivered", zap.Int("status", resp.StatusCode))
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func naiveOrNil(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.Format(naiveLayout)
}
