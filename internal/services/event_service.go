package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/timeutil"
)

var (
	ErrEventNotFound          = errors.New("voting event not found")
	ErrEventTitleTooShort     = errors.New("event title must be at least 3 characters")
	ErrInvalidDelegateLimit   = errors.New("delegate limit must be at least 1")
	ErrDeadlineAfterEvent     = errors.New("delegate deadline must not be after the event date")
	ErrEventNotActive         = errors.New("voting can only be enabled on the active event")
	ErrActiveEventDelete      = errors.New("an active event cannot be deleted")
	ErrInvalidLockOverride    = errors.New("lock override must be auto, locked or unlocked")
	ErrRosterLocked           = errors.New("delegate changes are locked for this event")
	ErrDelegateLimitExceeded  = errors.New("too many delegates for this event")
	ErrUserNotInOrganization  = errors.New("user does not belong to this organization")
	ErrDelegateNotVerified    = errors.New("delegate candidate has not verified their email")
	ErrDelegateNotApproved    = errors.New("delegate candidate has not been approved")
	ErrFailedToSaveEvent      = errors.New("failed to save voting event")
	ErrFailedToReplaceRoster  = errors.New("failed to replace delegate roster")
)

// EventSyncNotifier pushes event-state changes to the external voting
// application after the local transaction has committed. A nil event means
// no event is active.
type EventSyncNotifier interface {
	PushEventState(event *models.VotingEvent)
}

// EventService enforces the single-active-event invariant, the delegate
// deadline lock, and the roster assignment rules.
type EventService struct {
	eventRepo repository.EventRepository
	orgRepo   repository.OrganizationRepository
	userRepo  repository.UserRepository
	notifier  EventSyncNotifier
	logger    *zap.Logger
}

// NewEventService creates a new EventService. notifier may be nil when no
// external voting application is configured.
func NewEventService(
	eventRepo repository.EventRepository,
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	notifier EventSyncNotifier,
	logger *zap.Logger,
) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		orgRepo:   orgRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// EventInput carries the writable fields of a voting event.
type EventInput struct {
	Title            string
	Description      *string
	EventDate        *time.Time
	DelegateDeadline *time.Time
	DelegateLimit    int
	Activate         bool
	EnableVoting     bool
}

func (s *EventService) validateInput(input *EventInput) error {
	input.Title = strings.TrimSpace(input.Title)
	if len([]rune(input.Title)) < 3 {
		return ErrEventTitleTooShort
	}
	if input.DelegateLimit < 1 {
		return ErrInvalidDelegateLimit
	}
	// Datetimes are normalized to naive local wall time before any
	// comparison or storage.
	if input.EventDate != nil {
		normalized := timeutil.ToLocalNaive(*input.EventDate)
		input.EventDate = &normalized
	}
	if input.DelegateDeadline != nil {
		normalized := timeutil.ToLocalNaive(*input.DelegateDeadline)
		input.DelegateDeadline = &normalized
	}
	if input.EventDate != nil && input.DelegateDeadline != nil && input.DelegateDeadline.After(*input.EventDate) {
		return ErrDeadlineAfterEvent
	}
	return nil
}

// CreateEvent validates and stores a new event. The event becomes active
// when explicitly requested or when no other event is active; voting is
// enabled immediately only on explicit request.
func (s *EventService) CreateEvent(input EventInput) (*models.VotingEvent, error) {
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	event := &models.VotingEvent{
		Title:            input.Title,
		Description:      input.Description,
		EventDate:        input.EventDate,
		DelegateDeadline: input.DelegateDeadline,
		DelegateLimit:    input.DelegateLimit,
	}
	if err := s.eventRepo.Create(event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSaveEvent, err)
	}

	makeActive := input.Activate
	if !makeActive {
		if _, err := s.eventRepo.FindActive(); errors.Is(err, gorm.ErrRecordNotFound) {
			makeActive = true
		} else if err != nil {
			return nil, fmt.Errorf("failed to check active event: %w", err)
		}
	}

	if makeActive {
		if err := s.eventRepo.Activate(event.ID); err != nil {
			return nil, fmt.Errorf("failed to activate event: %w", err)
		}
		event.IsActive = true
		if input.Activate && input.EnableVoting {
			event.IsVotingEnabled = true
			if err := s.eventRepo.Save(event); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFailedToSaveEvent, err)
			}
		}
	}

	s.notifyActiveState()
	return s.eventRepo.FindByID(event.ID)
}

// UpdateEvent validates and applies metadata changes. Active and
// voting-enabled flags are governed by their own operations.
func (s *EventService) UpdateEvent(eventID uint64, input EventInput) (*models.VotingEvent, error) {
	event, err := s.findEvent(eventID)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	event.Title = input.Title
	event.Description = input.Description
	event.EventDate = input.EventDate
	event.DelegateDeadline = input.DelegateDeadline
	event.DelegateLimit = input.DelegateLimit
	if err := s.eventRepo.Save(event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSaveEvent, err)
	}

	if event.IsActive {
		s.notifyActiveState()
	}
	return event, nil
}

// GetEvent returns one event with its delegates preloaded.
func (s *EventService) GetEvent(eventID uint64) (*models.VotingEvent, error) {
	return s.findEvent(eventID)
}

// ListEvents returns all events, newest first.
func (s *EventService) ListEvents() ([]models.VotingEvent, error) {
	return s.eventRepo.List()
}

// ActiveEvent returns the single active event, or nil when none is active.
func (s *EventService) ActiveEvent() (*models.VotingEvent, error) {
	event, err := s.eventRepo.FindActive()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active event: %w", err)
	}
	return event, nil
}

// ActivateEvent makes the target the only active event and resynchronizes
// every user's delegate flag against its roster.
func (s *EventService) ActivateEvent(eventID uint64) (*models.VotingEvent, error) {
	if _, err := s.findEvent(eventID); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Activate(eventID); err != nil {
		return nil, fmt.Errorf("failed to activate event: %w", err)
	}
	s.notifyActiveState()
	return s.findEvent(eventID)
}

// SetVotingEnabled toggles the voting flag. Enabling is only allowed on
// the active event.
func (s *EventService) SetVotingEnabled(eventID uint64, enabled bool) (*models.VotingEvent, error) {
	event, err := s.findEvent(eventID)
	if err != nil {
		return nil, err
	}
	if enabled && !event.IsActive {
		return nil, ErrEventNotActive
	}
	event.IsVotingEnabled = enabled
	if err := s.eventRepo.Save(event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSaveEvent, err)
	}
	if event.IsActive {
		s.notifyActiveState()
	}
	return event, nil
}

// DeleteEvent removes a non-active event with its roster and codes.
func (s *EventService) DeleteEvent(eventID uint64) error {
	event, err := s.findEvent(eventID)
	if err != nil {
		return err
	}
	if event.IsActive {
		return ErrActiveEventDelete
	}
	if err := s.eventRepo.Delete(eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	s.notifyActiveState()
	return nil
}

// ResetAllEvents deletes every event, delegate row, and access code, and
// clears all delegate flags. Returns the number of removed events.
func (s *EventService) ResetAllEvents() (int64, error) {
	removed, err := s.eventRepo.ResetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to reset events: %w", err)
	}
	if s.notifier != nil {
		s.notifier.PushEventState(nil)
	}
	return removed, nil
}

// LockState computes the current delegate lock for the event.
func (s *EventService) LockState(eventID uint64) (*models.VotingEvent, DelegateLockState, error) {
	event, err := s.findEvent(eventID)
	if err != nil {
		return nil, DelegateLockState{}, err
	}
	return event, ComputeDelegateLockState(event, time.Now()), nil
}

// SetDelegateLockOverride sets the manual lock override: "locked",
// "unlocked", or "auto" to fall back to the deadline.
func (s *EventService) SetDelegateLockOverride(eventID uint64, mode string) (*models.VotingEvent, DelegateLockState, error) {
	event, err := s.findEvent(eventID)
	if err != nil {
		return nil, DelegateLockState{}, err
	}

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "auto", "":
		event.DelegateLockOverride = nil
	case models.LockOverrideLocked:
		value := models.LockOverrideLocked
		event.DelegateLockOverride = &value
	case models.LockOverrideUnlocked:
		value := models.LockOverrideUnlocked
		event.DelegateLockOverride = &value
	default:
		return nil, DelegateLockState{}, ErrInvalidLockOverride
	}

	if err := s.eventRepo.Save(event); err != nil {
		return nil, DelegateLockState{}, fmt.Errorf("%w: %v", ErrFailedToSaveEvent, err)
	}
	return event, ComputeDelegateLockState(event, time.Now()), nil
}

// ListDelegates returns the event's delegate rows with users and
// organizations preloaded.
func (s *EventService) ListDelegates(eventID uint64) ([]models.EventDelegate, error) {
	if _, err := s.findEvent(eventID); err != nil {
		return nil, err
	}
	return s.eventRepo.DelegatesForEvent(eventID)
}

// OrganizationDelegates returns one organization's delegate rows on the
// event.
func (s *EventService) OrganizationDelegates(eventID, organizationID uint64) ([]models.EventDelegate, error) {
	if _, err := s.findEvent(eventID); err != nil {
		return nil, err
	}
	return s.eventRepo.DelegatesForOrganization(eventID, organizationID)
}

// SetDelegatesForOrganization replaces the organization's roster on the
// event with exactly the given users. The whole call is rejected when the
// roster is locked, the limit is exceeded, or any candidate is ineligible.
func (s *EventService) SetDelegatesForOrganization(eventID, organizationID uint64, userIDs []uint64) ([]models.EventDelegate, error) {
	event, err := s.findEvent(eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.orgRepo.FindByID(organizationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	if state := ComputeDelegateLockState(event, time.Now()); state.Locked {
		return nil, fmt.Errorf("%w: %s", ErrRosterLocked, state.Message)
	}

	requested := DedupeUserIDs(userIDs)
	if len(requested) > event.DelegateLimit {
		return nil, fmt.Errorf("%w: limit is %d", ErrDelegateLimitExceeded, event.DelegateLimit)
	}

	// Eligibility is all-or-nothing: no row is written until every
	// candidate has passed.
	for _, userID := range requested {
		user, err := s.userRepo.FindByID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		if user.OrganizationID == nil || *user.OrganizationID != organizationID {
			return nil, fmt.Errorf("%w: %s", ErrUserNotInOrganization, user.Email)
		}
		if !user.IsEmailVerified {
			return nil, fmt.Errorf("%w: %s", ErrDelegateNotVerified, user.Email)
		}
		if user.AdminDecision != models.DecisionApproved {
			return nil, fmt.Errorf("%w: %s", ErrDelegateNotApproved, user.Email)
		}
	}

	existing, err := s.eventRepo.DelegatesForOrganization(eventID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load delegate roster: %w", err)
	}

	diff := ReconcileRoster(existing, requested)
	inserts := make([]models.EventDelegate, 0, len(diff.InsertUserIDs))
	for _, userID := range diff.InsertUserIDs {
		inserts = append(inserts, models.EventDelegate{
			EventID:        eventID,
			OrganizationID: organizationID,
			UserID:         userID,
		})
	}

	if err := s.eventRepo.ReplaceOrganizationRoster(eventID, diff.DeleteRowIDs, inserts, event.IsActive); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToReplaceRoster, err)
	}

	if event.IsActive {
		s.notifyActiveState()
	}
	return s.eventRepo.DelegatesForOrganization(eventID, organizationID)
}

func (s *EventService) findEvent(eventID uint64) (*models.VotingEvent, error) {
	event, err := s.eventRepo.FindByID(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return event, nil
}

// notifyActiveState pushes the current active event (or its absence) to
// the external voting application. Runs after the local write committed.
func (s *EventService) notifyActiveState() {
	if s.notifier == nil {
		return
	}
	event, err := s.eventRepo.FindActive()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("failed to load active event for sync push", zap.Error(err))
		return
	}
	s.notifier.PushEventState(event)
}
