package services

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

var (
	ErrNoDelegatesForCodes   = errors.New("no delegates assigned, cannot generate access codes")
	ErrAccessCodeNotFound    = errors.New("access code not found")
	ErrAccessCodeAlreadyUsed = errors.New("access code has already been used")
	ErrFailedToCreateCodes   = errors.New("failed to create access codes")
)

// AccessCodeSummary is the administrative view of an event's code pool.
type AccessCodeSummary struct {
	Codes     []models.VotingAccessCode `json:"codes"`
	Total     int                       `json:"total"`
	Available int                       `json:"available"`
	Used      int                       `json:"used"`
}

// AccessCodeService manages the per-event pool of single-use admission
// codes for the voting application.
type AccessCodeService struct {
	codeRepo  repository.AccessCodeRepository
	eventRepo repository.EventRepository
	logger    *zap.Logger
}

// NewAccessCodeService creates a new AccessCodeService.
func NewAccessCodeService(codeRepo repository.AccessCodeRepository, eventRepo repository.EventRepository, logger *zap.Logger) *AccessCodeService {
	return &AccessCodeService{
		codeRepo:  codeRepo,
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// Generate sizes the event's code pool to its delegate count. With
// regenerate the existing pool is discarded first; otherwise only the
// shortfall is topped up and existing codes, used ones included, stay
// untouched.
func (s *AccessCodeService) Generate(eventID uint64, regenerate bool) (*AccessCodeSummary, error) {
	if _, err := s.eventRepo.FindByID(eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	delegateCount, err := s.eventRepo.CountDelegates(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count delegates: %w", err)
	}
	if delegateCount == 0 {
		return nil, ErrNoDelegatesForCodes
	}

	if regenerate {
		if err := s.codeRepo.DeleteByEvent(eventID); err != nil {
			return nil, fmt.Errorf("failed to discard existing codes: %w", err)
		}
	}

	existing, err := s.codeRepo.ListByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing codes: %w", err)
	}

	taken := make(map[string]struct{}, len(existing))
	for _, code := range existing {
		taken[code.Code] = struct{}{}
	}

	missing := int(delegateCount) - len(existing)
	if missing > 0 {
		batch := make([]models.VotingAccessCode, 0, missing)
		for i := 0; i < missing; i++ {
			value, err := utils.GenerateAccessCode(taken)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFailedToCreateCodes, err)
			}
			taken[value] = struct{}{}
			batch = append(batch, models.VotingAccessCode{EventID: eventID, Code: value})
		}
		if err := s.codeRepo.CreateBatch(batch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToCreateCodes, err)
		}
		s.logger.Info("access codes generated",
			zap.Uint64("event_id", eventID),
			zap.Int("count", missing),
			zap.Bool("regenerate", regenerate))
	}

	return s.Summary(eventID)
}

// Redeem consumes a code exactly once for the given user. Concurrent
// redemption of the same code lets exactly one caller through.
func (s *AccessCodeService) Redeem(eventID uint64, rawCode string, userID *uint64) (*models.VotingAccessCode, error) {
	canonical, err := utils.CanonicalizeAccessCode(rawCode)
	if err != nil {
		return nil, err
	}
	if canonical == "" {
		return nil, utils.ErrMalformedAccessCode
	}

	code, err := s.codeRepo.FindByEventAndCode(eventID, canonical)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessCodeNotFound
		}
		return nil, fmt.Errorf("failed to look up access code: %w", err)
	}
	if code.IsUsed() {
		return nil, ErrAccessCodeAlreadyUsed
	}

	now := time.Now()
	won, err := s.codeRepo.MarkUsed(code.ID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem access code: %w", err)
	}
	if !won {
		// Another request consumed the code between lookup and update.
		return nil, ErrAccessCodeAlreadyUsed
	}

	code.UsedAt = &now
	code.UsedByUserID = userID
	return code, nil
}

// Summary returns the event's codes with pool counts.
func (s *AccessCodeService) Summary(eventID uint64) (*AccessCodeSummary, error) {
	codes, err := s.codeRepo.ListByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access codes: %w", err)
	}

	summary := &AccessCodeSummary{Codes: codes, Total: len(codes)}
	for _, code := range codes {
		if code.IsUsed() {
			summary.Used++
		} else {
			summary.Available++
		}
	}
	return summary, nil
}
