package services

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

var (
	ErrOrganizationNotFound     = errors.New("organization not found")
	ErrOrganizationNameTooShort = errors.New("organization name must be at least 2 characters")
	ErrOrganizationNameTaken    = errors.New("organization name already exists")
	ErrOrganizationHasMembers   = errors.New("organization still has members")
	ErrUserNotMember            = errors.New("user is not a member of this organization")
	ErrFailedToSaveOrganization = errors.New("failed to save organization")
)

const searchLimit = 20

// OrganizationService manages the organization registry: membership, fee
// status, billing metadata, and the site-level default bank settings.
type OrganizationService struct {
	orgRepo  repository.OrganizationRepository
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository, userRepo repository.UserRepository, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{
		orgRepo:  orgRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// Create registers a new organization with a case-insensitively unique
// name.
func (s *OrganizationService) Create(name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return nil, ErrOrganizationNameTooShort
	}

	if _, err := s.orgRepo.FindByNameFold(name); err == nil {
		return nil, ErrOrganizationNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check organization name: %w", err)
	}

	org := &models.Organization{Name: name}
	if err := s.orgRepo.Create(org); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSaveOrganization, err)
	}
	return org, nil
}

// Get loads one organization with members, delegates, and invitations.
func (s *OrganizationService) Get(id uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindDetailed(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return org, nil
}

// List returns all organizations in name order with relations preloaded.
func (s *OrganizationService) List(page utils.PaginationParams) ([]models.Organization, error) {
	return s.orgRepo.ListDetailed(page.Offset, page.Limit)
}

// Search lists organizations whose name contains the query, capped at 20
// results. An empty query returns nothing.
func (s *OrganizationService) Search(query string) ([]models.Organization, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Organization{}, nil
	}
	return s.orgRepo.Search(query, searchLimit)
}

// SetFeePaid flips the membership-fee flag.
func (s *OrganizationService) SetFeePaid(id uint64, paid bool) (*models.Organization, error) {
	org, err := s.findOrg(id)
	if err != nil {
		return nil, err
	}
	org.FeePaid = paid
	if err := s.orgRepo.Save(org); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSaveOrganization, err)
	}
	return org, nil
}

// BillingInput carries the organization's payment metadata.
type BillingInput struct {
	BankName            *string
	BankAccountNumber   *string
	PaymentInstructions *string
}

// UpdateBilling stores the organization's bank details.
func (s *OrganizationService) UpdateBilling(id uint64, input BillingInput) (*models.Organization, error) {
	org, err := s.findOrg(id)
	if err != nil {
		return nil, err
	}
	org.BankName = input.BankName
	org.BankAccountNumber = input.BankAccountNumber
	org.PaymentInstructions = input.PaymentInstructions
	if err := s.orgRepo.Save(org); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToSaveOrganization, err)
	}
	return org, nil
}

// Delete removes an organization. Rejected while members remain.
func (s *OrganizationService) Delete(id uint64) error {
	if _, err := s.findOrg(id); err != nil {
		return err
	}
	members, err := s.orgRepo.CountMembers(id)
	if err != nil {
		return fmt.Errorf("failed to count members: %w", err)
	}
	if members > 0 {
		return ErrOrganizationHasMembers
	}
	return s.orgRepo.Delete(id)
}

// RemoveMember detaches a user from the organization, clearing delegate
// rows and delegate/contact flags atomically.
func (s *OrganizationService) RemoveMember(orgID, userID uint64) error {
	if _, err := s.findOrg(orgID); err != nil {
		return err
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.OrganizationID == nil || *user.OrganizationID != orgID {
		return ErrUserNotMember
	}
	return s.userRepo.RemoveFromOrganization(userID)
}

// SetContact makes the user the organization's sole contact, clearing the
// flag on any previous contact.
func (s *OrganizationService) SetContact(orgID, userID uint64) (*models.User, error) {
	if _, err := s.findOrg(orgID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.OrganizationID == nil || *user.OrganizationID != orgID {
		return nil, ErrUserNotMember
	}

	previous, err := s.orgRepo.FindContact(orgID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load current contact: %w", err)
	}
	if previous != nil && previous.ID != user.ID {
		previous.IsOrganizationContact = false
		if err := s.userRepo.Save(previous); err != nil {
			return nil, fmt.Errorf("failed to clear previous contact: %w", err)
		}
	}

	user.IsOrganizationContact = true
	if err := s.userRepo.Save(user); err != nil {
		return nil, fmt.Errorf("failed to set contact: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user account entirely, cascading tokens and
// delegate rows and nulling references held elsewhere.
func (s *OrganizationService) DeleteUser(userID uint64) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	return s.userRepo.DeleteCascade(userID)
}

// SiteSettings returns the singleton default bank settings row.
func (s *OrganizationService) SiteSettings() (*models.SiteSettings, error) {
	return s.orgRepo.GetSiteSettings()
}

// UpdateSiteSettings stores the site-level default bank details.
func (s *OrganizationService) UpdateSiteSettings(input BillingInput) (*models.SiteSettings, error) {
	settings, err := s.orgRepo.GetSiteSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load site settings: %w", err)
	}
	settings.BankName = input.BankName
	settings.BankAccountNumber = input.BankAccountNumber
	settings.PaymentInstructions = input.PaymentInstructions
	if err := s.orgRepo.SaveSiteSettings(settings); err != nil {
		return nil, fmt.Errorf("failed to save site settings: %w", err)
	}
	return settings, nil
}

func (s *OrganizationService) findOrg(id uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return org, nil
}
