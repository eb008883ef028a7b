package repository

import (
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

func (r *GormInvitationRepository) Create(invitation *models.OrganizationInvitation) error {
	return r.db.Create(invitation).Error
}

func (r *GormInvitationRepository) Save(invitation *models.OrganizationInvitation) error {
	return r.db.Save(invitation).Error
}

func (r *GormInvitationRepository) FindByID(id uint64) (*models.OrganizationInvitation, error) {
	var invitation models.OrganizationInvitation
	if err := r.db.First(&invitation, id).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *GormInvitationRepository) FindByToken(token string) (*models.OrganizationInvitation, error) {
	var invitation models.OrganizationInvitation
	if err := r.db.
		Preload("Organization").
		Preload("InvitedByUser").
		Where("token = ?", token).
		First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *GormInvitationRepository) FindPending(organizationID uint64, email string, role models.InvitationRole) (*models.OrganizationInvitation, error) {
	var invitation models.OrganizationInvitation
	if err := r.db.
		Where("organization_id = ? AND lower(email) = lower(?) AND role = ? AND accepted_at IS NULL",
			organizationID, email, role).
		First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *GormInvitationRepository) ListPending(organizationID uint64, role *models.InvitationRole) ([]models.OrganizationInvitation, error) {
	stmt := r.db.
		Where("organization_id = ? AND accepted_at IS NULL", organizationID).
		Order("created_at DESC")
	if role != nil {
		stmt = stmt.Where("role = ?", *role)
	}

	var invitations []models.OrganizationInvitation
	if err := stmt.Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *GormInvitationRepository) Delete(id uint64) error {
	return r.db.Delete(&models.OrganizationInvitation{}, id).Error
}
