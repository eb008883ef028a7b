package repository

import (
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

func (r *GormOrganizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

func (r *GormOrganizationRepository) FindByID(id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *GormOrganizationRepository) FindDetailed(id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.
		Preload("Users").
		Preload("EventDelegates.User").
		Preload("Invitations.InvitedByUser").
		First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *GormOrganizationRepository) FindByNameFold(name string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.Where("lower(name) = lower(?)", name).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *GormOrganizationRepository) Search(query string, limit int) ([]models.Organization, error) {
	var orgs []models.Organization
	stmt := r.db.Order("name ASC").Limit(limit)
	if query != "" {
		stmt = stmt.Where("lower(name) LIKE lower(?)", "%"+query+"%")
	}
	if err := stmt.Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *GormOrganizationRepository) ListDetailed(offset, limit int) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := r.db.
		Preload("Users").
		Preload("EventDelegates.User").
		Preload("Invitations.InvitedByUser").
		Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *GormOrganizationRepository) Save(org *models.Organization) error {
	return r.db.Save(org).Error
}

func (r *GormOrganizationRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", id).
			Delete(&models.OrganizationInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", id).
			Delete(&models.EventDelegate{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Organization{}, id).Error
	})
}

func (r *GormOrganizationRepository) CountMembers(id uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("organization_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *GormOrganizationRepository) FindContact(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.
		Where("organization_id = ? AND is_organization_contact = ?", id, true).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormOrganizationRepository) GetSiteSettings() (*models.SiteSettings, error) {
	var settings models.SiteSettings
	if err := r.db.First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *GormOrganizationRepository) SaveSiteSettings(settings *models.SiteSettings) error {
	return r.db.Save(settings).Error
}
