package repository

import (
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/utils"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Organization").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Organization").
		Where("lower(email) = lower(?)", email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) Save(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *GormUserRepository) ListPendingRegistrations() ([]models.User, error) {
	var users []models.User
	if err := r.db.Preload("Organization").
		Where("admin_decision = ?", models.DecisionPending).
		Order("is_email_verified ASC, created_at ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormUserRepository) ListAdmins() ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("is_admin = ?", true).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormUserRepository) CountAdmins() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error
	return count, err
}

func (r *GormUserRepository) List(params utils.PaginationParams) ([]models.User, int64, error) {
	var total int64
	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := r.db.Preload("Organization").
		Order("created_at ASC").
		Offset(params.Offset).Limit(params.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// RemoveFromOrganization detaches the user and drops everything that made
// them a delegate, atomically.
func (r *GormUserRepository) RemoveFromOrganization(userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.EventDelegate{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Updates(map[string]any{
				"organization_id":         nil,
				"is_voting_delegate":      false,
				"is_organization_contact": false,
			}).Error
	})
}

func (r *GormUserRepository) DeleteCascade(userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.SessionToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.EmailVerificationToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.EventDelegate{}).Error; err != nil {
			return err
		}

		// Redeemed codes and accepted invitations survive the user; only
		// the reference is cleared.
		if err := tx.Model(&models.VotingAccessCode{}).
			Where("used_by_user_id = ?", userID).
			Update("used_by_user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.OrganizationInvitation{}).
			Where("accepted_by_user_id = ?", userID).
			Update("accepted_by_user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.OrganizationInvitation{}).
			Where("invited_by_user_id = ?", userID).
			Update("invited_by_user_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, userID).Error
	})
}
