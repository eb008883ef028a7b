package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

// GormAccessCodeRepository is a GORM implementation of AccessCodeRepository
type GormAccessCodeRepository struct {
	db *gorm.DB
}

// NewAccessCodeRepository creates a new AccessCodeRepository
func NewAccessCodeRepository(db *gorm.DB) AccessCodeRepository {
	return &GormAccessCodeRepository{db: db}
}

func (r *GormAccessCodeRepository) ListByEvent(eventID uint64) ([]models.VotingAccessCode, error) {
	var codes []models.VotingAccessCode
	if err := r.db.Preload("UsedByUser").
		Where("event_id = ?", eventID).
		Order("code ASC").
		Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *GormAccessCodeRepository) DeleteByEvent(eventID uint64) error {
	return r.db.Where("event_id = ?", eventID).
		Delete(&models.VotingAccessCode{}).Error
}

func (r *GormAccessCodeRepository) CreateBatch(codes []models.VotingAccessCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.Create(&codes).Error
}

func (r *GormAccessCodeRepository) FindByEventAndCode(eventID uint64, code string) (*models.VotingAccessCode, error) {
	var record models.VotingAccessCode
	if err := r.db.
		Where("event_id = ? AND code = ?", eventID, code).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkUsed is the row-level exclusivity guard for redemption: the UPDATE
// only matches while used_at is still NULL, so of two concurrent attempts
// exactly one observes RowsAffected == 1.
func (r *GormAccessCodeRepository) MarkUsed(codeID uint64, userID *uint64, at time.Time) (bool, error) {
	res := r.db.Model(&models.VotingAccessCode{}).
		Where("id = ? AND used_at IS NULL", codeID).
		Updates(map[string]any{
			"used_at":         at,
			"used_by_user_id": userID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
