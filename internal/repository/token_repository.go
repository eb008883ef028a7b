package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

// GormTokenRepository is a GORM implementation of TokenRepository
type GormTokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &GormTokenRepository{db: db}
}

// CreateSession enforces the single-active-session rule: prior sessions of
// the user are deleted in the same transaction that inserts the new one.
func (r *GormTokenRepository) CreateSession(userID uint64, token string, expiresAt time.Time) (*models.SessionToken, error) {
	session := &models.SessionToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.SessionToken{}).Error; err != nil {
			return err
		}
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *GormTokenRepository) FindSession(token string) (*models.SessionToken, error) {
	var session models.SessionToken
	if err := r.db.Preload("User").Preload("User.Organization").
		Where("token = ?", token).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GormTokenRepository) DeleteSession(token string) (bool, error) {
	res := r.db.Where("token = ?", token).Delete(&models.SessionToken{})
	return res.RowsAffected > 0, res.Error
}

func (r *GormTokenRepository) DeleteSessionsForUser(userID uint64) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.SessionToken{}).Error
}

func (r *GormTokenRepository) DeleteSessionByID(id uint64) error {
	return r.db.Delete(&models.SessionToken{}, id).Error
}

func (r *GormTokenRepository) CreateVerification(token *models.EmailVerificationToken) error {
	return r.db.Create(token).Error
}

func (r *GormTokenRepository) FindVerification(token string) (*models.EmailVerificationToken, error) {
	var record models.EmailVerificationToken
	if err := r.db.Preload("User").
		Where("token = ?", token).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormTokenRepository) SaveVerification(token *models.EmailVerificationToken) error {
	return r.db.Save(token).Error
}

func (r *GormTokenRepository) ConfirmVerificationsForUser(userID uint64, at time.Time) error {
	return r.db.Model(&models.EmailVerificationToken{}).
		Where("user_id = ? AND status <> ?", userID, models.VerificationConfirmed).
		Updates(map[string]any{
			"status":       models.VerificationConfirmed,
			"confirmed_at": at,
		}).Error
}

func (r *GormTokenRepository) CreateReset(token *models.PasswordResetToken) error {
	return r.db.Create(token).Error
}

func (r *GormTokenRepository) FindReset(token string) (*models.PasswordResetToken, error) {
	var record models.PasswordResetToken
	if err := r.db.Preload("User").
		Where("token = ?", token).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormTokenRepository) SaveReset(token *models.PasswordResetToken) error {
	return r.db.Save(token).Error
}

func (r *GormTokenRepository) InvalidateActiveResets(userID uint64, now time.Time) error {
	return r.db.Model(&models.PasswordResetToken{}).
		Where("user_id = ? AND used_at IS NULL AND expires_at > ?", userID, now).
		Update("used_at", now).Error
}
