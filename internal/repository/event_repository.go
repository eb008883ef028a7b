package repository

import (
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

// GormEventRepository is a GORM implementation of EventRepository
type GormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(event *models.VotingEvent) error {
	return r.db.Create(event).Error
}

func (r *GormEventRepository) Save(event *models.VotingEvent) error {
	return r.db.Save(event).Error
}

func (r *GormEventRepository) FindByID(id uint64) (*models.VotingEvent, error) {
	var event models.VotingEvent
	if err := r.db.Preload("Delegates.User").First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *GormEventRepository) FindActive() (*models.VotingEvent, error) {
	var event models.VotingEvent
	if err := r.db.Preload("Delegates.User").
		Where("is_active = ?", true).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *GormEventRepository) List() ([]models.VotingEvent, error) {
	var events []models.VotingEvent
	if err := r.db.
		Preload("Delegates.User").
		Preload("AccessCodes.UsedByUser").
		Order("created_at DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).
			Delete(&models.EventDelegate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).
			Delete(&models.VotingAccessCode{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.VotingEvent{}, id).Error
	})
}

// Activate flips the single-active invariant in one transaction: every
// other event loses is_active and is_voting_enabled, then delegate flags
// are fully recomputed against the new active event.
func (r *GormEventRepository) Activate(eventID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var event models.VotingEvent
		if err := tx.First(&event, eventID).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.VotingEvent{}).
			Where("id <> ?", eventID).
			Updates(map[string]any{
				"is_active":         false,
				"is_voting_enabled": false,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.VotingEvent{}).
			Where("id = ?", eventID).
			Update("is_active", true).Error; err != nil {
			return err
		}

		return syncDelegateFlags(tx, &eventID)
	})
}

func (r *GormEventRepository) ResetAll() (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VotingEvent{}).Count(&removed).Error; err != nil {
			return err
		}
		if removed == 0 {
			return nil
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.EventDelegate{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.VotingAccessCode{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.VotingEvent{}).Error; err != nil {
			return err
		}
		return syncDelegateFlags(tx, nil)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *GormEventRepository) DelegatesForEvent(eventID uint64) ([]models.EventDelegate, error) {
	var delegates []models.EventDelegate
	if err := r.db.
		Preload("User").
		Preload("Organization").
		Where("event_id = ?", eventID).
		Order("created_at ASC, id ASC").
		Find(&delegates).Error; err != nil {
		return nil, err
	}
	return delegates, nil
}

func (r *GormEventRepository) DelegatesForOrganization(eventID, organizationID uint64) ([]models.EventDelegate, error) {
	var delegates []models.EventDelegate
	if err := r.db.
		Preload("User").
		Where("event_id = ? AND organization_id = ?", eventID, organizationID).
		Order("created_at ASC, id ASC").
		Find(&delegates).Error; err != nil {
		return nil, err
	}
	return delegates, nil
}

func (r *GormEventRepository) CountDelegates(eventID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.EventDelegate{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}

func (r *GormEventRepository) ReplaceOrganizationRoster(eventID uint64, deleteRowIDs []uint64, inserts []models.EventDelegate, resync bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(deleteRowIDs) > 0 {
			if err := tx.Where("id IN ?", deleteRowIDs).
				Delete(&models.EventDelegate{}).Error; err != nil {
				return err
			}
		}
		if len(inserts) > 0 {
			if err := tx.Create(&inserts).Error; err != nil {
				return err
			}
		}
		if resync {
			return syncDelegateFlags(tx, &eventID)
		}
		return nil
	})
}

func (r *GormEventRepository) SyncDelegateFlags(activeEventID *uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return syncDelegateFlags(tx, activeEventID)
	})
}

// syncDelegateFlags makes is_voting_delegate on every non-admin user match
// exactly "has a delegate row on the active event". Full recompute, so a
// second run with the same input is a no-op.
func syncDelegateFlags(tx *gorm.DB, activeEventID *uint64) error {
	if activeEventID == nil {
		return tx.Model(&models.User{}).
			Where("is_admin = ? AND is_voting_delegate = ?", false, true).
			Update("is_voting_delegate", false).Error
	}

	assigned := tx.Model(&models.EventDelegate{}).
		Select("user_id").
		Where("event_id = ?", *activeEventID)
	if err := tx.Model(&models.User{}).
		Where("is_admin = ? AND id IN (?)", false, assigned).
		Update("is_voting_delegate", true).Error; err != nil {
		return err
	}

	unassigned := tx.Model(&models.EventDelegate{}).
		Select("user_id").
		Where("event_id = ?", *activeEventID)
	return tx.Model(&models.User{}).
		Where("is_admin = ? AND id NOT IN (?)", false, unassigned).
		Update("is_voting_delegate", false).Error
}
