package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/models"
)

// Migrate brings the schema up to date. It runs exactly once at startup,
// before the HTTP surface exists, and is idempotent: AutoMigrate adds any
// missing tables and columns, then the explicit patch steps below handle
// changes AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.EmailVerificationToken{},
		&models.SessionToken{},
		&models.PasswordResetToken{},
		&models.VotingEvent{},
		&models.EventDelegate{},
		&models.VotingAccessCode{},
		&models.OrganizationInvitation{},
		&models.SiteSettings{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := dropLegacyDelegateConstraint(db); err != nil {
		return err
	}
	return ensureSiteSettingsRow(db)
}

// dropLegacyDelegateConstraint removes the single-delegate-per-organization
// uniqueness left behind by earlier schema versions. The current model is
// unique on (event, user) only.
func dropLegacyDelegateConstraint(db *gorm.DB) error {
	migrator := db.Migrator()
	if !migrator.HasTable(&models.EventDelegate{}) {
		return nil
	}
	if migrator.HasIndex(&models.EventDelegate{}, "uq_event_org") {
		if err := migrator.DropIndex(&models.EventDelegate{}, "uq_event_org"); err != nil {
			return fmt.Errorf("failed to drop legacy delegate constraint: %w", err)
		}
	}
	return nil
}

func ensureSiteSettingsRow(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.SiteSettings{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to inspect site settings: %w", err)
	}
	if count == 0 {
		if err := db.Create(&models.SiteSettings{}).Error; err != nil {
			return fmt.Errorf("failed to seed site settings: %w", err)
		}
	}
	return nil
}
