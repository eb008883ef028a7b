package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/captcha"
	"github.com/orgfed/voting-dashboard-api/internal/config"
	"github.com/orgfed/voting-dashboard-api/internal/mailer"
	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/security"
)

type serviceTestEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	orgRepo    repository.OrganizationRepository
	eventRepo  repository.EventRepository
	codeRepo   repository.AccessCodeRepository
	inviteRepo repository.InvitationRepository
	logger     *zap.Logger
}

func setupServiceTestEnv(t *testing.T) *serviceTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Organization{},
		&models.SiteSettings{},
		&models.User{},
		&models.SessionToken{},
		&models.EmailVerificationToken{},
		&models.PasswordResetToken{},
		&models.OrganizationInvitation{},
		&models.VotingEvent{},
		&models.EventDelegate{},
		&models.VotingAccessCode{},
	)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.SiteSettings{}).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	cfg := &config.Config{
		Session: config.SessionConfig{
			TokenTTLHours:        12,
			ResetTokenTTLMinutes: 60,
		},
		Voting: config.VotingConfig{
			SharedSecret:          "test-shared-secret",
			LaunchTokenTTLSeconds: 300,
			AuthTTLSeconds:        60,
			AppBaseURL:            "",
			SyncTimeoutSecs:       1,
		},
		PublicBaseURL: "http://dashboard.test",
	}

	return &serviceTestEnv{
		db:         db,
		cfg:        cfg,
		userRepo:   repository.NewUserRepository(db),
		tokenRepo:  repository.NewTokenRepository(db),
		orgRepo:    repository.NewOrganizationRepository(db),
		eventRepo:  repository.NewEventRepository(db),
		codeRepo:   repository.NewAccessCodeRepository(db),
		inviteRepo: repository.NewInvitationRepository(db),
		logger:     zap.NewNop(),
	}
}

func (env *serviceTestEnv) authService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(env.userRepo, env.tokenRepo, env.orgRepo,
		mailer.NewLogSender(env.logger), captcha.Disabled{}, env.cfg, env.logger)
}

func (env *serviceTestEnv) eventService(t *testing.T, notifier EventSyncNotifier) *EventService {
	t.Helper()
	return NewEventService(env.eventRepo, env.orgRepo, env.userRepo, notifier, env.logger)
}

func (env *serviceTestEnv) createOrganization(t *testing.T, name string, feePaid bool) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, FeePaid: feePaid}
	require.NoError(t, env.orgRepo.Create(org))
	return org
}

// createMember inserts an approved, verified member of org with the given
// password.
func (env *serviceTestEnv) createMember(t *testing.T, org *models.Organization, email, password string) *models.User {
	t.Helper()
	salt, hash, err := security.Derive(password)
	require.NoError(t, err)

	user := &models.User{
		Email:           email,
		PasswordHash:    hash,
		PasswordSalt:    salt,
		OrganizationID:  &org.ID,
		IsEmailVerified: true,
		AdminDecision:   models.DecisionApproved,
	}
	require.NoError(t, env.userRepo.Create(user))
	return user
}

func (env *serviceTestEnv) createAdmin(t *testing.T, email, password string) *models.User {
	t.Helper()
	salt, hash, err := security.Derive(password)
	require.NoError(t, err)

	user := &models.User{
		Email:           email,
		PasswordHash:    hash,
		PasswordSalt:    salt,
		IsEmailVerified: true,
		IsAdmin:         true,
		AdminDecision:   models.DecisionApproved,
	}
	require.NoError(t, env.userRepo.Create(user))
	return user
}
