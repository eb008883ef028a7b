package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orgfed/voting-dashboard-api/internal/captcha"
	"github.com/orgfed/voting-dashboard-api/internal/config"
	"github.com/orgfed/voting-dashboard-api/internal/mailer"
	"github.com/orgfed/voting-dashboard-api/internal/middleware"
	"github.com/orgfed/voting-dashboard-api/internal/models"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/security"
	"github.com/orgfed/voting-dashboard-api/internal/services"
)

type handlerTestEnv struct {
	db             *gorm.DB
	cfg            *config.Config
	authService    *services.AuthService
	eventService   *services.EventService
	codeService    *services.AccessCodeService
	handoffService *services.HandoffService
	orgService     *services.OrganizationService
	inviteService  *services.InvitationService
}

func setupHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
		},
		PublicBaseURL: "http://dashboard.test",
	}

	logger := zap.NewNop()
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	eventRepo := repository.NewEventRepository(db)
	codeRepo := repository.NewAccessCodeRepository(db)
	inviteRepo := repository.NewInvitationRepository(db)

	sender := mailer.NewLogSender(logger)
	handoffService := services.NewHandoffService(cfg.Voting, userRepo, orgRepo, eventRepo, logger)

	return &handlerTestEnv{
		db:             db,
		cfg:            cfg,
		authService:    services.NewAuthService(userRepo, tokenRepo, orgRepo, sender, captcha.Disabled{}, cfg, logger),
		eventService:   services.NewEventService(eventRepo, orgRepo, userRepo, handoffService, logger),
		codeService:    services.NewAccessCodeService(codeRepo, eventRepo, logger),
		handoffService: handoffService,
		orgService:     services.NewOrganizationService(orgRepo, userRepo, logger),
		inviteService:  services.NewInvitationService(inviteRepo, orgRepo, userRepo, sender, cfg, logger),
	}
}

func (env *handlerTestEnv) createOrganization(t *testing.T, name string, feePaid bool) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, FeePaid: feePaid}
	require.NoError(t, env.db.Create(org).Error)
	return org
}

func (env *handlerTestEnv) createUser(t *testing.T, email, password string, org *models.Organization, admin bool) *models.User {
	t.Helper()
	salt, hash, err := security.Derive(password)
	require.NoError(t, err)
	user := &models.User{
		Email:           email,
		PasswordHash:    hash,
		PasswordSalt:    salt,
		IsEmailVerified: true,
		IsAdmin:         admin,
		AdminDecision:   models.DecisionApproved,
	}
	if org != nil {
		user.OrganizationID = &org.ID
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

// login issues a real session token through the service layer.
func (env *handlerTestEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	_, token, err := env.authService.Login(email, password)
	require.NoError(t, err)
	return token
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func perform(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (env *handlerTestEnv) requireAuth() gin.HandlerFunc {
	return middleware.RequireAuth(env.authService)
}
