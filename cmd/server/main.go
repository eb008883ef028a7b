package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orgfed/voting-dashboard-api/internal/captcha"
	"github.com/orgfed/voting-dashboard-api/internal/config"
	"github.com/orgfed/voting-dashboard-api/internal/database"
	"github.com/orgfed/voting-dashboard-api/internal/handlers"
	"github.com/orgfed/voting-dashboard-api/internal/logging"
	"github.com/orgfed/voting-dashboard-api/internal/mailer"
	"github.com/orgfed/voting-dashboard-api/internal/middleware"
	"github.com/orgfed/voting-dashboard-api/internal/repository"
	"github.com/orgfed/voting-dashboard-api/internal/services"
	"github.com/orgfed/voting-dashboard-api/internal/timeutil"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := timeutil.SetLocation(cfg.LocalTimezone); err != nil {
		logger.Fatal("Invalid LOCAL_TIMEZONE", zap.Error(err))
	}

	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	eventRepo := repository.NewEventRepository(db)
	codeRepo := repository.NewAccessCodeRepository(db)
	inviteRepo := repository.NewInvitationRepository(db)

	// Collaborators
	sender := mailer.FromConfig(cfg.Mail, logger)
	var verifier captcha.Verifier = captcha.Disabled{}
	if cfg.Captcha.Enabled {
		verifier = captcha.NewGoogleVerifier(cfg.Captcha.SecretKey, logger)
	}

	// Services
	handoffService := services.NewHandoffService(cfg.Voting, userRepo, orgRepo, eventRepo, logger)
	authService := services.NewAuthService(userRepo, tokenRepo, orgRepo, sender, verifier, cfg, logger)
	orgService := services.NewOrganizationService(orgRepo, userRepo, logger)
	inviteService := services.NewInvitationService(inviteRepo, orgRepo, userRepo, sender, cfg, logger)
	eventService := services.NewEventService(eventRepo, orgRepo, userRepo, handoffService, logger)
	codeService := services.NewAccessCodeService(codeRepo, eventRepo, logger)

	if err := authService.EnsureSeedAdmin(); err != nil {
		logger.Fatal("Failed to seed administrator", zap.Error(err))
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	adminHandler := handlers.NewAdminHandler(authService, orgService)
	orgHandler := handlers.NewOrganizationHandler(orgService, inviteService)
	eventHandler := handlers.NewEventHandler(eventService, codeService)
	votingHandler := handlers.NewVotingHandler(handoffService, eventService, codeService)

	r := gin.New()
	r.Use(middleware.Logger(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.GET("/verify-email", authHandler.VerifyEmail)
			auth.POST("/resend-verification", authHandler.ResendVerification)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/password-reset", authHandler.RequestPasswordReset)
			auth.POST("/password-reset/complete", authHandler.CompletePasswordReset)
			auth.GET("/me", middleware.RequireAuth(authService), authHandler.Me)
			auth.POST("/change-password", middleware.RequireAuth(authService), authHandler.ChangePassword)
		}

		// Public lookups used by the registration and invitation pages
		api.GET("/organizations/search", orgHandler.Search)
		api.GET("/invitations/lookup", orgHandler.LookupInvitation)
		api.POST("/invitations/accept", orgHandler.AcceptInvitation)

		orgs := api.Group("/organizations")
		orgs.Use(middleware.RequireAuth(authService))
		{
			orgs.GET("/:id", orgHandler.Get)
			orgs.GET("/:id/invitations", orgHandler.ListInvitations)

			admin := orgs.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("", orgHandler.Create)
				admin.GET("", orgHandler.List)
				admin.PUT("/:id/fee", orgHandler.SetFeePaid)
				admin.PUT("/:id/billing", orgHandler.UpdateBilling)
				admin.PUT("/:id/contact", orgHandler.SetContact)
				admin.DELETE("/:id", orgHandler.Delete)
				admin.DELETE("/:id/members/:userId", orgHandler.RemoveMember)
				admin.POST("/:id/invitations", orgHandler.Invite)
				admin.DELETE("/:id/invitations/:invitationId", orgHandler.DeleteInvitation)
			}
		}

		events := api.Group("/events")
		events.Use(middleware.RequireAuth(authService))
		{
			events.GET("", eventHandler.List)
			events.GET("/active", eventHandler.Active)
			events.GET("/:id", eventHandler.Get)
			events.GET("/:id/lock-state", eventHandler.LockState)
			events.GET("/:id/delegates", eventHandler.ListDelegates)
			events.PUT("/:id/organizations/:orgId/delegates", eventHandler.SetOrganizationDelegates)

			admin := events.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("", eventHandler.Create)
				admin.PUT("/:id", eventHandler.Update)
				admin.DELETE("/:id", eventHandler.Delete)
				admin.POST("/:id/activate", eventHandler.Activate)
				admin.PUT("/:id/voting-enabled", eventHandler.SetVotingEnabled)
				admin.PUT("/:id/lock-override", eventHandler.SetLockOverride)
				admin.POST("/:id/access-codes", eventHandler.GenerateCodes)
				admin.GET("/:id/access-codes", eventHandler.CodeSummary)
				admin.POST("/reset-all", eventHandler.ResetAll)
			}
		}

		adminAPI := api.Group("/admin")
		adminAPI.Use(middleware.RequireAuth(authService), middleware.RequireAdmin())
		{
			adminAPI.GET("/users", adminHandler.ListUsers)
			adminAPI.GET("/registrations", adminHandler.ListPendingRegistrations)
			adminAPI.PUT("/registrations/:id", adminHandler.DecideRegistration)
			adminAPI.GET("/admins", adminHandler.ListAdmins)
			adminAPI.POST("/admins", adminHandler.CreateAdmin)
			adminAPI.POST("/admins/:id/reset-password", adminHandler.ResetAdminPassword)
			adminAPI.DELETE("/admins/:id", adminHandler.DeleteAdmin)
			adminAPI.GET("/site-settings", adminHandler.GetSiteSettings)
			adminAPI.PUT("/site-settings", adminHandler.UpdateSiteSettings)
			adminAPI.DELETE("/users/:id", orgHandler.DeleteUser)
		}

		voting := api.Group("/voting")
		{
			voting.GET("/launch", middleware.RequireAuth(authService), votingHandler.Launch)
			voting.POST("/authenticate", votingHandler.Authenticate)
			voting.POST("/redeem-code", middleware.OptionalAuth(authService), votingHandler.RedeemCode)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
