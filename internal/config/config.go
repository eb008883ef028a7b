package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Voting   VotingConfig
	Mail     MailConfig
	Captcha  CaptchaConfig
	Admin    AdminConfig

	// LocalTimezone is the canonical zone every stored datetime is
	// normalized to before being persisted naive.
	LocalTimezone string

	// PublicBaseURL is used to build links embedded in outbound emails.
	PublicBaseURL string

	GinMode  string
	LogLevel string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig holds relational store settings. Driver selects the
// dialect ("postgres" or "mysql").
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// SessionConfig controls session and password-reset token lifetimes.
type SessionConfig struct {
	TokenTTLHours        int
	ResetTokenTTLMinutes int
}

// VotingConfig covers the cross-application handoff to the voting app.
type VotingConfig struct {
	SharedSecret string
	// LaunchTokenTTLSeconds bounds the lifetime of minted launch tokens.
	LaunchTokenTTLSeconds int
	// AuthTTLSeconds is the freshness window for inbound signed
	// authentication requests.
	AuthTTLSeconds  int
	AppBaseURL      string
	SyncTimeoutSecs int
}

// MailConfig holds the transactional email provider settings.
type MailConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
}

// CaptchaConfig holds reCAPTCHA verification settings.
type CaptchaConfig struct {
	Enabled   bool
	SecretKey string
}

// AdminConfig controls admin bootstrap and the allow-list of emails that
// register directly as administrators.
type AdminConfig struct {
	SeedEmail    string
	SeedPassword string
	AdminEmails  []string
}

// Load reads configuration from environment, with optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout: getEnvInt("WRITE_TIMEOUT_SEC", 30),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "dashboard"),
			Password: getEnv("DB_PASSWORD", "dashboard"),
			Name:     getEnv("DB_NAME", "dashboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Session: SessionConfig{
			TokenTTLHours:        getEnvInt("SESSION_TOKEN_TTL_HOURS", 12),
			ResetTokenTTLMinutes: getEnvInt("PASSWORD_RESET_TOKEN_TTL_MINUTES", 60),
		},
		Voting: VotingConfig{
			SharedSecret:          getEnv("VOTING_O2AUTH_SECRET", "development-secret"),
			LaunchTokenTTLSeconds: getEnvInt("VOTING_O2AUTH_TTL_SECONDS", 300),
			AuthTTLSeconds:        getEnvInt("VOTING_AUTH_TTL_SECONDS", 60),
			AppBaseURL:            strings.TrimRight(getEnv("VOTING_APP_BASE_URL", "http://localhost:3001"), "/"),
			SyncTimeoutSecs:       getEnvInt("VOTING_SYNC_TIMEOUT_SECONDS", 5),
		},
		Mail: MailConfig{
			APIKey:      getEnv("BREVO_API_KEY", ""),
			SenderEmail: getEnv("BREVO_SENDER_EMAIL", ""),
			SenderName:  getEnv("BREVO_SENDER_NAME", "Federation Dashboard"),
		},
		Captcha: CaptchaConfig{
			Enabled:   getEnvBool("RECAPTCHA_ENABLED", false),
			SecretKey: getEnv("RECAPTCHA_SECRET_KEY", ""),
		},
		Admin: AdminConfig{
			SeedEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
			SeedPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
			AdminEmails:  splitTrim(getEnv("ADMIN_EMAILS", ""), ","),
		},
		LocalTimezone: getEnv("LOCAL_TIMEZONE", "Europe/Budapest"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.ToLower(strings.TrimSpace(v)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
