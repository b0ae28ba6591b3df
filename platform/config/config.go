// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MetaConfig provides settings for the Meta Graph and Conversions APIs.
type MetaConfig interface {
	GetMetaAppID() string
	GetMetaAppSecret() string
	GetMetaVerifyToken() string
	GetMetaGraphBaseURL() string
	GetMetaHTTPTimeout() time.Duration
}

// SignalConfig provides settings for the quality-feedback dispatcher.
type SignalConfig interface {
	// GetSignalPositiveStatuses lists the pipeline statuses that trigger an
	// automatic conversion-event dispatch on transition.
	GetSignalPositiveStatuses() []string
	// GetSignalSourceName tags outgoing conversion events with the origin system.
	GetSignalSourceName() string
	GetSignalMaxRetries() int
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// WhatsAppConfig provides settings for the WhatsApp sidecar service.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// SchedulerConfig provides settings for the asynq background worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetNotificationFromAddress() string
	// GetNotificationEmailTo is the tenant inbox for new-lead notifications.
	// Empty disables the email channel.
	GetNotificationEmailTo() string
	// GetNotificationWhatsAppTo is the phone number for WhatsApp pushes.
	// Empty disables the WhatsApp channel.
	GetNotificationWhatsAppTo() string
}

// RatingConfig provides lifetime settings for rating and portal tokens.
type RatingConfig interface {
	GetRatingTokenTTL() time.Duration
	GetPortalTokenTTL() time.Duration
	GetAppBaseURL() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	AppBaseURL string

	MetaAppID        string
	MetaAppSecret    string
	MetaVerifyToken  string
	MetaGraphBaseURL string
	MetaHTTPTimeout  time.Duration

	SignalPositiveStatuses []string
	SignalSourceName       string
	SignalMaxRetries       int

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	WhatsAppURL      string
	WhatsAppKey      string
	WhatsAppDeviceID string

	NotificationEmailTo    string
	NotificationWhatsAppTo string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	RatingTokenTTL time.Duration
	PortalTokenTTL time.Duration
}

// DatabaseConfig implementation.
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation.
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation.
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MetaConfig implementation.
func (c *Config) GetMetaAppID() string              { return c.MetaAppID }
func (c *Config) GetMetaAppSecret() string          { return c.MetaAppSecret }
func (c *Config) GetMetaVerifyToken() string        { return c.MetaVerifyToken }
func (c *Config) GetMetaGraphBaseURL() string       { return c.MetaGraphBaseURL }
func (c *Config) GetMetaHTTPTimeout() time.Duration { return c.MetaHTTPTimeout }

// SignalConfig implementation.
func (c *Config) GetSignalPositiveStatuses() []string { return c.SignalPositiveStatuses }
func (c *Config) GetSignalSourceName() string         { return c.SignalSourceName }
func (c *Config) GetSignalMaxRetries() int            { return c.SignalMaxRetries }

// EmailConfig implementation.
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// WhatsAppConfig implementation.
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

// SchedulerConfig implementation.
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// NotificationConfig implementation.
func (c *Config) GetAppBaseURL() string              { return c.AppBaseURL }
func (c *Config) GetNotificationFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetNotificationEmailTo() string     { return c.NotificationEmailTo }
func (c *Config) GetNotificationWhatsAppTo() string  { return c.NotificationWhatsAppTo }

// RatingConfig implementation.
func (c *Config) GetRatingTokenTTL() time.Duration { return c.RatingTokenTTL }
func (c *Config) GetPortalTokenTTL() time.Duration { return c.PortalTokenTTL }

// Load reads configuration from environment variables, with .env support.
func Load() (*Config, error) {
	// Load .env in development; ignore if absent.
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),

		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "")),
		CORSAllowCreds: getEnv("CORS_ALLOW_CREDENTIALS", "true") == "true",

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),

		MetaAppID:        os.Getenv("META_APP_ID"),
		MetaAppSecret:    os.Getenv("META_APP_SECRET"),
		MetaVerifyToken:  os.Getenv("META_WEBHOOK_VERIFY_TOKEN"),
		MetaGraphBaseURL: getEnv("META_GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"),
		MetaHTTPTimeout:  mustDuration(getEnv("META_HTTP_TIMEOUT", "10s")),

		SignalPositiveStatuses: splitCSV(getEnv("SIGNAL_POSITIVE_STATUSES", "qualified")),
		SignalSourceName:       getEnv("SIGNAL_SOURCE_NAME", "LeadSignal CRM"),
		SignalMaxRetries:       int(mustInt64(getEnv("SIGNAL_MAX_RETRIES", "5"))),

		EmailEnabled:     getEnv("EMAIL_ENABLED", "false") == "true",
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "LeadSignal"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@leadsignal.local"),

		WhatsAppURL:      os.Getenv("WHATSAPP_URL"),
		WhatsAppKey:      os.Getenv("WHATSAPP_API_KEY"),
		WhatsAppDeviceID: os.Getenv("WHATSAPP_DEVICE_ID"),

		NotificationEmailTo:    os.Getenv("NOTIFY_EMAIL_TO"),
		NotificationWhatsAppTo: os.Getenv("NOTIFY_WHATSAPP_TO"),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getEnv("REDIS_TLS_INSECURE", "false") == "true",
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),

		RatingTokenTTL: mustDuration(getEnv("RATING_TOKEN_TTL", "168h")),
		PortalTokenTTL: mustDuration(getEnv("PORTAL_TOKEN_TTL", "720h")),
	}

	cfg.CORSAllowAll = containsWildcard(cfg.CORSOrigins)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.MetaVerifyToken == "" {
		return nil, fmt.Errorf("META_WEBHOOK_VERIFY_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}
