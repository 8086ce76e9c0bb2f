package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
// It is immutable after Load() returns.
type Config struct {
	Port        int
	Environment string
	LogLevel    string

	DatabaseURL      string
	DatabaseMaxConns int

	BearerSigningSecret string

	RemoteAgentAPIKey         string
	RemoteAgentOrgID          string
	RemoteAgentLibraryID      string
	RemoteAgentInitialAgentID string
	RemoteAgentWrapupLabel    string

	GCPProject         string
	BlobBucket         string
	SignedURLExpiry    string
	DocAIProcessorName string
	DocAILocation      string

	EmailSenderAddress string
	FrontendBaseURL    string

	DirectoryBaseURL      string
	DirectorySharedSecret string

	MaxDocumentBytes int64

	RedisAddr string
}

// Load reads configuration from environment variables.
// DATABASE_URL is the only variable required in every environment; every
// other external credential is optional and degrades per spec §6 (emails
// no-op, webhook auth disabled, rate-limiter falls back to in-process).
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	cfg := &Config{
		Port:             envInt("PORT", 8080),
		Environment:      envStr("ENVIRONMENT", "development"),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		DatabaseURL:      dbURL,
		DatabaseMaxConns: envInt("DATABASE_MAX_CONNS", 25),

		BearerSigningSecret: envStr("BEARER_SIGNING_SECRET", ""),

		RemoteAgentAPIKey:         envStr("REMOTE_AGENT_API_KEY", ""),
		RemoteAgentOrgID:          envStr("REMOTE_AGENT_ORG_ID", ""),
		RemoteAgentLibraryID:      envStr("REMOTE_AGENT_LIBRARY_ID", ""),
		RemoteAgentInitialAgentID: envStr("REMOTE_AGENT_INITIAL_AGENT_ID", "router"),
		RemoteAgentWrapupLabel:    envStr("REMOTE_AGENT_WRAPUP_LABEL", "wrap_up"),

		GCPProject:         envStr("GOOGLE_CLOUD_PROJECT", ""),
		BlobBucket:         envStr("BLOB_BUCKET", ""),
		SignedURLExpiry:    envStr("SIGNED_URL_EXPIRY", "168h"),
		DocAIProcessorName: envStr("DOCUMENT_AI_PROCESSOR_NAME", ""),
		DocAILocation:      envStr("DOCUMENT_AI_LOCATION", "us"),

		EmailSenderAddress: envStr("EMAIL_SENDER_ADDRESS", ""),
		FrontendBaseURL:    envStr("FRONTEND_BASE_URL", "http://localhost:3000"),

		DirectoryBaseURL:      envStr("DIRECTORY_BASE_URL", ""),
		DirectorySharedSecret: envStr("DIRECTORY_SHARED_SECRET", ""),

		MaxDocumentBytes: int64(envInt("MAX_DOCUMENT_BYTES", 10*1024*1024)),

		RedisAddr: envStr("REDIS_ADDR", ""),
	}

	// The bearer signing secret is required outside development, same as
	// the teacher's INTERNAL_AUTH_SECRET rule — tokens must be verifiable
	// wherever auth is actually enforced.
	if cfg.Environment != "development" && cfg.BearerSigningSecret == "" {
		return nil, fmt.Errorf("config.Load: BEARER_SIGNING_SECRET is required in %s environment", cfg.Environment)
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
