package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Discord Bot
	DiscordToken string

	// Discord OAuth2, optional. The web login is off unless both are set.
	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	// Database. Empty keeps everything in memory.
	DatabaseURL string

	// Advisor
	OpenAIAPIKey   string
	OpenAIModel    string
	AdvisorTimeout time.Duration

	// Web Server
	WebBind      string
	WebUIBaseURL string

	// Session
	JWTSecret     string
	SessionTTL    time.Duration
	SweepInterval time.Duration

	// Observability
	LogLevel         string
	MetricsNamespace string
}

// Discord bot tokens are three dot-separated url-safe base64 segments.
var tokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]{18,}\.[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]{20,}$`)

// Load reads .env (if present) and the environment and validates everything
// the bot needs to serve.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := ValidateToken(cfg.DiscordToken); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStore is Load without the Discord token check, for commands that only
// touch the database.
func LoadStore() (*Config, error) {
	return read()
}

func read() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:        strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		WebBind:             getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  getEnvDefault("DISCORD_REDIRECT_URI", "http://localhost:3000/api/auth/callback"),
		JWTSecret:           getEnvDefault("JWT_SECRET", "dev-only-change-me"),
		LogLevel:            getEnvDefault("LOG_LEVEL", "info"),
		MetricsNamespace:    getEnvDefault("METRICS_NAMESPACE", "bizbot"),
	}

	cfg.WebUIBaseURL = extractBaseURL(cfg.DiscordRedirectURI)

	var err error
	if cfg.AdvisorTimeout, err = getDurationDefault("ADVISOR_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDurationDefault("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDurationDefault("SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OAuthEnabled reports whether the web login can run.
func (c *Config) OAuthEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

// ValidateToken rejects empty or obviously mangled bot tokens before any
// network call is made.
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if !tokenRe.MatchString(token) {
		return fmt.Errorf("DISCORD_TOKEN looks malformed (%s); copy it again from the developer portal without quotes or spaces", mask(token))
	}
	return nil
}

func mask(token string) string {
	if len(token) < 6 {
		return "***"
	}
	return token[:6] + "..."
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func extractBaseURL(redirectURI string) string {
	// e.g., "http://localhost:3000/api/auth/callback" -> "http://localhost:3000"
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "http://localhost:3000"
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}
