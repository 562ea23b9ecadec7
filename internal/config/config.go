package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pack-portal/internal/database"
)

const (
	StorageBackendSupabase = "supabase"
	StorageBackendLocal    = "local"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	DownloadMaxDuration     time.Duration
	DownloadIdleTimeout     time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	// DBSimpleProtocol disables prepared statements for transaction poolers.
	DBSimpleProtocol bool

	JWTSecret string

	DiscordAPIBase          string
	DiscordBotToken         string
	DiscordGuildID          string
	DiscordPremiumRoleID    string
	DiscordNotifyWebhookURL string

	StorageBackend     string
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string
	StorageRoot        string
	HTTPClientTimeout  time.Duration

	LineChannelSecret      string
	LineChannelAccessToken string
	LineAPIBase            string

	AdminKeyHash string

	CORSOrigins       []string
	RateLimitRPM      int
	ClaimRateLimitRPM int

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 0),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DownloadMaxDuration:     getDuration("DOWNLOAD_MAX_DURATION", 30*time.Minute),
		DownloadIdleTimeout:     getDuration("DOWNLOAD_IDLE_TIMEOUT", 60*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		DBSimpleProtocol:        getBool("DB_SIMPLE_PROTOCOL", false),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		DiscordAPIBase:          getEnv("DISCORD_API_BASE", "https://discord.com/api/v10"),
		DiscordBotToken:         strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
		DiscordGuildID:          strings.TrimSpace(os.Getenv("DISCORD_GUILD_ID")),
		DiscordPremiumRoleID:    strings.TrimSpace(os.Getenv("DISCORD_PREMIUM_ROLE_ID")),
		DiscordNotifyWebhookURL: strings.TrimSpace(os.Getenv("DISCORD_NOTIFY_WEBHOOK_URL")),
		StorageBackend:          strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendSupabase)),
		SupabaseURL:             strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseServiceKey:      strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY")),
		SupabaseBucket:          getEnv("SUPABASE_BUCKET", "packs"),
		StorageRoot:             getEnv("STORAGE_ROOT", "./data/packs"),
		HTTPClientTimeout:       getDuration("HTTP_CLIENT_TIMEOUT", 20*time.Second),
		LineChannelSecret:       strings.TrimSpace(os.Getenv("LINE_CHANNEL_SECRET")),
		LineChannelAccessToken:  strings.TrimSpace(os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")),
		LineAPIBase:             getEnv("LINE_API_BASE", "https://api.line.me"),
		AdminKeyHash:            strings.TrimSpace(os.Getenv("ADMIN_KEY_HASH")),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 120),
		ClaimRateLimitRPM:       getInt("CLAIM_RATE_LIMIT_RPM", 10),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the settings needed to open the connection pool.
// Used by tooling that does not serve HTTP.
func LoadDatabase() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 4)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 1)),

		DBSimpleProtocol: getBool("DB_SIMPLE_PROTOCOL", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) DatabaseOptions() database.Options {
	return database.Options{
		URL:            c.DatabaseURL,
		MaxConns:       c.DBMaxConns,
		MinConns:       c.DBMinConns,
		SimpleProtocol: c.DBSimpleProtocol,
	}
}

func (c *Config) Validate() error {
	// No default secret.
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are inconsistent")
	}

	if c.DiscordBotToken == "" || c.DiscordGuildID == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN and DISCORD_GUILD_ID are required")
	}

	if c.DiscordPremiumRoleID == "" {
		return fmt.Errorf("DISCORD_PREMIUM_ROLE_ID is required")
	}

	if err := validateURL("DISCORD_API_BASE", c.DiscordAPIBase); err != nil {
		return err
	}

	if c.DiscordNotifyWebhookURL != "" {
		if err := validateURL("DISCORD_NOTIFY_WEBHOOK_URL", c.DiscordNotifyWebhookURL); err != nil {
			return err
		}
	}

	switch c.StorageBackend {
	case StorageBackendSupabase:
		if err := validateURL("SUPABASE_URL", c.SupabaseURL); err != nil {
			return err
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required for the supabase storage backend")
		}
		if strings.TrimSpace(c.SupabaseBucket) == "" {
			return fmt.Errorf("SUPABASE_BUCKET cannot be empty")
		}
	case StorageBackendLocal:
		if strings.TrimSpace(c.StorageRoot) == "" {
			return fmt.Errorf("STORAGE_ROOT cannot be empty")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q", StorageBackendSupabase, StorageBackendLocal)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.DownloadMaxDuration <= 0 || c.DownloadIdleTimeout <= 0 {
		return fmt.Errorf("DOWNLOAD_MAX_DURATION and DOWNLOAD_IDLE_TIMEOUT must be positive")
	}

	if c.HTTPClientTimeout <= 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT must be positive")
	}

	if c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be pretty or json")
	}

	return nil
}

func validateURL(key string, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}

	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL", key)
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
