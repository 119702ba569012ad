package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default Google endpoints. Every one of them can be overridden from the environment,
// which is how tests point the service at local fakes.
const (
	DefaultGoogleIssuer         = "https://accounts.google.com"
	DefaultGoogleJWKSURL        = "https://www.googleapis.com/oauth2/v3/certs"
	DefaultGoogleTokenURL       = "https://oauth2.googleapis.com/token"
	DefaultGoogleTokenInfoURL   = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	DefaultGoogleUserInfoURL    = "https://www.googleapis.com/oauth2/v3/userinfo"
	DefaultGoogleRevokeURL      = "https://oauth2.googleapis.com/revoke"
	DefaultGoogleConnectionsURL = "https://people.googleapis.com/v1/people/me/connections"
	DefaultGoogleRealm          = "https://www.google.com/accounts/AuthSubRequest"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Google    GoogleConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	BaseURI      string
	Demo         bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GoogleConfig configures the identity provider client.
type GoogleConfig struct {
	ClientID       string
	ClientSecret   string
	Issuer         string
	JWKSURL        string
	TokenURL       string
	TokenInfoURL   string
	UserInfoURL    string
	RevokeURL      string
	ConnectionsURL string
	Realm          string
	Timeout        time.Duration
	// InsecureIDTokens skips ID token signature checks. Integration environments only.
	InsecureIDTokens bool
}

type SessionConfig struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
	KeyPrefix  string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("APP_BASE_URI", "http://localhost:8080")
	viper.SetDefault("DEMO", false)
	viper.SetDefault("MONGODB_DATABASE", "haikuplus")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GOOGLE_ISSUER", DefaultGoogleIssuer)
	viper.SetDefault("GOOGLE_JWKS_URL", DefaultGoogleJWKSURL)
	viper.SetDefault("GOOGLE_TOKEN_URL", DefaultGoogleTokenURL)
	viper.SetDefault("GOOGLE_TOKENINFO_URL", DefaultGoogleTokenInfoURL)
	viper.SetDefault("GOOGLE_USERINFO_URL", DefaultGoogleUserInfoURL)
	viper.SetDefault("GOOGLE_REVOKE_URL", DefaultGoogleRevokeURL)
	viper.SetDefault("GOOGLE_CONNECTIONS_URL", DefaultGoogleConnectionsURL)
	viper.SetDefault("GOOGLE_REALM", DefaultGoogleRealm)
	viper.SetDefault("GOOGLE_TIMEOUT_SECONDS", 10)
	viper.SetDefault("ALLOW_INSECURE_TOKEN", false)
	viper.SetDefault("SESSION_COOKIE_NAME", "HaikuSessionId")
	viper.SetDefault("SESSION_TTL_HOURS", 24*14)
	viper.SetDefault("SESSION_COOKIE_SECURE", false)
	viper.SetDefault("SESSION_KEY_PREFIX", "session:")
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			BaseURI:      strings.TrimRight(viper.GetString("APP_BASE_URI"), "/"),
			Demo:         viper.GetBool("DEMO"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Google: GoogleConfig{
			ClientID:         viper.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:     os.Getenv("GOOGLE_CLIENT_SECRET"),
			Issuer:           viper.GetString("GOOGLE_ISSUER"),
			JWKSURL:          viper.GetString("GOOGLE_JWKS_URL"),
			TokenURL:         viper.GetString("GOOGLE_TOKEN_URL"),
			TokenInfoURL:     viper.GetString("GOOGLE_TOKENINFO_URL"),
			UserInfoURL:      viper.GetString("GOOGLE_USERINFO_URL"),
			RevokeURL:        viper.GetString("GOOGLE_REVOKE_URL"),
			ConnectionsURL:   viper.GetString("GOOGLE_CONNECTIONS_URL"),
			Realm:            viper.GetString("GOOGLE_REALM"),
			Timeout:          time.Duration(viper.GetInt("GOOGLE_TIMEOUT_SECONDS")) * time.Second,
			InsecureIDTokens: viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		Session: SessionConfig{
			CookieName: viper.GetString("SESSION_COOKIE_NAME"),
			Secret:     os.Getenv("SESSION_SECRET"),
			TTL:        time.Duration(viper.GetInt("SESSION_TTL_HOURS")) * time.Hour,
			Secure:     viper.GetBool("SESSION_COOKIE_SECURE"),
			KeyPrefix:  viper.GetString("SESSION_KEY_PREFIX"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// Basic validation
	if cfg.Session.Secret == "" {
		log.Println("WARNING: SESSION_SECRET is not set; set a secure value in production")
	}
	if cfg.Google.ClientID == "" {
		log.Println("WARNING: GOOGLE_CLIENT_ID is not set; every sign-in will be rejected")
	}
	if cfg.Google.Timeout <= 0 {
		cfg.Google.Timeout = 10 * time.Second
	}

	return cfg, nil
}
