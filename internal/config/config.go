package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	OIDC      OIDCConfig
	JWT       JWTConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	FrontendURL  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects the identity store backend: mongo, postgres or memory.
type StoreConfig struct {
	Driver string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type PostgresConfig struct {
	URL string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OIDCConfig describes the external identity provider. When Realm is set the
// issuer is derived Keycloak-style as <IssuerURL>/realms/<Realm>.
type OIDCConfig struct {
	IssuerURL string
	Realm     string
	ClientID  string
	Timeout   time.Duration
}

// Issuer returns the issuer URL used for discovery.
func (o OIDCConfig) Issuer() string {
	if o.Realm == "" {
		return strings.TrimRight(o.IssuerURL, "/")
	}
	return strings.TrimRight(o.IssuerURL, "/") + "/realms/" + o.Realm
}

type JWTConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// ZoneOffset is the fixed offset ("-03:00") expirations are computed in.
	ZoneOffset string
}

// Location parses ZoneOffset into a fixed time zone.
func (j JWTConfig) Location() (*time.Location, error) {
	t, err := time.Parse("-07:00", j.ZoneOffset)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ZONE_OFFSET %q: %w", j.ZoneOffset, err)
	}
	_, offset := t.Zone()
	return time.FixedZone("UTC"+j.ZoneOffset, offset), nil
}

const (
	AuthModeSelf     = "self"
	AuthModeProvider = "provider"
)

type AuthConfig struct {
	// Mode picks the bearer verification path: self-issued tokens or
	// provider tokens accepted directly.
	Mode          string
	StrictBearer  bool
	VerifyTimeout time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("FRONTEND_URL", "http://localhost:4200")
	viper.SetDefault("STORE_DRIVER", "mongo")
	viper.SetDefault("MONGODB_DATABASE", "pifisio")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("OIDC_ISSUER_URL", "https://accounts.google.com")
	viper.SetDefault("OIDC_TIMEOUT", 5)
	viper.SetDefault("JWT_ISSUER", "PI-Fisio")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("JWT_ZONE_OFFSET", "-03:00")
	viper.SetDefault("AUTH_MODE", AuthModeSelf)
	viper.SetDefault("AUTH_STRICT_BEARER", false)
	viper.SetDefault("AUTH_VERIFY_TIMEOUT", 5)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			FrontendURL:  viper.GetString("FRONTEND_URL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Driver: strings.ToLower(strings.TrimSpace(viper.GetString("STORE_DRIVER"))),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Postgres: PostgresConfig{
			URL: viper.GetString("POSTGRES_URL"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		OIDC: OIDCConfig{
			IssuerURL: viper.GetString("OIDC_ISSUER_URL"),
			Realm:     viper.GetString("OIDC_REALM"),
			ClientID:  viper.GetString("OIDC_CLIENT_ID"),
			Timeout:   time.Duration(viper.GetInt("OIDC_TIMEOUT")) * time.Second,
		},
		JWT: JWTConfig{
			Secret:          viper.GetString("JWT_SECRET"),
			Issuer:          viper.GetString("JWT_ISSUER"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
			ZoneOffset:      viper.GetString("JWT_ZONE_OFFSET"),
		},
		Auth: AuthConfig{
			Mode:          strings.ToLower(strings.TrimSpace(viper.GetString("AUTH_MODE"))),
			StrictBearer:  viper.GetBool("AUTH_STRICT_BEARER"),
			VerifyTimeout: time.Duration(viper.GetInt("AUTH_VERIFY_TIMEOUT")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with. A bad
// signing setup is a startup failure, never a per-request one.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.JWT.Issuer == "" {
		return fmt.Errorf("JWT_ISSUER must not be empty")
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return fmt.Errorf("JWT token TTLs must be positive")
	}
	if _, err := c.JWT.Location(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "mongo":
		if c.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=mongo")
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("POSTGRES_URL is required when STORE_DRIVER=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Auth.Mode {
	case AuthModeSelf, AuthModeProvider:
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode)
	}
	if c.OIDC.ClientID == "" {
		return fmt.Errorf("OIDC_CLIENT_ID is required")
	}
	// key fetches and bearer verification must always be bounded
	if c.OIDC.Timeout <= 0 {
		return fmt.Errorf("OIDC_TIMEOUT must be positive")
	}
	if c.Auth.VerifyTimeout <= 0 {
		return fmt.Errorf("AUTH_VERIFY_TIMEOUT must be positive")
	}
	return nil
}
