package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Session   SessionConfig
	Stripe    StripeConfig
	Checkout  CheckoutConfig
	Invoice   InvoiceConfig
	S3        S3Config
	Redis     RedisConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	PublicURL   string // storefront origin used in provider redirect URLs
}

// IsProduction reports whether cookies must be Secure.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type SessionConfig struct {
	CookieName    string
	TTL           time.Duration // lifetime of a new session
	RenewalWindow time.Duration // extend when expiry is closer than this
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	UIMode        string // "embedded" or "hosted"
}

type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
	ReturnURL  string
	PendingTTL time.Duration // pending orders older than this are abandoned
	LockTTL    time.Duration // confirmation lock lifetime
}

type InvoiceConfig struct {
	Storage         string // "local" or "s3"
	Dir             string
	PublicPrefix    string
	BusinessName    string
	BusinessAddress []string
}

type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type SchedulerConfig struct {
	Enabled            bool
	AbandonPendingSpec string
	PurgeSessionsSpec  string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	publicURL := strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:3000"), "/")

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			PublicURL:   publicURL,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "storefront"),
			Password: getEnv("DB_PASSWORD", "storefront"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Session: SessionConfig{
			CookieName:    getEnv("SESSION_COOKIE_NAME", "session_token"),
			TTL:           parseDuration(getEnv("SESSION_TTL", "168h"), 7*24*time.Hour),
			RenewalWindow: parseDuration(getEnv("SESSION_RENEWAL_WINDOW", "24h"), 24*time.Hour),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      strings.ToLower(getEnv("STRIPE_CURRENCY", "eur")),
			UIMode:        getEnv("STRIPE_UI_MODE", "embedded"),
		},
		Checkout: CheckoutConfig{
			SuccessURL: getEnv("CHECKOUT_SUCCESS_URL", publicURL+"/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
			CancelURL:  getEnv("CHECKOUT_CANCEL_URL", publicURL+"/cart"),
			ReturnURL:  getEnv("CHECKOUT_RETURN_URL", publicURL+"/checkout/return?session_id={CHECKOUT_SESSION_ID}"),
			PendingTTL: parseDuration(getEnv("CHECKOUT_PENDING_TTL", "24h"), 24*time.Hour),
			LockTTL:    parseDuration(getEnv("CHECKOUT_LOCK_TTL", "30s"), 30*time.Second),
		},
		Invoice: InvoiceConfig{
			Storage:         getEnv("INVOICE_STORAGE", "local"),
			Dir:             getEnv("INVOICE_DIR", "./public/invoices"),
			PublicPrefix:    getEnv("INVOICE_PUBLIC_PREFIX", "/invoices"),
			BusinessName:    getEnv("INVOICE_BUSINESS_NAME", "Sentinel Shop"),
			BusinessAddress: parseSlice(getEnv("INVOICE_BUSINESS_ADDRESS", "")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "eu-west-3"),
			Bucket:          getEnv("AWS_S3_BUCKET", "storefront-invoices"),
			Prefix:          getEnv("AWS_S3_PREFIX", "invoices"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0")),
		},
		Scheduler: SchedulerConfig{
			Enabled:            parseBool(getEnv("SCHEDULER_ENABLED", "true")),
			AbandonPendingSpec: getEnv("SCHEDULER_ABANDON_PENDING", "@every 15m"),
			PurgeSessionsSpec:  getEnv("SCHEDULER_PURGE_SESSIONS", "0 4 * * *"),
		},
	}

	if cfg.Server.IsProduction() {
		if cfg.JWT.Secret == "your-secret-key" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		if cfg.Stripe.SecretKey == "" {
			return nil, fmt.Errorf("STRIPE_SECRET_KEY must be set in production")
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %q, using default %s", s, fallback)
		return fallback
	}
	return d
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
