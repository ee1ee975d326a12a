// Package config builds the process configuration from environment variables
// so main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server process needs at startup.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Storage  Storage
	Payments Payments
	Auth     Auth
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Database captures the Postgres connection settings.
type Database struct {
	URL string
}

// Redis captures the listing-cache connection settings. An empty URL disables
// the cache; reads fall through to Postgres.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Storage captures the object-storage location for listing photos and
// verification documents. PublicBaseURL is prefixed to storage paths when
// building browser-facing photo URLs.
type Storage struct {
	Bucket        string
	Region        string
	PublicBaseURL string
}

// Payments captures the checkout collaborator contract. MockMode activates
// listings immediately on creation instead of requiring payment.
// CallbackSecretHash is the bcrypt hash of the shared secret the provider
// presents on its confirmation callback; when empty the callback endpoint
// refuses every delivery.
type Payments struct {
	Endpoint           string
	FeeCents           int64
	RedirectURL        string
	MockMode           bool
	RequestTimeout     time.Duration
	CallbackSecretHash string
}

// Auth captures verification settings for tokens issued by the managed auth
// provider.
type Auth struct {
	JWTSigningKey  string
	Issuer         string
	RequestTimeout time.Duration
}

// Kafka captures the audit-relay brokers. Empty brokers disable the relay;
// audit events stay in the outbox table.
type Kafka struct {
	Brokers     []string
	AuditTopic  string
	RelayPeriod time.Duration
}

// FromEnv builds a Config from environment variables, applying development
// defaults where a value is absent.
func FromEnv() Config {
	bucket := envOr("PHOTO_BUCKET", "listing-photos")
	region := envOr("AWS_REGION", "us-east-1")

	return Config{
		Server: Server{
			Addr:         envOr("CARTERET_ADDR", ":8080"),
			ReadTimeout:  envDuration("SERVER_READ_TIMEOUT", 60*time.Second),
			WriteTimeout: envDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  envDuration("SERVER_IDLE_TIMEOUT", 2*time.Minute),
		},
		Database: Database{
			URL: envOr("DATABASE_URL", "postgres://localhost:5432/carteret?sslmode=disable"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Storage: Storage{
			Bucket: bucket,
			Region: region,
			PublicBaseURL: envOr("PHOTO_PUBLIC_BASE_URL",
				fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)),
		},
		Payments: Payments{
			Endpoint:           os.Getenv("CHECKOUT_ENDPOINT"),
			FeeCents:           int64(envInt("LISTING_FEE_CENTS", 300)),
			RedirectURL:        envOr("CHECKOUT_REDIRECT_URL", "http://localhost:5173/account"),
			MockMode:           os.Getenv("MOCK_PAYMENTS") == "true",
			RequestTimeout:     envDuration("CHECKOUT_TIMEOUT", 10*time.Second),
			CallbackSecretHash: os.Getenv("PAYMENT_CALLBACK_SECRET_HASH"),
		},
		Auth: Auth{
			JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:         envOr("JWT_ISSUER", "carteret-auth"),
			RequestTimeout: envDuration("AUTH_TIMEOUT", 5*time.Second),
		},
		Kafka: Kafka{
			Brokers:     splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:  envOr("AUDIT_TOPIC", "carteret.audit"),
			RelayPeriod: envDuration("AUDIT_RELAY_PERIOD", 2*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
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

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
