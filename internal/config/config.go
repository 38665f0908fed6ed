package config

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8000"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`

	// StoreDriver selects the persistence backend: dynamo, postgres or memory.
	StoreDriver     string `env:"STORE_DRIVER" envDefault:"dynamo"`
	DatabaseURL     string `env:"DATABASE_URL"`
	DatabaseMigrate bool   `env:"DATABASE_MIGRATE" envDefault:"true"`

	// RedisURL backs the OTP rate limiter. Empty falls back to the in-process limiter.
	RedisURL string `env:"REDIS_URL"`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./private_key.pem"`
	JWTPublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./public_key.pem"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"0s"`

	OTP OTP

	DefaultDeviceName string `env:"DEFAULT_DEVICE_NAME" envDefault:"auirah-admin"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@auirah.local"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	SNSRegion  string `env:"SNS_REGION" envDefault:"us-east-1"`
	SMSEnabled bool   `env:"SMS_ENABLED" envDefault:"false"`

	AllowedOrigins []string `env:"FRONTEND_URLS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"true"`

	// TrustedProxies lists the addresses or CIDR ranges whose forwarding
	// headers are believed. Empty means the socket peer is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	SearchSuggestions  []string `env:"SEARCH_SUGGESTIONS" envSeparator:"," envDefault:"Groceries,Laundry,Homework,Dishes,Yard work,Pet care"`
	SearchInspirations []string `env:"SEARCH_INSPIRATIONS" envSeparator:"," envDefault:"Plan a Saturday clean-up,Who walks the dog this week?,Split the dishes rota,Pack school lunches,Water the plants,Sort the recycling,Prep for movie night,Tidy the garage,Fold the laundry,Plan next week's meals,Clean out the fridge,Wash the car"`

	// SearchCurated is a JSON array of CuratedResult. Unset uses DefaultCurated.
	SearchCurated string `env:"SEARCH_CURATED"`

	curated []CuratedResult
}

// CuratedResult is a hand-picked search entry shown when nothing else matches.
type CuratedResult struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// DefaultCurated is used when SEARCH_CURATED is unset.
var DefaultCurated = []CuratedResult{
	{ID: "guide-chore-chart", Type: "guide", Title: "Build a chore chart", Snippet: "Split recurring jobs fairly and rotate them every week.", URL: "/guides/chore-chart"},
	{ID: "guide-routines", Type: "guide", Title: "Morning and bedtime routines", Snippet: "Checklists that help kids get ready without reminders.", URL: "/guides/routines"},
	{ID: "guide-allowance", Type: "guide", Title: "Allowance and rewards", Snippet: "Tie pocket money to finished tasks.", URL: "/guides/allowance"},
	{ID: "page-family", Type: "page", Title: "Manage family members", Snippet: "Invite relatives and choose what they can change.", URL: "/admin/users"},
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users  string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	Tasks  string `env:"DYNAMO_TABLE_TASKS" envDefault:"tasks"`
	Tokens string `env:"DYNAMO_TABLE_TOKENS" envDefault:"access_tokens"`
}

// OTP tunes passcode issuance and verification.
type OTP struct {
	TTL           time.Duration `env:"OTP_TTL" envDefault:"10m"`
	MaxAttempts   int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	RequestLimit  int           `env:"OTP_REQUEST_LIMIT" envDefault:"5"`
	RequestWindow time.Duration `env:"OTP_REQUEST_WINDOW" envDefault:"600s"`
	HashCost      int           `env:"OTP_HASH_COST" envDefault:"10"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Curated returns the entries decoded from SearchCurated, or DefaultCurated.
func (c *Config) Curated() []CuratedResult {
	if c.curated == nil {
		return DefaultCurated
	}
	return c.curated
}

// TrustedProxyPrefixes parses TrustedProxies. Bare addresses become single-host
// prefixes; entries that do not parse are skipped since Load rejects them.
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	if c.SearchCurated != "" {
		curated := []CuratedResult{}
		if err := json.Unmarshal([]byte(c.SearchCurated), &curated); err != nil {
			return fmt.Errorf("SEARCH_CURATED: %w", err)
		}
		c.curated = curated
	}
	for _, raw := range c.TrustedProxies {
		if p, err := parseProxy(raw); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func parseProxy(raw string) (netip.Prefix, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/") {
		p, err := netip.ParsePrefix(raw)
		return p.Masked(), err
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()), nil
}

// IsProduction is the single switch that hides demo codes.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "dynamo", "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.OTP.HashCost < bcrypt.MinCost || c.OTP.HashCost > bcrypt.MaxCost {
		return fmt.Errorf("OTP_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.OTP.MaxAttempts < 1 || c.OTP.RequestLimit < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS and OTP_REQUEST_LIMIT must be positive")
	}
	if c.OTP.TTL <= 0 || c.OTP.RequestWindow <= 0 {
		return fmt.Errorf("OTP_TTL and OTP_REQUEST_WINDOW must be positive")
	}
	if c.SearchCurated != "" {
		curated := []CuratedResult{}
		if err := json.Unmarshal([]byte(c.SearchCurated), &curated); err != nil {
			return fmt.Errorf("SEARCH_CURATED: %w", err)
		}
		c.curated = curated
	}
	for _, raw := range c.TrustedProxies {
		if _, err := parseProxy(raw); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES entry %q: %w", raw, err)
		}
	}
	return nil
}
