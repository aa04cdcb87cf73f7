// Package config builds the single Config value the storefront runs with.
//
// Values are layered: built-in defaults, then config/app.json, then .env,
// then the process environment. Load is called once at process start and the
// resulting *Config is handed to every component that needs it.
//
//	cfg, err := config.Load(config.DefaultOptions())
//	db, err := database.Open(cfg.Database)
package config

import (
	"fmt"
	"strings"
	"time"
)

// PricePolicy decides whether cart prices sent by the client are trusted.
type PricePolicy string

const (
	// PriceTrustClient stores the cart exactly as submitted.
	PriceTrustClient PricePolicy = "trust-client-price"
	// PriceRevalidate checks every line and the total against the catalog.
	PriceRevalidate PricePolicy = "revalidate-against-catalog"
)

// Options controls where Load reads from.
type Options struct {
	ConfigPath     string
	EnvPath        string
	SkipProcessEnv bool
	Overrides      map[string]string
}

// DefaultOptions reads config/app.json and .env from the working directory.
func DefaultOptions() Options {
	return Options{ConfigPath: "config/app.json", EnvPath: ".env"}
}

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Storage  StorageConfig
	Receipt  ReceiptConfig
	Mail     MailConfig
	Sales    SalesConfig
	Queue    QueueConfig
	HTTP     HTTPConfig
	GRPC     GRPCConfig
	Log      LogConfig
	Audit    AuditConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether APP_ENV names a production deployment.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// AdminConfig is the account bootstrapped when no administrator exists.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

type S3Config struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string
	URL      string
}

type StorageConfig struct {
	Disk          string
	LocalRoot     string
	URL           string
	S3            S3Config
	UploadTimeout time.Duration
}

type ReceiptConfig struct {
	StoreName string
	LogoPath  string
	Prefix    string
}

type MailConfig struct {
	Driver        string
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	FromName      string
	SSL           bool
	Timeout       time.Duration
	NotifyAddress string
}

type SalesConfig struct {
	PricePolicy PricePolicy
	SweepSpec   string
	StallAfter  time.Duration
	MaxAttempts int
}

type QueueConfig struct {
	Driver   string
	Workers  int
	MaxRetry int
}

type HTTPConfig struct {
	RateLimit    int
	RateWindow   time.Duration
	CORSOrigins  []string
	MaxBodyBytes int64
}

type GRPCConfig struct {
	Port string
}

// AuditConfig points at the MongoDB collection sale transitions are
// recorded in. An empty MongoURI disables the audit trail.
type AuditConfig struct {
	MongoURI   string
	Database   string
	Collection string
}

// Enabled reports whether an audit sink was configured.
func (a AuditConfig) Enabled() bool { return a.MongoURI != "" }

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Load assembles a Config from the layered sources described by opts.
func Load(opts Options) (*Config, error) {
	src, err := loadSource(opts)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: src.str("APP_NAME"),
			Env:  strings.ToLower(src.str("APP_ENV")),
			Port: src.str("APP_PORT"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(src.str("DB_DRIVER")),
			DSN:             src.str("DATABASE_DSN"),
			MaxOpenConns:    src.integer("DB_MAX_OPEN"),
			MaxIdleConns:    src.integer("DB_MAX_IDLE"),
			ConnMaxLifetime: src.duration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     src.str("REDIS_ADDR"),
			Password: src.str("REDIS_PASSWORD"),
			DB:       src.integer("REDIS_DB"),
			CacheTTL: src.duration("CACHE_TTL"),
		},
		JWT: JWTConfig{
			Secret: src.str("JWT_SECRET"),
			TTL:    src.duration("JWT_TTL"),
		},
		Admin: AdminConfig{
			Username: src.str("ADMIN_USERNAME"),
			Email:    src.str("ADMIN_EMAIL"),
			Password: src.str("ADMIN_PASSWORD"),
		},
		Storage: StorageConfig{
			Disk:      strings.ToLower(src.str("STORAGE_DISK")),
			LocalRoot: src.str("STORAGE_LOCAL_ROOT"),
			URL:       strings.TrimRight(src.str("STORAGE_URL"), "/"),
			S3: S3Config{
				Bucket:   src.str("S3_BUCKET"),
				Region:   src.str("S3_REGION"),
				Key:      src.str("S3_KEY"),
				Secret:   src.str("S3_SECRET"),
				Endpoint: src.str("S3_ENDPOINT"),
				URL:      strings.TrimRight(src.str("S3_URL"), "/"),
			},
			UploadTimeout: src.duration("RECEIPT_UPLOAD_TIMEOUT"),
		},
		Receipt: ReceiptConfig{
			StoreName: src.str("RECEIPT_STORE_NAME"),
			LogoPath:  src.str("RECEIPT_LOGO_PATH"),
			Prefix:    strings.Trim(src.str("RECEIPT_PREFIX"), "/"),
		},
		Mail: MailConfig{
			Driver:        strings.ToLower(src.str("MAIL_DRIVER")),
			Host:          src.str("MAIL_HOST"),
			Port:          src.integer("MAIL_PORT"),
			Username:      src.str("MAIL_USERNAME"),
			Password:      src.str("MAIL_PASSWORD"),
			From:          src.str("MAIL_FROM"),
			FromName:      src.str("MAIL_FROM_NAME"),
			SSL:           src.boolean("MAIL_SSL"),
			Timeout:       src.duration("MAIL_TIMEOUT"),
			NotifyAddress: src.str("SALES_NOTIFY_EMAIL"),
		},
		Sales: SalesConfig{
			PricePolicy: PricePolicy(strings.ToLower(src.str("SALES_PRICE_POLICY"))),
			SweepSpec:   src.str("SALES_SWEEP_CRON"),
			StallAfter:  src.duration("SALES_STALL_AFTER"),
			MaxAttempts: src.integer("SALES_MAX_ATTEMPTS"),
		},
		Queue: QueueConfig{
			Driver:   strings.ToLower(src.str("QUEUE_DRIVER")),
			Workers:  src.integer("QUEUE_WORKERS"),
			MaxRetry: src.integer("QUEUE_MAX_RETRY"),
		},
		HTTP: HTTPConfig{
			RateLimit:    src.integer("RATE_LIMIT"),
			RateWindow:   src.duration("RATE_WINDOW"),
			CORSOrigins:  src.list("CORS_ORIGINS"),
			MaxBodyBytes: int64(src.integer("MAX_BODY_BYTES")),
		},
		GRPC: GRPCConfig{Port: src.str("GRPC_PORT")},
		Log: LogConfig{
			Level:      strings.ToLower(src.str("LOG_LEVEL")),
			File:       src.str("LOG_FILE"),
			MaxSizeMB:  src.integer("LOG_MAX_SIZE_MB"),
			MaxBackups: src.integer("LOG_MAX_BACKUPS"),
		},
		Audit: AuditConfig{
			MongoURI:   src.str("AUDIT_MONGO_URI"),
			Database:   src.str("AUDIT_MONGO_DB"),
			Collection: src.str("AUDIT_MONGO_COLLECTION"),
		},
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = defaultDSN(cfg.Database.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the rest of the system cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql", "sqlserver":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (supported: sqlite, postgres, mysql, sqlserver)", c.Database.Driver)
	}

	switch c.Sales.PricePolicy {
	case PriceTrustClient, PriceRevalidate:
	default:
		return fmt.Errorf("config: unknown SALES_PRICE_POLICY %q", c.Sales.PricePolicy)
	}

	switch c.Storage.Disk {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("config: STORAGE_DISK=s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("config: unsupported STORAGE_DISK %q", c.Storage.Disk)
	}

	switch c.Mail.Driver {
	case "smtp", "log":
	default:
		return fmt.Errorf("config: unsupported MAIL_DRIVER %q", c.Mail.Driver)
	}

	switch c.Queue.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unsupported QUEUE_DRIVER %q", c.Queue.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET must not be empty")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("config: JWT_TTL must be positive")
	}
	if c.Sales.MaxAttempts < 1 {
		return fmt.Errorf("config: SALES_MAX_ATTEMPTS must be at least 1")
	}

	// The sweeper must never claim a sale a live Register call still owns, so
	// every remote step is bounded and the stall window outlasts them all.
	if c.Storage.UploadTimeout <= 0 {
		return fmt.Errorf("config: RECEIPT_UPLOAD_TIMEOUT must be positive")
	}
	if c.Mail.Timeout <= 0 {
		return fmt.Errorf("config: MAIL_TIMEOUT must be positive")
	}
	if budget := c.Storage.UploadTimeout + c.Mail.Timeout; c.Sales.StallAfter <= budget {
		return fmt.Errorf("config: SALES_STALL_AFTER (%s) must exceed RECEIPT_UPLOAD_TIMEOUT + MAIL_TIMEOUT (%s)",
			c.Sales.StallAfter, budget)
	}
	return nil
}

func defaultDSN(driver string) string {
	switch driver {
	case "postgres":
		return defaultPostgresDSN
	case "mysql":
		return defaultMySQLDSN
	case "sqlserver":
		return defaultSQLServerDSN
	default:
		return defaultSQLiteDSN
	}
}
