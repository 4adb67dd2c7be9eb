package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Store      StoreConfig
	Firestore  FirestoreConfig
	S3         S3Config
	GCS        GCSConfig
	ImageHost  ImageHostConfig
	Log        LogConfig
	Completion CompletionConfig
	Scan       ScanConfig
	RateLimit  RateLimitConfig
	Breaker    BreakerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StoreConfig selects where scan records are persisted.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // postgres | firestore
}

// FirestoreConfig holds Firestore settings.
type FirestoreConfig struct {
	ProjectID  string `mapstructure:"project_id"`
	Collection string `mapstructure:"collection"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// GCSConfig holds Google Cloud Storage settings.
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ImageHostConfig selects where uploaded images are hosted.
type ImageHostConfig struct {
	Backend string `mapstructure:"backend"` // s3 | gcs
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProviderConfig holds settings for a single completion provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	Endpoint     string `mapstructure:"endpoint"`
	Stream       bool   `mapstructure:"stream"`
	Project      string `mapstructure:"project"`
	Location     string `mapstructure:"location"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// CompletionConfig holds the ordered completion providers.
type CompletionConfig struct {
	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// Providers returns the configured providers in fallback order.
func (c *CompletionConfig) Providers() []*ProviderConfig {
	var out []*ProviderConfig
	for _, p := range []*ProviderConfig{&c.Primary, &c.Secondary, &c.Tertiary} {
		if p.Provider != "" {
			out = append(out, p)
		}
	}
	return out
}

// ScanConfig holds per-document-type sampling settings.
type ScanConfig struct {
	ProductAttempts      int     `mapstructure:"product_attempts"`
	BillAttempts         int     `mapstructure:"bill_attempts"`
	PrescriptionAttempts int     `mapstructure:"prescription_attempts"`
	MaxUploadSizeMB      int64   `mapstructure:"max_upload_size_mb"`
	Temperature          float64 `mapstructure:"temperature"`
	MaxTokens            int     `mapstructure:"max_tokens"`
	VisionModel          string  `mapstructure:"vision_model"`
	TextModel            string  `mapstructure:"text_model"`
}

// RateLimitConfig bounds outbound completion calls.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// BreakerConfig tunes the per-provider circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.ProductAttempts < 1 {
		errs = append(errs, errors.New("scan.product_attempts must be at least 1"))
	}
	if c.Scan.BillAttempts < 1 {
		errs = append(errs, errors.New("scan.bill_attempts must be at least 1"))
	}
	if c.Scan.PrescriptionAttempts < 1 {
		errs = append(errs, errors.New("scan.prescription_attempts must be at least 1"))
	}
	switch c.Store.Backend {
	case "postgres", "firestore":
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	switch c.ImageHost.Backend {
	case "s3", "gcs":
	default:
		errs = append(errs, fmt.Errorf("unknown image_host.backend %q", c.ImageHost.Backend))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables with the RXSCAN_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RXSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "rxscan")
	v.SetDefault("db.password", "rxscan_secret")
	v.SetDefault("db.name", "rxscan_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Store defaults
	v.SetDefault("store.backend", "postgres")
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("firestore.collection", "scans")

	// Image host defaults
	v.SetDefault("image_host.backend", "s3")
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "rxscan-images")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)
	v.SetDefault("gcs.bucket", "rxscan-images")
	v.SetDefault("gcs.credentials_file", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Completion defaults
	v.SetDefault("completion.primary.provider", "together")
	v.SetDefault("completion.primary.api_key", "")
	v.SetDefault("completion.primary.default_model", "meta-llama/Llama-Vision-Free")
	v.SetDefault("completion.primary.endpoint", "")
	v.SetDefault("completion.primary.stream", true)
	v.SetDefault("completion.primary.timeout_secs", 120)
	v.SetDefault("completion.secondary.provider", "")
	v.SetDefault("completion.secondary.timeout_secs", 120)
	v.SetDefault("completion.tertiary.provider", "")
	v.SetDefault("completion.tertiary.timeout_secs", 120)

	// Scan defaults
	v.SetDefault("scan.product_attempts", 3)
	v.SetDefault("scan.bill_attempts", 2)
	v.SetDefault("scan.prescription_attempts", 3)
	v.SetDefault("scan.max_upload_size_mb", 16)
	v.SetDefault("scan.temperature", 0.3)
	v.SetDefault("scan.max_tokens", 2048)
	v.SetDefault("scan.vision_model", "meta-llama/Llama-Vision-Free")
	v.SetDefault("scan.text_model", "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free")

	// Rate limit and breaker defaults
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.open_timeout", "60s")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                        "RXSCAN_SERVER_PORT",
		"server.read_timeout":                "RXSCAN_SERVER_READ_TIMEOUT",
		"server.write_timeout":               "RXSCAN_SERVER_WRITE_TIMEOUT",
		"server.environment":                 "RXSCAN_SERVER_ENVIRONMENT",
		"db.host":                            "RXSCAN_DB_HOST",
		"db.port":                            "RXSCAN_DB_PORT",
		"db.user":                            "RXSCAN_DB_USER",
		"db.password":                        "RXSCAN_DB_PASSWORD",
		"db.name":                            "RXSCAN_DB_NAME",
		"db.sslmode":                         "RXSCAN_DB_SSLMODE",
		"db.max_open":                        "RXSCAN_DB_MAX_OPEN",
		"db.max_idle":                        "RXSCAN_DB_MAX_IDLE",
		"store.backend":                      "RXSCAN_STORE_BACKEND",
		"firestore.project_id":               "RXSCAN_FIRESTORE_PROJECT_ID",
		"firestore.collection":               "RXSCAN_FIRESTORE_COLLECTION",
		"image_host.backend":                 "RXSCAN_IMAGE_HOST_BACKEND",
		"s3.region":                          "RXSCAN_S3_REGION",
		"s3.bucket":                          "RXSCAN_S3_BUCKET",
		"s3.endpoint":                        "RXSCAN_S3_ENDPOINT",
		"s3.access_key":                      "RXSCAN_S3_ACCESS_KEY",
		"s3.secret_key":                      "RXSCAN_S3_SECRET_KEY",
		"s3.presign_expiry":                  "RXSCAN_S3_PRESIGN_EXPIRY",
		"gcs.bucket":                         "RXSCAN_GCS_BUCKET",
		"gcs.credentials_file":               "RXSCAN_GCS_CREDENTIALS_FILE",
		"log.level":                          "RXSCAN_LOG_LEVEL",
		"log.format":                         "RXSCAN_LOG_FORMAT",
		"completion.primary.provider":        "RXSCAN_COMPLETION_PRIMARY_PROVIDER",
		"completion.primary.api_key":         "RXSCAN_COMPLETION_PRIMARY_API_KEY",
		"completion.primary.default_model":   "RXSCAN_COMPLETION_PRIMARY_DEFAULT_MODEL",
		"completion.primary.endpoint":        "RXSCAN_COMPLETION_PRIMARY_ENDPOINT",
		"completion.primary.stream":          "RXSCAN_COMPLETION_PRIMARY_STREAM",
		"completion.primary.project":         "RXSCAN_COMPLETION_PRIMARY_PROJECT",
		"completion.primary.location":        "RXSCAN_COMPLETION_PRIMARY_LOCATION",
		"completion.primary.timeout_secs":    "RXSCAN_COMPLETION_PRIMARY_TIMEOUT_SECS",
		"completion.secondary.provider":      "RXSCAN_COMPLETION_SECONDARY_PROVIDER",
		"completion.secondary.api_key":       "RXSCAN_COMPLETION_SECONDARY_API_KEY",
		"completion.secondary.default_model": "RXSCAN_COMPLETION_SECONDARY_DEFAULT_MODEL",
		"completion.secondary.endpoint":      "RXSCAN_COMPLETION_SECONDARY_ENDPOINT",
		"completion.secondary.stream":        "RXSCAN_COMPLETION_SECONDARY_STREAM",
		"completion.secondary.project":       "RXSCAN_COMPLETION_SECONDARY_PROJECT",
		"completion.secondary.location":      "RXSCAN_COMPLETION_SECONDARY_LOCATION",
		"completion.secondary.timeout_secs":  "RXSCAN_COMPLETION_SECONDARY_TIMEOUT_SECS",
		"completion.tertiary.provider":       "RXSCAN_COMPLETION_TERTIARY_PROVIDER",
		"completion.tertiary.api_key":        "RXSCAN_COMPLETION_TERTIARY_API_KEY",
		"completion.tertiary.default_model":  "RXSCAN_COMPLETION_TERTIARY_DEFAULT_MODEL",
		"completion.tertiary.endpoint":       "RXSCAN_COMPLETION_TERTIARY_ENDPOINT",
		"completion.tertiary.stream":         "RXSCAN_COMPLETION_TERTIARY_STREAM",
		"completion.tertiary.project":        "RXSCAN_COMPLETION_TERTIARY_PROJECT",
		"completion.tertiary.location":       "RXSCAN_COMPLETION_TERTIARY_LOCATION",
		"completion.tertiary.timeout_secs":   "RXSCAN_COMPLETION_TERTIARY_TIMEOUT_SECS",
		"scan.product_attempts":              "RXSCAN_SCAN_PRODUCT_ATTEMPTS",
		"scan.bill_attempts":                 "RXSCAN_SCAN_BILL_ATTEMPTS",
		"scan.prescription_attempts":         "RXSCAN_SCAN_PRESCRIPTION_ATTEMPTS",
		"scan.max_upload_size_mb":            "RXSCAN_SCAN_MAX_UPLOAD_SIZE_MB",
		"scan.temperature":                   "RXSCAN_SCAN_TEMPERATURE",
		"scan.max_tokens":                    "RXSCAN_SCAN_MAX_TOKENS",
		"scan.vision_model":                  "RXSCAN_SCAN_VISION_MODEL",
		"scan.text_model":                    "RXSCAN_SCAN_TEXT_MODEL",
		"rate_limit.requests_per_second":     "RXSCAN_RATE_LIMIT_REQUESTS_PER_SECOND",
		"rate_limit.burst":                   "RXSCAN_RATE_LIMIT_BURST",
		"breaker.max_failures":               "RXSCAN_BREAKER_MAX_FAILURES",
		"breaker.open_timeout":               "RXSCAN_BREAKER_OPEN_TIMEOUT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Cloud Run and Render set PORT. Use it if RXSCAN_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("RXSCAN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Store = StoreConfig{Backend: strings.ToLower(v.GetString("store.backend"))}
	cfg.Firestore = FirestoreConfig{
		ProjectID:  v.GetString("firestore.project_id"),
		Collection: v.GetString("firestore.collection"),
	}
	cfg.ImageHost = ImageHostConfig{Backend: strings.ToLower(v.GetString("image_host.backend"))}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.GCS = GCSConfig{
		Bucket:          v.GetString("gcs.bucket"),
		CredentialsFile: v.GetString("gcs.credentials_file"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	provider := func(prefix string) ProviderConfig {
		return ProviderConfig{
			Provider:     strings.ToLower(v.GetString(prefix + ".provider")),
			APIKey:       v.GetString(prefix + ".api_key"),
			DefaultModel: v.GetString(prefix + ".default_model"),
			Endpoint:     v.GetString(prefix + ".endpoint"),
			Stream:       v.GetBool(prefix + ".stream"),
			Project:      v.GetString(prefix + ".project"),
			Location:     v.GetString(prefix + ".location"),
			TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
		}
	}
	cfg.Completion = CompletionConfig{
		Primary:   provider("completion.primary"),
		Secondary: provider("completion.secondary"),
		Tertiary:  provider("completion.tertiary"),
	}

	cfg.Scan = ScanConfig{
		ProductAttempts:      v.GetInt("scan.product_attempts"),
		BillAttempts:         v.GetInt("scan.bill_attempts"),
		PrescriptionAttempts: v.GetInt("scan.prescription_attempts"),
		MaxUploadSizeMB:      v.GetInt64("scan.max_upload_size_mb"),
		Temperature:          v.GetFloat64("scan.temperature"),
		MaxTokens:            v.GetInt("scan.max_tokens"),
		VisionModel:          v.GetString("scan.vision_model"),
		TextModel:            v.GetString("scan.text_model"),
	}
	cfg.RateLimit = RateLimitConfig{
		RequestsPerSecond: v.GetFloat64("rate_limit.requests_per_second"),
		Burst:             v.GetInt("rate_limit.burst"),
	}
	cfg.Breaker = BreakerConfig{
		MaxFailures: v.GetUint32("breaker.max_failures"),
		OpenTimeout: v.GetDuration("breaker.open_timeout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
