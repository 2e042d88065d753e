package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverS3       = "s3"
	DriverSupabase = "supabase"
	DriverMemory   = "memory"

	SessionJWT      = "jwt"
	SessionSupabase = "supabase"
)

type Config struct {
	// Server
	Port        string
	Environment string
	BaseURL     string

	ObjectStore ObjectStoreConfig
	Supabase    SupabaseConfig
	Session     SessionConfig
	Detection   DetectionConfig
	Limits      LimitsConfig

	// Database (empty keeps the metadata cache in memory)
	DatabaseURL string
}

type ObjectStoreConfig struct {
	Driver          string
	Endpoint        string
	Port            int
	UseSSL          bool
	AccessKey       string
	SecretKey       string
	Region          string
	UploadBucket    string
	ProcessedBucket string
}

type SupabaseConfig struct {
	URL            string
	PublishableKey string
	JWTSecret      string
}

type SessionConfig struct {
	Provider   string
	CookieName string
}

type DetectionConfig struct {
	BaseURL        string
	TrafficBaseURL string
	Timeout        time.Duration
}

type LimitsConfig struct {
	MaxFileCount   int
	MaxTotalBytes  int64
	AlertDismissMs int
}

// PublicConfig is the subset of configuration safe to hand to the browser.
type PublicConfig struct {
	Endpoint        string `json:"endpoint"`
	Port            int    `json:"port"`
	UseSSL          bool   `json:"useSSL"`
	UploadBucket    string `json:"uploadBucket"`
	ProcessedBucket string `json:"processedBucket"`
	MaxFileCount    int    `json:"maxFileCount"`
	MaxTotalBytes   int64  `json:"maxTotalBytes"`
	AlertDismissMs  int    `json:"alertDismissMs"`
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		BaseURL:     v.GetString("BASE_URL"),

		ObjectStore: ObjectStoreConfig{
			Driver:          strings.ToLower(v.GetString("OBJECT_STORE_DRIVER")),
			Endpoint:        v.GetString("MINIO_ENDPOINT"),
			Port:            v.GetInt("MINIO_PORT"),
			UseSSL:          v.GetBool("MINIO_USE_SSL"),
			AccessKey:       v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:       v.GetString("MINIO_SECRET_KEY"),
			Region:          v.GetString("MINIO_REGION"),
			UploadBucket:    v.GetString("UPLOAD_BUCKET"),
			ProcessedBucket: v.GetString("PROCESSED_BUCKET"),
		},
		Supabase: SupabaseConfig{
			URL:            v.GetString("SUPABASE_URL"),
			PublishableKey: v.GetString("SUPABASE_PUBLISHABLE_KEY"),
			JWTSecret:      v.GetString("SUPABASE_JWT_SECRET"),
		},
		Session: SessionConfig{
			Provider:   strings.ToLower(v.GetString("SESSION_PROVIDER")),
			CookieName: v.GetString("SESSION_COOKIE"),
		},
		Detection: DetectionConfig{
			BaseURL:        v.GetString("DETECTION_BASE_URL"),
			TrafficBaseURL: v.GetString("TRAFFIC_DETECTION_BASE_URL"),
			Timeout:        v.GetDuration("DETECTION_TIMEOUT"),
		},
		Limits: LimitsConfig{
			MaxFileCount:   v.GetInt("MAX_FILE_COUNT"),
			MaxTotalBytes:  v.GetInt64("MAX_TOTAL_BYTES"),
			AlertDismissMs: v.GetInt("ALERT_DISMISS_MS"),
		},

		DatabaseURL: v.GetString("DATABASE_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("BASE_URL", "http://localhost:8080")

	v.SetDefault("OBJECT_STORE_DRIVER", DriverS3)
	v.SetDefault("MINIO_ENDPOINT", "localhost")
	v.SetDefault("MINIO_PORT", 9000)
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("UPLOAD_BUCKET", "sitesense-uploads")
	v.SetDefault("PROCESSED_BUCKET", "sitesense-processed")

	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_PUBLISHABLE_KEY", "")
	v.SetDefault("SUPABASE_JWT_SECRET", "")

	v.SetDefault("SESSION_PROVIDER", SessionJWT)
	v.SetDefault("SESSION_COOKIE", "sitesense_session")

	v.SetDefault("DETECTION_BASE_URL", "http://localhost:8000")
	v.SetDefault("TRAFFIC_DETECTION_BASE_URL", "http://localhost:8001")
	v.SetDefault("DETECTION_TIMEOUT", 5*time.Minute)

	v.SetDefault("MAX_FILE_COUNT", 10)
	v.SetDefault("MAX_TOTAL_BYTES", int64(500*1024*1024))
	v.SetDefault("ALERT_DISMISS_MS", 5000)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CONFIG_FILE", "")
}

func (c *Config) Validate() error {
	switch c.ObjectStore.Driver {
	case DriverS3:
		if c.ObjectStore.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required")
		}
		if c.ObjectStore.Port <= 0 {
			return fmt.Errorf("MINIO_PORT must be positive")
		}
	case DriverSupabase:
		if c.Supabase.URL == "" || c.Supabase.PublishableKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_PUBLISHABLE_KEY are required for the supabase storage driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown OBJECT_STORE_DRIVER %q", c.ObjectStore.Driver)
	}

	if c.ObjectStore.UploadBucket == "" || c.ObjectStore.ProcessedBucket == "" {
		return fmt.Errorf("UPLOAD_BUCKET and PROCESSED_BUCKET are required")
	}

	switch c.Session.Provider {
	case SessionJWT:
		if c.Supabase.JWTSecret == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required for the jwt session provider")
		}
	case SessionSupabase:
		if c.Supabase.URL == "" || c.Supabase.PublishableKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_PUBLISHABLE_KEY are required for the supabase session provider")
		}
	default:
		return fmt.Errorf("unknown SESSION_PROVIDER %q", c.Session.Provider)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE is required")
	}

	if c.Detection.BaseURL == "" {
		return fmt.Errorf("DETECTION_BASE_URL is required")
	}
	if c.Limits.MaxFileCount <= 0 || c.Limits.MaxTotalBytes <= 0 {
		return fmt.Errorf("upload limits must be positive")
	}
	return nil
}

// ObjectBaseURL is the scheme://host:port prefix of public object URLs.
func (o ObjectStoreConfig) ObjectBaseURL() string {
	scheme := "http"
	if o.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.Endpoint, o.Port)
}

func (c *Config) Public() PublicConfig {
	return PublicConfig{
		Endpoint:        c.ObjectStore.Endpoint,
		Port:            c.ObjectStore.Port,
		UseSSL:          c.ObjectStore.UseSSL,
		UploadBucket:    c.ObjectStore.UploadBucket,
		ProcessedBucket: c.ObjectStore.ProcessedBucket,
		MaxFileCount:    c.Limits.MaxFileCount,
		MaxTotalBytes:   c.Limits.MaxTotalBytes,
		AlertDismissMs:  c.Limits.AlertDismissMs,
	}
}
