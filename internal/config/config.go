// Package config reads the service settings from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration shared by the API server, the
// worker and the CLI.
type Config struct {
	Address     string `yaml:"address"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	APIUsername string `yaml:"api_username"`
	APIPassword string `yaml:"api_password"`

	SigningSecret string        `yaml:"signing_secret"`
	SignedURLTTL  time.Duration `yaml:"signed_url_ttl"`
	MediaBaseURL  string        `yaml:"media_base_url"`

	MaxFileSize   int64 `yaml:"max_file_size"`
	UploadWorkers int   `yaml:"upload_workers"`
	ImportWorkers int   `yaml:"import_workers"`

	DatabaseURL string `yaml:"database_url"`

	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3UseSSL    bool   `yaml:"s3_use_ssl"`
	S3Region    string `yaml:"s3_region"`
	S3Bucket    string `yaml:"s3_bucket"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	QueueWorkers  int    `yaml:"queue_workers"`

	MeiliHost   string `yaml:"meili_host"`
	MeiliAPIKey string `yaml:"meili_api_key"`
	MeiliIndex  string `yaml:"meili_index"`

	GeminiAPIKey string   `yaml:"gemini_api_key"`
	GeminiModel  string   `yaml:"gemini_model"`
	GeminiRPS    float64  `yaml:"gemini_rps"`
	CopyVersions []string `yaml:"copy_versions"`

	ImportCSVPath  string `yaml:"import_csv_path"`
	ImportSchedule string `yaml:"import_schedule"`
}

const (
	defaultAddress       = ":8080"
	defaultEnvironment   = "development"
	defaultLogLevel      = "info"
	defaultSignedTTL     = 15 * time.Minute
	defaultMediaBaseURL  = "http://localhost:8080/media"
	defaultMaxFileSize   = 10 << 20 // 10 MiB
	defaultUploadWorkers = 4
	defaultImportWorkers = 4
	defaultQueueWorkers  = 2
	defaultS3Region      = "us-east-1"
	defaultS3Bucket      = "property-images"
	defaultRedisAddr     = "localhost:6379"
	defaultMeiliIndex    = "properties"
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiRPS     = 1
	defaultCopyVersions  = "professional,luxury,concise"
	defaultSchedule      = "0 3 * * *"
)

// Load builds the configuration. When REALESTATE_CONFIG names a YAML file
// its values replace the defaults; environment variables win over both.
func Load() (*Config, error) {
	cfg := defaults()
	if path := readEnv("REALESTATE_CONFIG", ""); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if cfg.SigningSecret == "" {
		cfg.SigningSecret = randomSecret()
	}
	if cfg.UploadWorkers <= 0 {
		cfg.UploadWorkers = defaultUploadWorkers
	}
	if cfg.ImportWorkers <= 0 {
		cfg.ImportWorkers = defaultImportWorkers
	}
	if cfg.QueueWorkers <= 0 {
		cfg.QueueWorkers = defaultQueueWorkers
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedTTL
	}
	if cfg.GeminiRPS <= 0 {
		cfg.GeminiRPS = defaultGeminiRPS
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Address:        defaultAddress,
		Environment:    defaultEnvironment,
		LogLevel:       defaultLogLevel,
		SignedURLTTL:   defaultSignedTTL,
		MediaBaseURL:   defaultMediaBaseURL,
		MaxFileSize:    defaultMaxFileSize,
		UploadWorkers:  defaultUploadWorkers,
		ImportWorkers:  defaultImportWorkers,
		QueueWorkers:   defaultQueueWorkers,
		S3Region:       defaultS3Region,
		S3Bucket:       defaultS3Bucket,
		RedisAddr:      defaultRedisAddr,
		MeiliIndex:     defaultMeiliIndex,
		GeminiModel:    defaultGeminiModel,
		GeminiRPS:      defaultGeminiRPS,
		CopyVersions:   splitList(defaultCopyVersions),
		ImportSchedule: defaultSchedule,
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Address = readEnv("REALESTATE_ADDRESS", cfg.Address)
	cfg.Environment = readEnv("APP_ENV", cfg.Environment)
	cfg.LogLevel = readEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.APIUsername = readEnv("API_USERNAME", cfg.APIUsername)
	cfg.APIPassword = readEnv("API_PASSWORD", cfg.APIPassword)

	cfg.SigningSecret = readEnv("REALESTATE_SIGNING_SECRET", cfg.SigningSecret)
	cfg.SignedURLTTL = parseDuration("REALESTATE_SIGNED_TTL", cfg.SignedURLTTL)
	cfg.MediaBaseURL = readEnv("REALESTATE_MEDIA_BASE_URL", cfg.MediaBaseURL)

	cfg.MaxFileSize = parseInt64("REALESTATE_MAX_FILE_BYTES", cfg.MaxFileSize)
	cfg.UploadWorkers = parseInt("REALESTATE_UPLOAD_WORKERS", cfg.UploadWorkers)
	cfg.ImportWorkers = parseInt("REALESTATE_IMPORT_WORKERS", cfg.ImportWorkers)

	cfg.DatabaseURL = readEnv("DATABASE_URL", cfg.DatabaseURL)

	cfg.S3Endpoint = readEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKey = readEnv("S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = readEnv("S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3UseSSL = parseBool("S3_USE_SSL", cfg.S3UseSSL)
	cfg.S3Region = readEnv("S3_REGION", cfg.S3Region)
	cfg.S3Bucket = readEnv("S3_BUCKET", cfg.S3Bucket)

	cfg.RedisAddr = readEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = readEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = parseInt("REDIS_DB", cfg.RedisDB)
	cfg.QueueWorkers = parseInt("REALESTATE_QUEUE_WORKERS", cfg.QueueWorkers)

	cfg.MeiliHost = readEnv("MEILI_HOST", cfg.MeiliHost)
	cfg.MeiliAPIKey = readEnv("MEILI_API_KEY", cfg.MeiliAPIKey)
	cfg.MeiliIndex = readEnv("MEILI_INDEX", cfg.MeiliIndex)

	cfg.GeminiAPIKey = readEnv("GOOGLE_AI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = readEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiRPS = parseFloat("GEMINI_RPS", cfg.GeminiRPS)
	if v := readEnv("REALESTATE_COPY_VERSIONS", ""); v != "" {
		cfg.CopyVersions = splitList(v)
	}

	cfg.ImportCSVPath = readEnv("REALESTATE_IMPORT_CSV", cfg.ImportCSVPath)
	cfg.ImportSchedule = readEnv("REALESTATE_IMPORT_SCHEDULE", cfg.ImportSchedule)
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Invalid numeric values fall back to the current setting.
func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "fallbacksecret"
	}
	return string(buf)
}
