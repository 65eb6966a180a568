package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	httpadapter "github.com/majidtwaha5-svg/maijjd-backend/internal/adapters/http"
)

const minJWTSecretBytes = 32

// Config is the resolved runtime configuration.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID   string
	Environment string

	HTTPPort          int
	GRPCPort          int
	WorkerMetricsPort int

	DatabaseURL   string
	DBMaxConns    int
	RunMigrations bool
	RedisURL      string

	JWTSecret         string
	AllowEphemeralJWT bool

	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	AdminAccessTokenTTL  time.Duration
	AdminRefreshTokenTTL time.Duration

	AdminCreationKey       string
	BcryptCost             int
	FailedLoginThreshold   int
	LockoutDuration        time.Duration
	VerifyAttemptThreshold int
	FrontendBaseURL        string
	CORSAllowedOrigins     []string
	TrustedProxies         []string

	SMTP SMTPSettings
	SMS  SMSSettings

	NotifyBufferSize int
	NotifyWorkers    int

	KafkaBrokers     []string
	KafkaTopicPrefix string
	KafkaTopics      map[string]string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int

	LogLevel string
	LogFile  string
}

type SMTPSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	MaxConns int    `yaml:"max_conns"`
}

type SMSSettings struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	From   string `yaml:"from"`
}

func (c Config) Production() bool {
	return c.Environment == "production"
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID                string `yaml:"id"`
		Environment       string `yaml:"environment"`
		HTTPPort          int    `yaml:"http_port"`
		GRPCPort          int    `yaml:"grpc_port"`
		WorkerMetricsPort int    `yaml:"worker_metrics_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL   string   `yaml:"postgres_url"`
		MaxConns      int      `yaml:"max_conns"`
		RunMigrations *bool    `yaml:"run_migrations"`
		RedisURL      string   `yaml:"redis_url"`
		KafkaBrokers  []string `yaml:"kafka_brokers"`
	} `yaml:"dependencies"`
	Auth struct {
		AccessTokenTTL         time.Duration `yaml:"access_token_ttl"`
		RefreshTokenTTL        time.Duration `yaml:"refresh_token_ttl"`
		AdminAccessTokenTTL    time.Duration `yaml:"admin_access_token_ttl"`
		AdminRefreshTokenTTL   time.Duration `yaml:"admin_refresh_token_ttl"`
		BcryptCost             int           `yaml:"bcrypt_cost"`
		FailedLoginThreshold   int           `yaml:"failed_login_threshold"`
		LockoutDuration        time.Duration `yaml:"lockout_duration"`
		VerifyAttemptThreshold int           `yaml:"verify_attempt_threshold"`
		FrontendBaseURL        string        `yaml:"frontend_base_url"`
	} `yaml:"auth"`
	HTTP struct {
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		TrustedProxies     []string `yaml:"trusted_proxies"`
	} `yaml:"http"`
	Notifications struct {
		BufferSize int          `yaml:"buffer_size"`
		Workers    int          `yaml:"workers"`
		SMTP       SMTPSettings `yaml:"smtp"`
		SMS        SMSSettings  `yaml:"sms"`
	} `yaml:"notifications"`
	Kafka struct {
		TopicPrefix string            `yaml:"topic_prefix"`
		Topics      map[string]string `yaml:"topics"`
	} `yaml:"kafka"`
	Outbox struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		BatchSize    int           `yaml:"batch_size"`
		ClaimTTL     time.Duration `yaml:"claim_ttl"`
		MaxRetries   int           `yaml:"max_retries"`
	} `yaml:"outbox"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

func defaultConfig() Config {
	return Config{
		ServiceID:              "maijjd-auth",
		Environment:            "development",
		HTTPPort:               5001,
		GRPCPort:               9090,
		WorkerMetricsPort:      9102,
		DBMaxConns:             20,
		RunMigrations:          true,
		AccessTokenTTL:         12 * time.Hour,
		RefreshTokenTTL:        14 * 24 * time.Hour,
		AdminAccessTokenTTL:    24 * time.Hour,
		AdminRefreshTokenTTL:   7 * 24 * time.Hour,
		BcryptCost:             12,
		FailedLoginThreshold:   5,
		LockoutDuration:        15 * time.Minute,
		VerifyAttemptThreshold: 5,
		FrontendBaseURL:        "http://localhost:3000",
		CORSAllowedOrigins:     []string{"*"},
		NotifyBufferSize:       256,
		NotifyWorkers:          2,
		KafkaTopicPrefix:       "maijjd.auth.",
		OutboxPollInterval:     2 * time.Second,
		OutboxBatchSize:        100,
		OutboxClaimTTL:         30 * time.Second,
		OutboxMaxRetries:       5,
		LogLevel:               "info",
	}
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// A .env file in the working directory is loaded first and never overrides
// variables already set in the process environment.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	setString(&cfg.ServiceID, f.Service.ID)
	setString(&cfg.Environment, f.Service.Environment)
	setInt(&cfg.HTTPPort, f.Service.HTTPPort)
	setInt(&cfg.GRPCPort, f.Service.GRPCPort)
	setInt(&cfg.WorkerMetricsPort, f.Service.WorkerMetricsPort)

	setString(&cfg.DatabaseURL, f.Dependencies.PostgresURL)
	setInt(&cfg.DBMaxConns, f.Dependencies.MaxConns)
	if f.Dependencies.RunMigrations != nil {
		cfg.RunMigrations = *f.Dependencies.RunMigrations
	}
	setString(&cfg.RedisURL, f.Dependencies.RedisURL)
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}

	setDuration(&cfg.AccessTokenTTL, f.Auth.AccessTokenTTL)
	setDuration(&cfg.RefreshTokenTTL, f.Auth.RefreshTokenTTL)
	setDuration(&cfg.AdminAccessTokenTTL, f.Auth.AdminAccessTokenTTL)
	setDuration(&cfg.AdminRefreshTokenTTL, f.Auth.AdminRefreshTokenTTL)
	setInt(&cfg.BcryptCost, f.Auth.BcryptCost)
	setInt(&cfg.FailedLoginThreshold, f.Auth.FailedLoginThreshold)
	setDuration(&cfg.LockoutDuration, f.Auth.LockoutDuration)
	setInt(&cfg.VerifyAttemptThreshold, f.Auth.VerifyAttemptThreshold)
	setString(&cfg.FrontendBaseURL, f.Auth.FrontendBaseURL)
	if len(f.HTTP.CORSAllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = f.HTTP.CORSAllowedOrigins
	}
	if len(f.HTTP.TrustedProxies) > 0 {
		cfg.TrustedProxies = f.HTTP.TrustedProxies
	}

	setInt(&cfg.NotifyBufferSize, f.Notifications.BufferSize)
	setInt(&cfg.NotifyWorkers, f.Notifications.Workers)
	cfg.SMTP = f.Notifications.SMTP
	cfg.SMS = f.Notifications.SMS

	setString(&cfg.KafkaTopicPrefix, f.Kafka.TopicPrefix)
	if len(f.Kafka.Topics) > 0 {
		cfg.KafkaTopics = f.Kafka.Topics
	}

	setDuration(&cfg.OutboxPollInterval, f.Outbox.PollInterval)
	setInt(&cfg.OutboxBatchSize, f.Outbox.BatchSize)
	setDuration(&cfg.OutboxClaimTTL, f.Outbox.ClaimTTL)
	setInt(&cfg.OutboxMaxRetries, f.Outbox.MaxRetries)

	setString(&cfg.LogLevel, f.Logging.Level)
	setString(&cfg.LogFile, f.Logging.File)
}

func applyEnv(cfg *Config) {
	cfg.Environment = strings.ToLower(envOrDefault("ENVIRONMENT", envOrDefault("NODE_ENV", cfg.Environment)))
	cfg.HTTPPort = envInt("HTTP_PORT", envInt("PORT", cfg.HTTPPort))
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.WorkerMetricsPort = envInt("WORKER_METRICS_PORT", cfg.WorkerMetricsPort)

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = envInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.RunMigrations = envBool("RUN_MIGRATIONS", cfg.RunMigrations)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)

	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.AllowEphemeralJWT = envBool("ALLOW_EPHEMERAL_JWT", cfg.AllowEphemeralJWT)
	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_HOURS", int(cfg.AccessTokenTTL.Hours()))) * time.Hour
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", int(cfg.RefreshTokenTTL.Hours()/24))) * 24 * time.Hour
	cfg.AdminAccessTokenTTL = time.Duration(envInt("ADMIN_ACCESS_TOKEN_TTL_HOURS", int(cfg.AdminAccessTokenTTL.Hours()))) * time.Hour
	cfg.AdminRefreshTokenTTL = time.Duration(envInt("ADMIN_REFRESH_TOKEN_TTL_DAYS", int(cfg.AdminRefreshTokenTTL.Hours()/24))) * 24 * time.Hour

	cfg.AdminCreationKey = envOrDefault("ADMIN_CREATION_KEY", cfg.AdminCreationKey)
	cfg.BcryptCost = envInt("BCRYPT_COST", cfg.BcryptCost)
	cfg.FailedLoginThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedLoginThreshold)
	cfg.LockoutDuration = time.Duration(envInt("LOCKOUT_DURATION_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.VerifyAttemptThreshold = envInt("VERIFY_ATTEMPT_THRESHOLD", cfg.VerifyAttemptThreshold)
	cfg.FrontendBaseURL = envOrDefault("FRONTEND_BASE_URL", envOrDefault("FRONTEND_URL", cfg.FrontendBaseURL))
	cfg.CORSAllowedOrigins = envCSV("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.TrustedProxies = envCSV("TRUSTED_PROXIES", cfg.TrustedProxies)

	cfg.SMTP.Host = envOrDefault("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = envInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = envOrDefault("SMTP_USER", cfg.SMTP.Username)
	cfg.SMTP.Password = envOrDefault("SMTP_PASS", cfg.SMTP.Password)
	cfg.SMTP.From = envOrDefault("SMTP_FROM", cfg.SMTP.From)
	cfg.SMTP.MaxConns = envInt("SMTP_MAX_CONNS", cfg.SMTP.MaxConns)
	cfg.SMS.URL = envOrDefault("SMS_GATEWAY_URL", cfg.SMS.URL)
	cfg.SMS.APIKey = envOrDefault("SMS_API_KEY", cfg.SMS.APIKey)
	cfg.SMS.From = envOrDefault("SMS_FROM", cfg.SMS.From)
	cfg.NotifyBufferSize = envInt("NOTIFY_BUFFER_SIZE", cfg.NotifyBufferSize)
	cfg.NotifyWorkers = envInt("NOTIFY_WORKERS", cfg.NotifyWorkers)

	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopicPrefix = envOrDefault("KAFKA_TOPIC_PREFIX", cfg.KafkaTopicPrefix)
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_INTERVAL_MS", int(cfg.OutboxPollInterval.Milliseconds()))) * time.Millisecond
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	cfg.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFile = envOrDefault("LOG_FILE", cfg.LogFile)
}

// Validate rejects configurations the service must not start with.
func (c Config) Validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "missing DATABASE_URL")
	}
	if c.Production() && c.RedisURL == "" {
		problems = append(problems, "missing REDIS_URL")
	}
	switch {
	case c.JWTSecret == "" && !c.AllowEphemeralJWT:
		problems = append(problems, "missing JWT_SECRET")
	case c.JWTSecret == "" && c.Production():
		problems = append(problems, "ephemeral JWT keys are not allowed in production")
	case c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretBytes:
		problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d bytes", minJWTSecretBytes))
	}
	if c.HTTPPort <= 0 || c.GRPCPort <= 0 {
		problems = append(problems, "ports must be positive")
	}
	if c.BcryptCost < 10 || c.BcryptCost > 31 {
		problems = append(problems, "BCRYPT_COST must be between 10 and 31")
	}
	if _, err := httpadapter.ParseTrustedProxies(c.TrustedProxies); err != nil {
		problems = append(problems, "TRUSTED_PROXIES: "+err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
