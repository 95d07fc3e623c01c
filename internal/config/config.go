package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centralizes configuration loaded from the environment.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	JWTSecret       string
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	MaxUploadBytes  int64
	DedupWindow     time.Duration
	PaymentSecret   string
	Storage         StorageConfig
	SMTP            SMTPConfig
}

// RateLimitConfig holds simple throttling limits.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// StorageConfig selects and configures the blob backends.
type StorageConfig struct {
	// ImageProvider is "s3", "r2" or "noop".
	ImageProvider string
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3PublicURL   string

	// Cloud-drive account used for document uploads.
	DriveAPIBase  string
	DriveEmail    string
	DrivePassword string
}

// SMTPConfig powers the contact-form mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Inbox    string
}

// Load reads environment variables and applies safe defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("invalid PORT")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is required")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	maxUpload, err := parseInt64Env("MAX_UPLOAD_BYTES", 100<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = maxUpload

	dedup, err := parseDurationEnv("DEDUP_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.DedupWindow = dedup

	cfg.PaymentSecret = getEnv("PAYMENT_SECRET", cfg.JWTSecret)

	cfg.Storage = StorageConfig{
		ImageProvider: strings.ToLower(strings.TrimSpace(getEnv("STORAGE_IMAGE_PROVIDER", "noop"))),
		S3Endpoint:    getEnv("STORAGE_S3_ENDPOINT", ""),
		S3Region:      getEnv("STORAGE_S3_REGION", "auto"),
		S3Bucket:      getEnv("STORAGE_S3_BUCKET", ""),
		S3AccessKey:   getEnv("STORAGE_S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("STORAGE_S3_SECRET_KEY", ""),
		S3PublicURL:   getEnv("STORAGE_S3_PUBLIC_URL", ""),
		DriveAPIBase:  getEnv("DRIVE_API_BASE", ""),
		DriveEmail:    getEnv("DRIVE_EMAIL", ""),
		DrivePassword: getEnv("DRIVE_PASSWORD", ""),
	}

	smtpPort, err := parseIntEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: getEnv("SMTP_USER", ""),
		Password: getEnv("SMTP_PASS", ""),
		Inbox:    getEnv("CONTACT_INBOX", getEnv("SMTP_USER", "")),
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return dur, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseInt64Env(key string, def int64) (int64, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
