package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	RunMigrations   bool
	JWTSecret       string
	SessionTTL      time.Duration
	AllowOrigins    []string
	FrontendBaseURL string

	LogLevel        string
	LogstashTCPAddr string

	MinIOEndpoint       string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOUseSSL         bool
	MinIOBucketUsers    string
	MinIOBucketProjects string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTimeout  time.Duration

	TokenBackend         string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	PasswordResetTTL     time.Duration
	EmailVerificationTTL time.Duration
	TokenCleanupSchedule string

	AcademicEmailDomains []string
	PasswordMinLength    int
	AvatarMaxBytes       int64
	DocumentMaxBytes     int64
	AvatarMaxDimension   int
	FFmpegPath           string

	AuthRateLimit float64
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	return Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     must("DATABASE_URL"),
		RunMigrations:   getenv("RUN_MIGRATIONS", "true") == "true",
		JWTSecret:       must("JWT_SECRET"),
		SessionTTL:      duration("SESSION_TTL", 24*time.Hour),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*"), "*"),
		FrontendBaseURL: getenv("FRONTEND_BASE_URL", "https://sci-com.org"),

		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),

		MinIOEndpoint:       must("MINIO_ENDPOINT"),
		MinIOAccessKey:      must("MINIO_ACCESS_KEY"),
		MinIOSecretKey:      must("MINIO_SECRET_KEY"),
		MinIOUseSSL:         getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucketUsers:    getenv("MINIO_BUCKET_USERS", "scicom-users"),
		MinIOBucketProjects: getenv("MINIO_BUCKET_PROJECTS", "scicom-projects"),

		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", "noreply@sci-com.org"),
		SMTPTimeout:  duration("SMTP_TIMEOUT", 10*time.Second),

		TokenBackend:         strings.ToLower(getenv("TOKEN_BACKEND", "postgres")),
		RedisAddr:            getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getenv("REDIS_PASSWORD", ""),
		RedisDB:              integer("REDIS_DB", 0),
		PasswordResetTTL:     duration("PASSWORD_RESET_TTL", time.Hour),
		EmailVerificationTTL: duration("EMAIL_VERIFICATION_TTL", 72*time.Hour),
		TokenCleanupSchedule: getenv("TOKEN_CLEANUP_SCHEDULE", "@every 15m"),

		AcademicEmailDomains: splitAndTrim(getenv("ACADEMIC_EMAIL_DOMAINS", ".edu,.ac.uk,uni-muenchen.de,tum.de,fu-berlin.de,hu-berlin.de,tu-berlin.de,uni-heidelberg.de,rwth-aachen.de,kit.edu"), ""),
		PasswordMinLength:    integer("PASSWORD_MIN_LENGTH", 10),
		AvatarMaxBytes:       int64(integer("AVATAR_MAX_BYTES", 5*1024*1024)),
		DocumentMaxBytes:     int64(integer("DOCUMENT_MAX_BYTES", 10*1024*1024)),
		AvatarMaxDimension:   integer("AVATAR_MAX_DIMENSION", 512),
		FFmpegPath:           getenv("FFMPEG_PATH", "ffmpeg"),

		AuthRateLimit: number("AUTH_RATE_LIMIT", 5),
	}
}

func splitAndTrim(input, fallback string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 && fallback != "" {
		return []string{fallback}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func duration(k string, d time.Duration) time.Duration {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	if raw == "0" {
		return 0
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		log.Printf("Warning: invalid duration for %s=%q, using %s", k, raw, d)
		return d
	}
	return v
}

func integer(k string, d int) int {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Printf("Warning: invalid integer for %s=%q, using %d", k, raw, d)
		return d
	}
	return v
}

func number(k string, d float64) float64 {
	raw := os.Getenv(k)
	if raw == "" {
		return d
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		log.Printf("Warning: invalid number for %s=%q, using %v", k, raw, d)
		return d
	}
	return v
}
