package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data sources for the shift store
const (
	DataSourcePostgres  = "postgres"
	DataSourceFirestore = "firestore"
	DataSourceMemory    = "memory"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	MinIO     MinIOConfig
	CORS      CORSConfig
	SMTP      SMTPConfig
	Firebase  FirebaseConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Env        string
	Port       string
	DataSource string
	DocsPath   string // pre-built swagger.json served at /docs/swagger.json
	TimeZone   string // used when formatting dates for people
}

// Location resolves TimeZone, falling back to UTC
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the app runs in production mode
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=" + d.TimeZone
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CORSConfig struct {
	Origins []string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
}

// Enabled reports whether Firebase services can be initialized
func (f FirebaseConfig) Enabled() bool {
	return f.CredentialsFile != "" || f.ProjectID != ""
}

// RateLimitConfig mirrors rate-limiter-flexible: points consumed per duration window
type RateLimitConfig struct {
	Points       int
	Duration     time.Duration
	AuthPoints   int
	AuthDuration time.Duration
}

type SchedulerConfig struct {
	Enabled        bool
	Interval       time.Duration
	ReminderWindow time.Duration
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:        getEnv("APP_ENV", "development"),
			Port:       getEnv("APP_PORT", "8080"),
			DataSource: strings.ToLower(getEnv("DATA_SOURCE", DataSourcePostgres)),
			DocsPath:   getEnv("DOCS_PATH", "./docs/swagger.json"),
			TimeZone:   getEnv("APP_TIMEZONE", "America/Sao_Paulo"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "finscale"),
			Password: getEnv("DB_PASSWORD", "finscale"),
			Name:     getEnv("DB_NAME", "finscale"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "America/Sao_Paulo"),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getDuration("JWT_EXPIRY", 24*time.Hour),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "finscale-avatars"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:8081,http://localhost:19006"), ","),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getInt("SMTP_PORT", 1025),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@finscale.app"),
			FromName: getEnv("SMTP_FROM_NAME", "Finscale"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		},
		RateLimit: RateLimitConfig{
			Points:       getInt("RATE_LIMIT_POINTS", 100),
			Duration:     getDuration("RATE_LIMIT_DURATION", time.Minute),
			AuthPoints:   getInt("AUTH_RATE_LIMIT_POINTS", 10),
			AuthDuration: getDuration("AUTH_RATE_LIMIT_DURATION", 15*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:        getBool("SCHEDULER_ENABLED", true),
			Interval:       getDuration("SCHEDULER_INTERVAL", time.Minute),
			ReminderWindow: getDuration("REMINDER_WINDOW", 24*time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}
