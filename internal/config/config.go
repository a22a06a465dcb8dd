package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Geofence   GeofenceConfig
	Attendance AttendanceConfig
	LeaveReset LeaveResetConfig
	Storage    StorageConfig
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	Timezone    string
	CORSOrigins []string
}

// GeofenceConfig points at the YAML file describing onsite work sites.
type GeofenceConfig struct {
	SitesFile string
}

type AttendanceConfig struct {
	HalfDayHours        float64
	AutoApproveAfter    time.Duration
	AutoApproveInterval time.Duration
}

type LeaveResetConfig struct {
	RRule         string
	CarryForward  bool
	Concurrency   int
	CheckInterval time.Duration
	ProbationMode string
}

type StorageConfig struct {
	Type        string // "local" or "minio"
	BasePath    string
	BaseURL     string
	MaxFileSize int64

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        dbPort,
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "hris-attendance"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", false),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("APP_TIMEZONE", "Asia/Kolkata"),
		CORSOrigins: getEnvSlice("APP_CORS_ORIGINS"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	config.Geofence = GeofenceConfig{
		SitesFile: getEnv("GEOFENCE_SITES_FILE", "configs/sites.yaml"),
	}

	// Attendance configuration
	halfDayHours, err := strconv.ParseFloat(getEnv("ATTENDANCE_HALF_DAY_HOURS", "4"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_HALF_DAY_HOURS: %w", err)
	}
	autoApproveAfter, err := time.ParseDuration(getEnv("ATTENDANCE_AUTO_APPROVE_AFTER", "72h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_AUTO_APPROVE_AFTER: %w", err)
	}
	autoApproveInterval, err := time.ParseDuration(getEnv("ATTENDANCE_AUTO_APPROVE_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_AUTO_APPROVE_INTERVAL: %w", err)
	}

	config.Attendance = AttendanceConfig{
		HalfDayHours:        halfDayHours,
		AutoApproveAfter:    autoApproveAfter,
		AutoApproveInterval: autoApproveInterval,
	}

	// Leave reset configuration
	resetConcurrency, err := strconv.Atoi(getEnv("LEAVE_RESET_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_RESET_CONCURRENCY: %w", err)
	}
	resetCheckInterval, err := time.ParseDuration(getEnv("LEAVE_RESET_CHECK_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_RESET_CHECK_INTERVAL: %w", err)
	}

	config.LeaveReset = LeaveResetConfig{
		RRule:         getEnv("LEAVE_RESET_RRULE", "FREQ=YEARLY;BYMONTH=1;BYMONTHDAY=1"),
		CarryForward:  getEnvBool("LEAVE_RESET_CARRY_FORWARD", true),
		Concurrency:   resetConcurrency,
		CheckInterval: resetCheckInterval,
		ProbationMode: getEnv("LEAVE_PROBATION_MODE", "zero"),
	}

	// Storage configuration
	maxFileSize, err := strconv.ParseInt(getEnv("MAX_FILE_SIZE", "5242880"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE: %w", err)
	}

	config.Storage = StorageConfig{
		Type:           getEnv("STORAGE_TYPE", "local"),
		BasePath:       getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:        getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
		MaxFileSize:    maxFileSize,
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "leave-documents"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Attendance.HalfDayHours <= 0 {
		return fmt.Errorf("ATTENDANCE_HALF_DAY_HOURS must be positive")
	}
	if c.Attendance.AutoApproveAfter < 0 {
		return fmt.Errorf("ATTENDANCE_AUTO_APPROVE_AFTER must not be negative")
	}
	if c.LeaveReset.Concurrency < 1 {
		return fmt.Errorf("LEAVE_RESET_CONCURRENCY must be at least 1")
	}
	switch c.LeaveReset.ProbationMode {
	case "zero", "full":
	default:
		return fmt.Errorf("LEAVE_PROBATION_MODE must be one of: zero, full")
	}
	switch c.Storage.Type {
	case "local":
	case "minio":
		if c.Storage.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_TYPE=minio")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string = strings.Split(value, ",")
	return result
}
