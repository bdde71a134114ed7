package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application settings.
type Config struct {
	HTTPAddr           string        `yaml:"http_addr"`
	DBDriver           string        `yaml:"db_driver"`
	DBHost             string        `yaml:"db_host"`
	DBPort             string        `yaml:"db_port"`
	DBUser             string        `yaml:"db_user"`
	DBPassword         string        `yaml:"db_password"`
	DBName             string        `yaml:"db_name"`
	JWTSecret          string        `yaml:"jwt_secret"`
	LogLevel           string        `yaml:"log_level"`
	SMTPHost           string        `yaml:"smtp_host"`
	SMTPPort           int           `yaml:"smtp_port"`
	SMTPUsername       string        `yaml:"smtp_username"`
	SMTPPassword       string        `yaml:"smtp_password"`
	MailFrom           string        `yaml:"mail_from"`
	BaseURL            string        `yaml:"base_url"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	StorageDriver      string        `yaml:"storage_driver"`
	S3Region           string        `yaml:"s3_region"`
	S3Bucket           string        `yaml:"s3_bucket"`
	GCSProjectID       string        `yaml:"gcs_project_id"`
	GCSBucketName      string        `yaml:"gcs_bucket_name"`
	GCSCredentialsFile string        `yaml:"gcs_credentials_file"`
	LocalStoragePath   string        `yaml:"local_storage_path"`
	MediaURL           string        `yaml:"media_url"`
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	PostsPerPage       int           `yaml:"posts_per_page"`
	Debug              bool          `yaml:"debug"`
}

// AppConfig is the process-wide configuration, filled by Init.
var AppConfig Config

// Defaults returns the settings used when neither the config file nor the
// environment provides a value.
func Defaults() Config {
	return Config{
		HTTPAddr:           ":8080",
		DBDriver:           "mysql",
		DBPort:             "3306",
		LogLevel:           "info",
		SMTPPort:           465,
		MailFrom:           "noreply@yatube.local",
		BaseURL:            "http://localhost:8080",
		CORSAllowedOrigins: []string{"http://localhost:8080"},
		StorageDriver:      "local",
		S3Region:           "us-west-2",
		LocalStoragePath:   "./media",
		MediaURL:           "/media/",
		CacheTTL:           20 * time.Second,
		PostsPerPage:       10,
	}
}

// Init loads the configuration into AppConfig and sets the gin mode.
func Init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg, err := Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	AppConfig = cfg

	if AppConfig.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("running in debug mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Printf("config loaded: driver=%s storage=%s cache_ttl=%s",
		AppConfig.DBDriver, AppConfig.StorageDriver, AppConfig.CacheTTL)
}

// Load builds a Config from defaults, the optional YAML file at path and the
// environment, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.SMTPHost = getEnv("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = getEnvAsInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.MailFrom = getEnv("MAIL_FROM", cfg.MailFrom)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.StorageDriver = getEnv("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.GCSProjectID = getEnv("GCS_PROJECT_ID", cfg.GCSProjectID)
	cfg.GCSBucketName = getEnv("GCS_BUCKET_NAME", cfg.GCSBucketName)
	cfg.GCSCredentialsFile = getEnv("GCS_CREDENTIALS_FILE", cfg.GCSCredentialsFile)
	cfg.LocalStoragePath = getEnv("LOCAL_STORAGE_PATH", cfg.LocalStoragePath)
	cfg.MediaURL = getEnv("MEDIA_URL", cfg.MediaURL)
	cfg.CacheTTL = getEnvAsDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.PostsPerPage = getEnvAsInt("POSTS_PER_PAGE", cfg.PostsPerPage)
	cfg.Debug = getEnvAsBool("DEBUG", cfg.Debug)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports settings that make the server unable to start.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres":
		if c.DBHost == "" || c.DBPort == "" || c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("incomplete database settings for driver %q", c.DBDriver)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}

	switch c.StorageDriver {
	case "local":
		if c.LocalStoragePath == "" {
			return fmt.Errorf("LOCAL_STORAGE_PATH is empty")
		}
	case "s3":
		if c.S3Bucket == "" || c.S3Region == "" {
			return fmt.Errorf("incomplete S3 settings")
		}
	case "gcs":
		if c.GCSBucketName == "" || c.GCSProjectID == "" {
			return fmt.Errorf("incomplete GCS settings")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.PostsPerPage <= 0 {
		return fmt.Errorf("POSTS_PER_PAGE must be positive")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	return nil
}

// MySQLDSN is the go-sql-driver DSN for the configured database.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// PostgresDSN is the pgx connection string for the configured database.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
