package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	AppPort    string
	AppMode    string
	Backend    string
	SQLitePath string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIKey        string
	TicketSecret  string
	TicketTTLMin  int
	RateLimitRPM  int
	MaxUploadSize int64
	UploadDir     string

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		AppMode:    getEnv("APP_MODE", "debug"),
		Backend:    getEnv("STORE_BACKEND", BackendSQLite),
		SQLitePath: getEnv("SQLITE_PATH", "hivechat.db"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "hivechat"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		APIKey:        getEnv("API_KEY", ""),
		TicketSecret:  getEnv("TICKET_SECRET", ""),
		TicketTTLMin:  getEnvAsInt("TICKET_TTL_MIN", 15),
		RateLimitRPM:  getEnvAsInt("RATE_LIMIT_RPM", 120),
		MaxUploadSize: int64(getEnvAsInt("MAX_UPLOAD_MB", 16)) << 20,
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),

		S3Region:    getEnv("S3_REGION", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
	}
}

// TicketTTL is the lifetime of a minted websocket ticket.
func (c *Config) TicketTTL() time.Duration {
	return time.Duration(c.TicketTTLMin) * time.Minute
}

// PostgresDSN builds the connection string consumed by pgxpool.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
