package config

import (
	"github.com/joho/godotenv"
	"log"
	"os"
	"strconv"
	"time"
)

type Server struct {
	Port            int
	ShutdownTimeout time.Duration
	SessionIdleTTL  time.Duration
}

type DB struct {
	DbHOST     string
	DbPORT     string
	DbUSER     string
	DbPASSWORD string
	DbNAME     string
	DbSSLMODE  string
}

type MinIO struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	Region     string
	URLExpiry  time.Duration
}

type NATS struct {
	URL    string
	Bucket string
}

type Feed struct {
	PageSize       int
	PageStep       int
	ImageCacheSize int
	TimeZone       string
}

type Config struct {
	Server          Server
	DB              DB
	MinIO           MinIO
	NATS            NATS
	Feed            Feed
	DocstoreBackend string
	JWTSecretKey    string
	MaxUploadSize   int64
}

const (
	BackendPostgres = "postgres"
	BackendNATS     = "nats"
)

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

func LoadServer() Server {
	return Server{
		Port:            getEnvAsInt("SERVER_PORT", 8080),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
		SessionIdleTTL:  parseDuration(getEnv("SESSION_IDLE_TTL", "30m"), 30*time.Minute),
	}
}

func LoadDB() DB {
	return DB{
		DbHOST:     getEnv("DB_HOST", "localhost"),
		DbPORT:     getEnv("DB_PORT", "5432"),
		DbUSER:     getEnv("DB_USER", "postgres"),
		DbPASSWORD: getEnv("DB_PASSWORD", "password"),
		DbNAME:     getEnv("DB_NAME", "community"),
		DbSSLMODE:  getEnv("DB_SSLMODE", "disable"),
	}
}

func LoadMinIO() MinIO {
	return MinIO{
		Endpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		BucketName: getEnv("MINIO_BUCKET_NAME", "community"),
		UseSSL:     getEnvBool("MINIO_USE_SSL", false),
		Region:     getEnv("MINIO_REGION", "us-east-1"),
		URLExpiry:  parseDuration(getEnv("MINIO_URL_EXPIRY", "24h"), 24*time.Hour),
	}
}

func LoadNATS() NATS {
	return NATS{
		URL:    getEnv("NATS_URL", "nats://localhost:4222"),
		Bucket: getEnv("NATS_KV_BUCKET", "community_documents"),
	}
}

func LoadFeed() Feed {
	return Feed{
		PageSize:       getEnvAsInt("FEED_PAGE_SIZE", 5),
		PageStep:       getEnvAsInt("FEED_PAGE_STEP", 5),
		ImageCacheSize: getEnvAsInt("IMAGE_CACHE_SIZE", 200),
		TimeZone:       getEnv("DISPLAY_TIMEZONE", "UTC"),
	}
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	return &Config{
		Server:          LoadServer(),
		DB:              LoadDB(),
		MinIO:           LoadMinIO(),
		NATS:            LoadNATS(),
		Feed:            LoadFeed(),
		DocstoreBackend: getEnv("DOCSTORE_BACKEND", BackendPostgres),
		JWTSecretKey:    getEnv("JWT_SECRET_KEY", ""),
		MaxUploadSize:   parseMaxUploadSize(getEnv("MAX_UPLOAD_SIZE", "10485760")),
	}
}

// Location resolves the display time zone, falling back to UTC.
func (f Feed) Location() *time.Location {
	loc, err := time.LoadLocation(f.TimeZone)
	if err != nil {
		log.Printf("Неизвестный часовой пояс %q, используется UTC", f.TimeZone)
		return time.UTC
	}
	return loc
}

func parseMaxUploadSize(value string) int64 {
	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 10 * 1024 * 1024
	}
	return size
}
