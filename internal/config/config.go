package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is read once at startup from the environment (and .env when present).
type Config struct {
	Port              string
	Environment       string
	BaseURL           string
	UploadDir         string
	AllowRegistration bool
	CORSOrigins       []string

	DBDriver       string // mysql | sqlite
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int

	JWTSecret    string
	RedisAddress string // empty disables distributed locking
	GeminiAPIKey string
	LogLevel     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logg.Info("no .env file found, using process environment")
	}

	port := getEnv("PORT", "8080")
	cfg := &Config{
		Port:              port,
		Environment:       getEnv("ENVIRONMENT", "development"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:"+port),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		AllowRegistration: getEnv("ALLOW_REGISTRATION", "false") == "true",
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		DBDriver:          getEnv("DB_DRIVER", "mysql"),
		DBDSN:             os.Getenv("DB_DSN"),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		RedisAddress:      os.Getenv("REDIS_ADDRESS"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	SetLogLevel(cfg.LogLevel)
	return cfg
}

// IsProduction reports whether verbose SQL logging and open registration must stay off.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
