package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	JWTSecret       string
	BcryptCost      int
	SessionDuration time.Duration
	NonceDuration   time.Duration
	ResetDuration   time.Duration

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	CodegenBaseURL string
	CodegenAPIKey  string
	CodegenModel   string

	SeedUserEmail     string
	SeedUserPassword  string
	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./tenxdev.db"),
		DatabaseURL:    getEnv("DB_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		BcryptCost:      getEnvInt("BCRYPT_COST", 10),
		SessionDuration: getEnvDuration("SESSION_TTL", 24*time.Hour),
		NonceDuration:   getEnvDuration("NONCE_TTL", 5*time.Minute),
		ResetDuration:   getEnvDuration("RESET_TTL", time.Hour),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "TenX Dev"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:3000"),

		CodegenBaseURL: getEnv("CODEGEN_BASE_URL", "https://api.openai.com/v1"),
		CodegenAPIKey:  getEnv("CODEGEN_API_KEY", ""),
		CodegenModel:   getEnv("CODEGEN_MODEL", "gpt-4o-mini"),

		SeedUserEmail:     getEnv("SEED_USER_EMAIL", ""),
		SeedUserPassword:  getEnv("SEED_USER_PASSWORD", ""),
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
