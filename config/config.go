package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string
	Env  string

	MongoURI     string
	DatabaseName string

	JWTSecret string

	B2ApplicationKeyID string
	B2ApplicationKey   string
	B2BucketName       string

	MaxFileSize int64

	ShutdownTimeout time.Duration

	AllowedOrigins []string
}

// Load reads configuration from the environment and returns it; nothing
// is kept in package state. Callers pass the struct down explicitly.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("DATABASE_NAME", "classdrive"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		B2ApplicationKeyID: getEnv("B2_APPLICATION_KEY_ID", ""),
		B2ApplicationKey:   getEnv("B2_APPLICATION_KEY", ""),
		B2BucketName:       getEnv("B2_BUCKET_NAME", ""),

		MaxFileSize: parseInt64(getEnv("MAX_FILE_SIZE", "104857600")),

		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")),

		AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string

	required := map[string]string{
		"JWT_SECRET":            c.JWTSecret,
		"B2_APPLICATION_KEY_ID": c.B2ApplicationKeyID,
		"B2_APPLICATION_KEY":    c.B2ApplicationKey,
		"B2_BUCKET_NAME":        c.B2BucketName,
	}
	for key, value := range required {
		if value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Describe renders the loaded configuration with secrets masked, for the
// startup log.
func (c *Config) Describe() string {
	return fmt.Sprintf("port=%s env=%s db=%s mongo=%s b2_bucket=%s jwt_secret=%s max_file_size=%d",
		c.Port, c.Env, c.DatabaseName,
		maskConnectionString(c.MongoURI), c.B2BucketName,
		maskSecret(c.JWTSecret), c.MaxFileSize)
}

func maskSecret(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	if len(secret) <= 8 {
		return "[HIDDEN]"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

func maskConnectionString(uri string) string {
	if strings.Contains(uri, "@") {
		parts := strings.Split(uri, "@")
		return "[CREDENTIALS_HIDDEN]@" + parts[len(parts)-1]
	}
	return uri
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt64(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return i
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
