package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xelth-com/geoattend/internal/dailykey"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	PublicURL string
	MediaDir  string
	TimeZone  string
	Location  *time.Location
	Database  DatabaseConfig
	Kafka     KafkaConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// KafkaConfig holds the attendance event publisher settings.
// An empty broker list disables publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	tz := getEnv("ATTEND_TIME_ZONE", dailykey.DefaultTimeZone)
	loc, err := dailykey.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	port := getEnv("PORT", "3210")
	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      port,
		JWTSecret: jwtSecret,
		PublicURL: strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:"+port), "/"),
		MediaDir:  getEnv("MEDIA_DIR", "./media"),
		TimeZone:  tz,
		Location:  loc,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "geoattend"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "attendance-events"),
		},
	}, nil
}

// Production reports whether NODE_ENV is production
func (c *Config) Production() bool {
	return c.NodeEnv == "production"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
