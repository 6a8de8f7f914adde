package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the process configuration, read from the environment after an
// optional .env file.
type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	JWTSecret   string
	LogLevel    string
	CORSOrigins []string

	FCMCredentialsFile string
	FCMDispatchRate    float64 // provider calls per second

	ReminderBatchSize   int
	ReminderInterval    time.Duration
	ReminderRunTimeout  time.Duration
	ReminderRetryPolicy string
}

// LoadConfig loads configuration from .env and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using process environment")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "sales_crm"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
		FCMDispatchRate:    getFloat("FCM_DISPATCH_RATE", 10),

		ReminderBatchSize:   getInt("REMINDER_BATCH_SIZE", 50),
		ReminderInterval:    getDuration("REMINDER_INTERVAL", time.Minute),
		ReminderRunTimeout:  getDuration("REMINDER_RUN_TIMEOUT", 50*time.Second),
		ReminderRetryPolicy: getEnv("REMINDER_RETRY_POLICY", "unbounded"),
	}
}

// Validate reports settings the server must not start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logrus.WithField("key", key).Warnf("Invalid duration %q, using %s", raw, fallback)
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
