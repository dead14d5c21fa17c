package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	Port               int
	DatabaseURL        string // empty keeps high scores in memory
	NATSURL            string // empty disables event publishing
	NATSSubjectPrefix  string
	CORSOrigins        []string
	SessionIdleTimeout time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string
}

// LoadServer reads the environment after merging any .env files found. Variables
// already set in the environment win over the files.
func LoadServer(envFiles ...string) (Server, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Server{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Server{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "simon.events"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.Port, err = getEnvAsInt("PORT", 3000); err != nil {
		return Server{}, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Server{}, fmt.Errorf("PORT %d out of range", cfg.Port)
	}
	if cfg.SessionIdleTimeout, err = getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return Server{}, err
	}
	if cfg.ShutdownTimeout, err = getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (s Server) Addr() string { return fmt.Sprintf(":%d", s.Port) }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
