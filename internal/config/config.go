package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP Server
	Port string

	// Trigger authorization. The gate receives this value at construction
	// time; nothing reads it from the environment mid-request.
	TriggerSecret string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduler
	MaxParallelRules int
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8082"),
		TriggerSecret: getEnv("TRIGGER_SECRET", ""),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/registro.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "registro"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		MaxParallelRules: getEnvInt("MAX_PARALLEL_RULES", 4),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite path
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate scheduler configuration
	if c.MaxParallelRules < 1 {
		errors = append(errors, fmt.Sprintf("invalid max parallel rules %d: must be at least 1", c.MaxParallelRules))
	} else if c.MaxParallelRules > 64 {
		errors = append(errors, fmt.Sprintf("invalid max parallel rules %d: must be at most 64", c.MaxParallelRules))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateTriggerSecret checks the trigger endpoint secret. Only binaries
// that construct a trigger gate call this; offline batch and rule
// administration runs never read the secret.
func (c *Config) ValidateTriggerSecret() error {
	if strings.TrimSpace(c.TriggerSecret) == "" {
		return fmt.Errorf("TRIGGER_SECRET must be set")
	}
	// The secret is the only defense against unauthorized batch runs.
	if len(c.TriggerSecret) < 16 {
		return fmt.Errorf("trigger secret too short (%d chars): must be at least 16", len(c.TriggerSecret))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
