package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvAPIKey overrides an empty api_key.
const EnvAPIKey = "POPTRANS_API_KEY"

// EnvFile is the dotenv file read from the config directory.
const EnvFile = ".env"

// applyEnv fills an empty APIKey from the process environment, then from
// the dotenv file at envPath. A missing dotenv file is not an error.
func (c *Config) applyEnv(envPath string) error {
	if c.APIKey != "" {
		return nil
	}

	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
		c.apiKeyFromEnv = true
		return nil
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", envPath, err)
	}

	if v := values[EnvAPIKey]; v != "" {
		c.APIKey = v
		c.apiKeyFromEnv = true
	}
	return nil
}
