package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// defaultEnvFile is loaded when present and no -env-file flag is given
	defaultEnvFile = ".env"

	// envConfigFile names the YAML file when -config is not given
	envConfigFile = "DSMR_CONFIG_FILE"
)

// loadEnvFile loads variables from a .env file into the process environment.
// Variables already present in the environment are never overwritten.
// A missing default file is ignored, a missing explicit file is an error.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// configFilePath resolves the YAML configuration path from flag or environment
func configFilePath() string {
	if *flagConfigFile != "" {
		return *flagConfigFile
	}
	return os.Getenv(envConfigFile)
}

// loadYAMLFile overlays the YAML document at path onto cfg.
// Keys absent from the document keep their current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 - path is operator supplied configuration
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
