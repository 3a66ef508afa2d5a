package config

import (
	"flag"
	"fmt"
)

// Load loads configuration with precedence: defaults → YAML file → .env file → environment variables → command line flags
// It performs validation and runtime transformations before returning the configuration.
func Load() (*Config, error) {
	// Parse command line flags if not already parsed
	if !flag.Parsed() {
		flag.Parse()
	}

	// Step 1: Start with defaults
	cfg := defaultConfig()

	// Step 2: Populate the environment from the .env file
	if err := loadEnvFile(*flagEnvFile); err != nil {
		return nil, err
	}

	// Step 3: Overlay the YAML file
	if path := configFilePath(); path != "" {
		if err := loadYAMLFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Step 4: Apply environment variables
	loadMQTTFromEnv(&cfg.MQTT)
	loadRedisFromEnv(&cfg.Redis)
	loadLoopFromEnv(&cfg.Loop)
	loadDeviceFromEnv(&cfg.Device)
	loadLogFromEnv(&cfg.Log)

	// Step 5: Apply command line flags (highest precedence)
	applyMQTTFlags(&cfg.MQTT)
	applyRedisFlags(&cfg.Redis)
	applyLoopFlags(&cfg.Loop)
	applyDeviceFlags(&cfg.Device)
	applyLogFlags(&cfg.Log)

	// Step 6: Apply runtime validations and transformations
	if err := applyRuntimeValidation(cfg); err != nil {
		return nil, err
	}

	// Step 7: Validate the final configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
