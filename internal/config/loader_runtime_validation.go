package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// applyRuntimeValidation applies runtime validations and transformations
func applyRuntimeValidation(cfg *Config) error {
	if err := applyUniqueClientID(&cfg.MQTT); err != nil {
		return err
	}
	applyConsumerName(&cfg.Redis, cfg.MQTT.ClientID)
	return nil
}

// applyUniqueClientID appends a time-based suffix to the client ID so that
// several readers can share a broker without taking over each other's session
func applyUniqueClientID(cfg *MQTTConfig) error {
	if !cfg.UniqueClientID {
		return nil
	}
	id, err := uuid.NewUUID()
	if err != nil {
		return fmt.Errorf("failed to generate client ID suffix: %w", err)
	}
	cfg.ClientID = cfg.ClientID + "-" + id.String()[:8]
	return nil
}

// applyConsumerName derives a stream consumer name when none is configured
func applyConsumerName(cfg *RedisConfig, clientID string) {
	if cfg.Consumer != "" {
		return
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		cfg.Consumer = clientID
		return
	}
	cfg.Consumer = clientID + "-" + hostname
}
