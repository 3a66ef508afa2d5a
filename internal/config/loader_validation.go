package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Validate checks configuration constraints and reports the first violation
func Validate(cfg *Config) error {
	if err := validateMQTT(&cfg.MQTT); err != nil {
		return err
	}
	if err := validateRedis(&cfg.Redis); err != nil {
		return err
	}
	if err := validateLoop(&cfg.Loop); err != nil {
		return err
	}
	return validateLog(&cfg.Log)
}

// validateMQTT validates MQTT configuration.
// An empty host is valid and disables publishing.
func validateMQTT(cfg *MQTTConfig) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("mqtt port must be between 0 and 65535")
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("mqtt client ID cannot be empty")
	}
	if cfg.Prefix == "" {
		return fmt.Errorf("mqtt prefix cannot be empty")
	}
	if strings.ContainsAny(cfg.Prefix, "+#") {
		return fmt.Errorf("mqtt prefix cannot contain wildcards")
	}
	if cfg.DiscoveryPrefix == "" {
		return fmt.Errorf("mqtt discovery prefix cannot be empty")
	}
	if cfg.ReconnectTimeout <= 0 {
		return fmt.Errorf("mqtt reconnect timeout must be positive")
	}
	if cfg.SocketTimeout <= 0 {
		return fmt.Errorf("mqtt socket timeout must be positive")
	}
	if cfg.SendBufferSize < 1 {
		return fmt.Errorf("mqtt send buffer size must be positive")
	}
	if cfg.JSONBufferSize < 1 {
		return fmt.Errorf("mqtt json buffer size must be positive")
	}
	return nil
}

// validateRedis validates the reading source configuration.
// An empty address is valid and disables ingestion.
func validateRedis(cfg *RedisConfig) error {
	if cfg.Address == "" {
		return nil
	}
	if cfg.Stream == "" {
		return fmt.Errorf("redis stream cannot be empty")
	}
	if cfg.Consumer == "" {
		return fmt.Errorf("redis consumer name cannot be empty")
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("redis batch size must be positive")
	}
	if cfg.DeadConsumer < cfg.ClaimIdle {
		return fmt.Errorf("redis dead consumer timeout must not be shorter than claim idle")
	}
	return nil
}

// validateLoop validates control loop configuration
func validateLoop(cfg *LoopConfig) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("loop poll interval must be positive")
	}
	if cfg.ClaimInterval <= 0 {
		return fmt.Errorf("loop claim interval must be positive")
	}
	if cfg.DiscoverySchedule != "" {
		if _, err := cron.ParseStandard(cfg.DiscoverySchedule); err != nil {
			return fmt.Errorf("loop discovery schedule is invalid: %w", err)
		}
	}
	return nil
}

// validateLog validates logging configuration
func validateLog(cfg *LogConfig) error {
	if _, err := logrus.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log level %q is invalid", cfg.Level)
	}
	return nil
}
