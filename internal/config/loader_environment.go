package config

import (
	"os"
	"strconv"
	"time"
)

// loadMQTTFromEnv loads MQTT configuration from environment variables
func loadMQTTFromEnv(cfg *MQTTConfig) {
	loadMQTTStrings(cfg)
	loadMQTTInts(cfg)
	loadMQTTTimeouts(cfg)
	loadMQTTBools(cfg)
}

func loadMQTTStrings(cfg *MQTTConfig) {
	if v := getEnvString("MQTT_HOST"); v != "" {
		cfg.Host = v
	}
	if v := getEnvString("MQTT_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := getEnvString("MQTT_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := getEnvString("MQTT_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := getEnvString("MQTT_PREFIX"); v != "" {
		cfg.Prefix = v
	}
	if v := getEnvString("MQTT_DISCOVERY_PREFIX"); v != "" {
		cfg.DiscoveryPrefix = v
	}
}

func loadMQTTInts(cfg *MQTTConfig) {
	if v := getEnvInt("MQTT_PORT"); v != 0 {
		cfg.Port = v
	}
	if v := getEnvInt("MQTT_DISCONNECT_TIMEOUT"); v > 0 {
		cfg.DisconnectTimeout = uint(v) // #nosec G115 - checked positive
	}
	if v := getEnvInt("MQTT_SEND_BUFFER_SIZE"); v != 0 {
		cfg.SendBufferSize = v
	}
	if v := getEnvInt("MQTT_JSON_BUFFER_SIZE"); v != 0 {
		cfg.JSONBufferSize = v
	}
}

func loadMQTTTimeouts(cfg *MQTTConfig) {
	if v := getEnvDuration("MQTT_RECONNECT_TIMEOUT"); v != 0 {
		cfg.ReconnectTimeout = v
	}
	if v := getEnvDuration("MQTT_SOCKET_TIMEOUT"); v != 0 {
		cfg.SocketTimeout = v
	}
	if v := getEnvDuration("MQTT_KEEP_ALIVE"); v != 0 {
		cfg.KeepAlive = v
	}
}

func loadMQTTBools(cfg *MQTTConfig) {
	if v, ok := lookupEnvBool("MQTT_UNIQUE_CLIENT_ID"); ok {
		cfg.UniqueClientID = v
	}
	if v, ok := lookupEnvBool("MQTT_ONLY_SEND_NEW_VALUES"); ok {
		cfg.OnlySendNewValues = v
	}
}

// loadRedisFromEnv loads reading source configuration from environment variables
func loadRedisFromEnv(cfg *RedisConfig) {
	// REDIS_ADDRESS may be set to an empty value to disable ingestion
	if v, ok := os.LookupEnv("REDIS_ADDRESS"); ok {
		cfg.Address = v
	}
	if v := getEnvString("REDIS_STREAM"); v != "" {
		cfg.Stream = v
	}
	if v := getEnvString("REDIS_CONSUMER"); v != "" {
		cfg.Consumer = v
	}
	if v := getEnvInt("REDIS_BATCH_SIZE"); v != 0 {
		cfg.BatchSize = v
	}
	loadRedisTimeouts(cfg)
}

func loadRedisTimeouts(cfg *RedisConfig) {
	if v := getEnvDuration("REDIS_BLOCK_TIMEOUT"); v != 0 {
		cfg.BlockTimeout = v
	}
	if v := getEnvDuration("REDIS_CLAIM_IDLE"); v != 0 {
		cfg.ClaimIdle = v
	}
	if v := getEnvDuration("REDIS_DEAD_CONSUMER"); v != 0 {
		cfg.DeadConsumer = v
	}
	if v := getEnvDuration("REDIS_DIAL_TIMEOUT"); v != 0 {
		cfg.DialTimeout = v
	}
	if v := getEnvDuration("REDIS_READ_TIMEOUT"); v != 0 {
		cfg.ReadTimeout = v
	}
	if v := getEnvDuration("REDIS_WRITE_TIMEOUT"); v != 0 {
		cfg.WriteTimeout = v
	}
	if v := getEnvDuration("REDIS_PING_TIMEOUT"); v != 0 {
		cfg.PingTimeout = v
	}
}

// loadLoopFromEnv loads control loop configuration from environment variables
func loadLoopFromEnv(cfg *LoopConfig) {
	if v := getEnvDuration("LOOP_POLL_INTERVAL"); v != 0 {
		cfg.PollInterval = v
	}
	if v := getEnvDuration("LOOP_CLAIM_INTERVAL"); v != 0 {
		cfg.ClaimInterval = v
	}
	if v, ok := os.LookupEnv("LOOP_DISCOVERY_SCHEDULE"); ok {
		cfg.DiscoverySchedule = v
	}
	if v := getEnvDuration("LOOP_SHUTDOWN_TIMEOUT"); v != 0 {
		cfg.ShutdownTimeout = v
	}
}

// loadDeviceFromEnv loads the device description from environment variables
func loadDeviceFromEnv(cfg *DeviceConfig) {
	if v := getEnvString("DEVICE_HOSTNAME"); v != "" {
		cfg.Hostname = v
	}
	if v, ok := lookupEnvBool("DEVICE_MDNS_ENABLED"); ok {
		cfg.MDNSEnabled = v
	}
	if v := getEnvString("DEVICE_MANUFACTURER"); v != "" {
		cfg.Manufacturer = v
	}
	if v := getEnvString("DEVICE_MODEL"); v != "" {
		cfg.Model = v
	}
}

// loadLogFromEnv loads logging configuration from environment variables
func loadLogFromEnv(cfg *LogConfig) {
	if v := getEnvString("LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
}

// Helper functions for reading environment variables

func getEnvString(key string) string {
	return os.Getenv(key)
}

func getEnvInt(key string) int {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return intValue
}

func getEnvDuration(key string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return duration
}

// lookupEnvBool reports the parsed value and whether the variable held a valid boolean
func lookupEnvBool(key string) (bool, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return false, false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}
	return b, true
}
