package config

import (
	"flag"
	"time"
)

// Command line flags (have precedence over environment variables)
var (
	// Source file flags
	flagConfigFile *string
	flagEnvFile    *string

	// MQTT flags
	flagMQTTHost              *string
	flagMQTTPort              *int
	flagMQTTUsername          *string
	flagMQTTPassword          *string
	flagMQTTClientID          *string
	flagMQTTUniqueClientID    *bool
	flagMQTTPrefix            *string
	flagMQTTDiscoveryPrefix   *string
	flagMQTTReconnectTimeout  *time.Duration
	flagMQTTSocketTimeout     *time.Duration
	flagMQTTKeepAlive         *time.Duration
	flagMQTTDisconnectTimeout *int
	flagMQTTSendBufferSize    *int
	flagMQTTJSONBufferSize    *int
	flagMQTTOnlySendNewValues *bool

	// Redis flags
	flagRedisAddress      *string
	flagRedisStream       *string
	flagRedisConsumer     *string
	flagRedisBatchSize    *int
	flagRedisBlockTimeout *time.Duration
	flagRedisClaimIdle    *time.Duration
	flagRedisDeadConsumer *time.Duration

	// Loop flags
	flagLoopPollInterval      *time.Duration
	flagLoopClaimInterval     *time.Duration
	flagLoopDiscoverySchedule *string
	flagLoopShutdownTimeout   *time.Duration

	// Device flags
	flagDeviceHostname    *string
	flagDeviceMDNSEnabled *bool

	// Log flags
	flagLogLevel *string
)

func init() {
	registerFlags()
}

// registerFlags defines all configuration flags on flag.CommandLine
func registerFlags() {
	flagConfigFile = flag.String("config", "", "Path to a YAML configuration file")
	flagEnvFile = flag.String("env-file", "", "Path to a .env file (default .env when present)")

	flagMQTTHost = flag.String("mqtt-host", "", "MQTT broker host (empty disables publishing)")
	flagMQTTPort = flag.Int("mqtt-port", 0, "MQTT broker port")
	flagMQTTUsername = flag.String("mqtt-username", "", "MQTT username")
	flagMQTTPassword = flag.String("mqtt-password", "", "MQTT password")
	flagMQTTClientID = flag.String("mqtt-client-id", "", "MQTT client ID")
	flagMQTTUniqueClientID = flag.Bool("mqtt-unique-client-id", false, "Append a unique suffix to the MQTT client ID")
	flagMQTTPrefix = flag.String("mqtt-prefix", "", "MQTT topic prefix")
	flagMQTTDiscoveryPrefix = flag.String("mqtt-discovery-prefix", "", "Home Assistant discovery prefix")
	flagMQTTReconnectTimeout = flag.Duration("mqtt-reconnect-timeout", 0, "Minimum interval between reconnect attempts")
	flagMQTTSocketTimeout = flag.Duration("mqtt-socket-timeout", 0, "MQTT socket timeout")
	flagMQTTKeepAlive = flag.Duration("mqtt-keep-alive", 0, "MQTT keep alive interval")
	flagMQTTDisconnectTimeout = flag.Int("mqtt-disconnect-timeout", 0, "MQTT disconnect timeout (ms)")
	flagMQTTSendBufferSize = flag.Int("mqtt-send-buffer-size", 0, "Maximum MQTT packet size in bytes")
	flagMQTTJSONBufferSize = flag.Int("mqtt-json-buffer-size", 0, "Maximum serialized JSON document size in bytes")
	flagMQTTOnlySendNewValues = flag.Bool("mqtt-only-send-new-values", true, "Only publish readings that changed")

	flagRedisAddress = flag.String("redis-address", "", "Redis address of the telegram stream")
	flagRedisStream = flag.String("redis-stream", "", "Redis telegram stream name")
	flagRedisConsumer = flag.String("redis-consumer", "", "Redis consumer name")
	flagRedisBatchSize = flag.Int("redis-batch-size", 0, "Redis batch size")
	flagRedisBlockTimeout = flag.Duration("redis-block-timeout", 0, "Redis block timeout")
	flagRedisClaimIdle = flag.Duration("redis-claim-idle", 0, "Redis claim idle time")
	flagRedisDeadConsumer = flag.Duration("redis-dead-consumer", 0, "Idle time after which other Redis consumers are removed")

	flagLoopPollInterval = flag.Duration("loop-poll-interval", 0, "Control loop interval")
	flagLoopClaimInterval = flag.Duration("loop-claim-interval", 0, "Interval for reclaiming idle telegrams")
	flagLoopDiscoverySchedule = flag.String("loop-discovery-schedule", "", "Cron schedule for discovery announcements")
	flagLoopShutdownTimeout = flag.Duration("loop-shutdown-timeout", 0, "Shutdown timeout")

	flagDeviceHostname = flag.String("device-hostname", "", "Device hostname advertised over mDNS")
	flagDeviceMDNSEnabled = flag.Bool("device-mdns", false, "Advertise the device hostname over mDNS")

	flagLogLevel = flag.String("log-level", "", "Log level (trace, debug, info, warn, error)")
}

// applyMQTTFlags applies command line flags to MQTT configuration
func applyMQTTFlags(cfg *MQTTConfig) {
	applyMQTTFlagStrings(cfg)
	applyMQTTFlagInts(cfg)
	applyMQTTFlagTimeouts(cfg)
	applyMQTTFlagBools(cfg)
}

func applyMQTTFlagStrings(cfg *MQTTConfig) {
	if *flagMQTTHost != "" {
		cfg.Host = *flagMQTTHost
	}
	if *flagMQTTUsername != "" {
		cfg.Username = *flagMQTTUsername
	}
	if *flagMQTTPassword != "" {
		cfg.Password = *flagMQTTPassword
	}
	if *flagMQTTClientID != "" {
		cfg.ClientID = *flagMQTTClientID
	}
	if *flagMQTTPrefix != "" {
		cfg.Prefix = *flagMQTTPrefix
	}
	if *flagMQTTDiscoveryPrefix != "" {
		cfg.DiscoveryPrefix = *flagMQTTDiscoveryPrefix
	}
}

func applyMQTTFlagInts(cfg *MQTTConfig) {
	if *flagMQTTPort != 0 {
		cfg.Port = *flagMQTTPort
	}
	if *flagMQTTDisconnectTimeout > 0 {
		cfg.DisconnectTimeout = uint(*flagMQTTDisconnectTimeout) // #nosec G115 - checked positive
	}
	if *flagMQTTSendBufferSize != 0 {
		cfg.SendBufferSize = *flagMQTTSendBufferSize
	}
	if *flagMQTTJSONBufferSize != 0 {
		cfg.JSONBufferSize = *flagMQTTJSONBufferSize
	}
}

func applyMQTTFlagTimeouts(cfg *MQTTConfig) {
	if *flagMQTTReconnectTimeout != 0 {
		cfg.ReconnectTimeout = *flagMQTTReconnectTimeout
	}
	if *flagMQTTSocketTimeout != 0 {
		cfg.SocketTimeout = *flagMQTTSocketTimeout
	}
	if *flagMQTTKeepAlive != 0 {
		cfg.KeepAlive = *flagMQTTKeepAlive
	}
}

func applyMQTTFlagBools(cfg *MQTTConfig) {
	// Handle bool flags - check if explicitly set
	if isFlagSet("mqtt-unique-client-id") {
		cfg.UniqueClientID = *flagMQTTUniqueClientID
	}
	if isFlagSet("mqtt-only-send-new-values") {
		cfg.OnlySendNewValues = *flagMQTTOnlySendNewValues
	}
}

// applyRedisFlags applies command line flags to Redis configuration
func applyRedisFlags(cfg *RedisConfig) {
	if isFlagSet("redis-address") {
		cfg.Address = *flagRedisAddress
	}
	if *flagRedisStream != "" {
		cfg.Stream = *flagRedisStream
	}
	if *flagRedisConsumer != "" {
		cfg.Consumer = *flagRedisConsumer
	}
	if *flagRedisBatchSize != 0 {
		cfg.BatchSize = *flagRedisBatchSize
	}
	if *flagRedisBlockTimeout != 0 {
		cfg.BlockTimeout = *flagRedisBlockTimeout
	}
	if *flagRedisClaimIdle != 0 {
		cfg.ClaimIdle = *flagRedisClaimIdle
	}
	if *flagRedisDeadConsumer != 0 {
		cfg.DeadConsumer = *flagRedisDeadConsumer
	}
}

// applyLoopFlags applies command line flags to control loop configuration
func applyLoopFlags(cfg *LoopConfig) {
	if *flagLoopPollInterval != 0 {
		cfg.PollInterval = *flagLoopPollInterval
	}
	if *flagLoopClaimInterval != 0 {
		cfg.ClaimInterval = *flagLoopClaimInterval
	}
	if isFlagSet("loop-discovery-schedule") {
		cfg.DiscoverySchedule = *flagLoopDiscoverySchedule
	}
	if *flagLoopShutdownTimeout != 0 {
		cfg.ShutdownTimeout = *flagLoopShutdownTimeout
	}
}

// applyDeviceFlags applies command line flags to the device description
func applyDeviceFlags(cfg *DeviceConfig) {
	if *flagDeviceHostname != "" {
		cfg.Hostname = *flagDeviceHostname
	}
	if isFlagSet("device-mdns") {
		cfg.MDNSEnabled = *flagDeviceMDNSEnabled
	}
}

// applyLogFlags applies command line flags to logging configuration
func applyLogFlags(cfg *LogConfig) {
	if *flagLogLevel != "" {
		cfg.Level = *flagLogLevel
	}
}

// isFlagSet checks if a flag was explicitly set on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
