// Package main starts the DSMR meter publisher binary.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diversit/esp8266-dsmr/internal/config"
	"github.com/diversit/esp8266-dsmr/internal/discovery"
	"github.com/diversit/esp8266-dsmr/internal/hostname"
	"github.com/diversit/esp8266-dsmr/internal/log"
	"github.com/diversit/esp8266-dsmr/internal/loop"
	"github.com/diversit/esp8266-dsmr/internal/mqtt"
	"github.com/diversit/esp8266-dsmr/internal/redis"
)

type services struct {
	publisher *mqtt.Publisher
	source    *redis.Client
	mdns      io.Closer
	loop      *loop.Loop
}

func run() int {
	logger := log.New()
	logger.Info("Starting DSMR publisher")

	cfg, err := loadAndLogConfig(logger)
	if err != nil {
		return 1
	}

	svc, err := initializeServices(cfg, logger)
	if err != nil {
		return 1
	}

	code, stopped := runMainLoop(svc.loop, cfg, logger)
	closeServices(svc, stopped, logger)
	return code
}

func loadAndLogConfig(logger *log.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		return nil, err
	}
	logger.SetLevel(cfg.Log.Level)

	logger.Info("Configuration loaded successfully")
	if cfg.MQTT.Enabled() {
		logger.Info("MQTT: %s:%d, client: %s, topics: %s/%s/#", cfg.MQTT.Host, cfg.MQTT.Port, cfg.MQTT.ClientID, cfg.MQTT.Prefix, cfg.MQTT.ClientID)
	}
	if cfg.Redis.Address != "" {
		logger.Info("Redis: %s, stream: %s, consumer: %s", cfg.Redis.Address, cfg.Redis.Stream, cfg.Redis.Consumer)
	}
	return cfg, nil
}

func initializeServices(cfg *config.Config, logger *log.Logger) (*services, error) {
	svc := &services{}

	mqttLogger := logger.Named("mqtt")
	transport := mqtt.NewPahoTransport(&cfg.MQTT, mqttLogger)
	svc.publisher = mqtt.NewPublisher(&cfg.MQTT, transport, mqttLogger)
	svc.publisher.Start()

	if cfg.Device.MDNSEnabled {
		closer, err := hostname.Advertise(cfg.Device.Hostname, logger.Named("mdns"))
		if err != nil {
			logger.Warn("mDNS hostname advertisement disabled: %v", err)
		} else {
			svc.mdns = closer
		}
	}

	// A nil *redis.Client must not reach the loop as a non-nil interface
	var source loop.Source
	if cfg.Redis.Address != "" {
		client, err := redis.NewClient(&cfg.Redis, logger.Named("redis"))
		if err != nil {
			logger.Error("Failed to create Redis client: %v", err)
			closeServices(svc, true, logger)
			return nil, err
		}
		logger.Info("Connected to Redis")
		svc.source = client
		source = client
	} else {
		logger.Info("Telegram ingestion disabled: no Redis address configured")
	}

	announcer := discovery.NewAnnouncer(svc.publisher, &cfg.MQTT, &cfg.Device, logger.Named("discovery"))
	svc.loop = loop.New(cfg, svc.publisher, announcer, source, logger.Named("loop"))
	return svc, nil
}

// closeServices releases everything. The publisher is only closed once the
// loop has stopped using it.
func closeServices(svc *services, loopStopped bool, logger *log.Logger) {
	if loopStopped {
		if err := svc.publisher.Close(); err != nil {
			logger.Error("Error closing MQTT publisher: %v", err)
		}
	}
	if svc.source != nil {
		if err := svc.source.Close(); err != nil {
			logger.Error("Error closing Redis client: %v", err)
		}
	}
	if svc.mdns != nil {
		if err := svc.mdns.Close(); err != nil {
			logger.Error("Error closing mDNS responder: %v", err)
		}
	}
}

func runMainLoop(l *loop.Loop, cfg *config.Config, logger *log.Logger) (int, bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- l.Run(ctx)
	}()

	logger.Info("Control loop started")

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, initiating graceful shutdown", sig)
		cancel()
		return handleGracefulShutdown(errChan, cfg.Loop.ShutdownTimeout, logger)

	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Control loop error: %v", err)
			return 1, true
		}
		return 0, true
	}
}

func handleGracefulShutdown(errChan <-chan error, timeout time.Duration, logger *log.Logger) (int, bool) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Control loop error during shutdown: %v", err)
			return 1, true
		}
		logger.Info("Graceful shutdown completed")
		return 0, true
	case <-shutdownCtx.Done():
		logger.Error("Shutdown timeout exceeded")
		return 1, false
	}
}

func main() {
	// os.Exit skips defers, so all cleanup lives in run()
	os.Exit(run())
}
