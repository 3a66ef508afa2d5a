package log

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_DefaultLevel(t *testing.T) {
	_ = os.Unsetenv("LOG_LEVEL")
	logger := New()
	if logger.root.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected default level Info, got %v", logger.root.GetLevel())
	}
}

func TestNew_CustomLevels(t *testing.T) {
	tests := []struct {
		envValue string
		expected logrus.Level
	}{
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"invalid", logrus.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.envValue)

			logger := New()
			if logger.root.GetLevel() != tt.expected {
				t.Errorf("for LOG_LEVEL=%s, expected level %v, got %v", tt.envValue, tt.expected, logger.root.GetLevel())
			}
		})
	}
}

func TestSetLevel_SharedByNamedLoggers(t *testing.T) {
	logger := NewWithOutput(&bytes.Buffer{}, "info")
	child := logger.Named("mqtt")

	logger.SetLevel("debug")
	if !child.IsLevelEnabled(logrus.DebugLevel) {
		t.Error("child logger did not follow the root level")
	}

	logger.SetLevel("bogus")
	if logger.root.GetLevel() != logrus.DebugLevel {
		t.Errorf("unknown level changed the logger to %v", logger.root.GetLevel())
	}
}

func TestGetLogrus(t *testing.T) {
	logger := New()
	if logger.GetLogrus() != logger.root {
		t.Error("GetLogrus() did not return the underlying logrus instance")
	}
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "info")
	logger.root.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	logger.Named("publisher").Info("connected to %s", "broker")

	output := buf.String()
	if !strings.Contains(output, "component=publisher") {
		t.Errorf("expected component field in output, got: %s", output)
	}
	if !strings.Contains(output, "connected to broker") {
		t.Errorf("expected formatted message in output, got: %s", output)
	}
}

func TestLevelsFiltered(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "warn")
	logger.root.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown %d", 1)
	logger.Error("shown %d", 2)

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("lower levels should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "shown 1") || !strings.Contains(output, "shown 2") {
		t.Errorf("expected warn and error lines, got: %s", output)
	}
}

func TestWithFieldsVariants(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "trace")
	logger.root.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	fields := logrus.Fields{"topic": "esp-dsmr/ESP-DSMR/power"}
	logger.TraceWithFields(fields, "trace")
	logger.DebugWithFields(fields, "debug")
	logger.InfoWithFields(fields, "info")
	logger.WarnWithFields(fields, "warn")
	logger.ErrorWithFields(fields, "error")
	logger.WithField("rc", -2).Warn("failed")

	output := buf.String()
	if got := strings.Count(output, "topic=esp-dsmr/ESP-DSMR/power"); got != 5 {
		t.Errorf("expected 5 lines with topic field, got %d: %s", got, output)
	}
	if !strings.Contains(output, "rc=-2") {
		t.Errorf("expected rc field, got: %s", output)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
	if logger.IsLevelEnabled(logrus.ErrorLevel) {
		t.Error("Discard logger should not enable error level")
	}
}
