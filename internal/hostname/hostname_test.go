package hostname

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diversit/esp8266-dsmr/internal/log"
)

func TestLocalName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ESP-DSMR", "esp-dsmr.local", false},
		{"esp-dsmr.local", "esp-dsmr.local", false},
		{"esp-dsmr.local.", "esp-dsmr.local", false},
		{"  meter  ", "meter.local", false},
		{"", "", true},
		{".local", "", true},
		{"meter.home", "", true},
		{"my meter", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LocalName(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidName))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerFactory(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOutput(&buf, "debug")

	l := loggerFactory{logger: logger}.NewLogger("mdns")
	l.Warnf("failed to join group on %s", "eth0")
	l.Trace("dropped")

	out := buf.String()
	assert.Contains(t, out, "failed to join group on eth0")
	assert.Contains(t, out, "scope=mdns")
	assert.NotContains(t, out, "dropped")
}

func TestAdvertise_InvalidName(t *testing.T) {
	_, err := Advertise("", log.Discard())
	assert.True(t, errors.Is(err, ErrInvalidName))
}

func TestIntegration_Advertise(t *testing.T) {
	if testing.Short() || os.Getenv("DSMR_MDNS_TEST") == "" {
		t.Skip("set DSMR_MDNS_TEST to run against the host network")
	}

	closer, err := Advertise("dsmr-test", log.Discard())
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
}
