// Package hostname advertises the device hostname on the local network with mDNS.
package hostname

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/pion/logging"
	"github.com/pion/mdns/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/diversit/esp8266-dsmr/internal/log"
)

const localDomain = ".local"

// ErrInvalidName is returned for names that cannot be advertised
var ErrInvalidName = errors.New("invalid hostname")

// Advertise answers mDNS queries for <name>.local until the returned Closer is closed.
// IPv4 is required; IPv6 is used when the host supports it.
func Advertise(name string, logger *log.Logger) (io.Closer, error) {
	local, err := LocalName(name)
	if err != nil {
		return nil, err
	}

	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mDNS address: %w", err)
	}
	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for mDNS: %w", err)
	}

	var pc6 *ipv6.PacketConn
	if addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6); err == nil {
		if l6, err := net.ListenUDP("udp6", addr6); err == nil {
			pc6 = ipv6.NewPacketConn(l6)
		} else {
			logger.Debug("mDNS over IPv6 unavailable: %v", err)
		}
	}

	conn, err := mdns.Server(ipv4.NewPacketConn(l4), pc6, &mdns.Config{
		Name:          "dsmr",
		LocalNames:    []string{local},
		LoggerFactory: loggerFactory{logger: logger},
	})
	if err != nil {
		_ = l4.Close()
		if pc6 != nil {
			_ = pc6.Close()
		}
		return nil, fmt.Errorf("failed to start mDNS responder: %w", err)
	}

	logger.Info("Advertising %s via mDNS", local)
	return conn, nil
}

// LocalName turns a hostname into its lower case .local form
func LocalName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, ".")
	n = strings.TrimSuffix(n, localDomain)
	if n == "" || strings.ContainsAny(n, ". \t") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return n + localDomain, nil
}

// loggerFactory routes pion log output through the application logger
type loggerFactory struct {
	logger *log.Logger
}

func (f loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return leveledLogger{entry: f.logger.WithField("scope", scope)}
}

type leveledLogger struct {
	entry *logrus.Entry
}

func (l leveledLogger) Trace(msg string)                  { l.entry.Trace(msg) }
func (l leveledLogger) Tracef(format string, args ...any) { l.entry.Tracef(format, args...) }
func (l leveledLogger) Debug(msg string)                  { l.entry.Debug(msg) }
func (l leveledLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l leveledLogger) Info(msg string)                   { l.entry.Info(msg) }
func (l leveledLogger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l leveledLogger) Warn(msg string)                   { l.entry.Warn(msg) }
func (l leveledLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l leveledLogger) Error(msg string)                  { l.entry.Error(msg) }
func (l leveledLogger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
