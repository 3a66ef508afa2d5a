// Package discovery announces the meter's sensors to Home Assistant over MQTT.
package discovery

import (
	"github.com/diversit/esp8266-dsmr/internal/config"
	"github.com/diversit/esp8266-dsmr/internal/log"
	"github.com/diversit/esp8266-dsmr/internal/mqtt"
	"github.com/diversit/esp8266-dsmr/pkg/jsonfast"
)

// Sensor describes one telegram field exposed as a Home Assistant sensor
type Sensor struct {
	Key         string // Telegram field and topic name
	Name        string
	Unit        string
	DeviceClass string
	StateClass  string
}

// Sensors is the set of telegram fields announced for discovery
var Sensors = []Sensor{
	{"energy_delivered_tariff1", "Energy delivered tariff 1", "kWh", "energy", "total_increasing"},
	{"energy_delivered_tariff2", "Energy delivered tariff 2", "kWh", "energy", "total_increasing"},
	{"energy_returned_tariff1", "Energy returned tariff 1", "kWh", "energy", "total_increasing"},
	{"energy_returned_tariff2", "Energy returned tariff 2", "kWh", "energy", "total_increasing"},
	{"electricity_tariff", "Electricity tariff", "", "", ""},
	{"power_delivered", "Power delivered", "kW", "power", "measurement"},
	{"power_returned", "Power returned", "kW", "power", "measurement"},
	{"power_delivered_l1", "Power delivered L1", "kW", "power", "measurement"},
	{"power_delivered_l2", "Power delivered L2", "kW", "power", "measurement"},
	{"power_delivered_l3", "Power delivered L3", "kW", "power", "measurement"},
	{"voltage_l1", "Voltage L1", "V", "voltage", "measurement"},
	{"voltage_l2", "Voltage L2", "V", "voltage", "measurement"},
	{"voltage_l3", "Voltage L3", "V", "voltage", "measurement"},
	{"current_l1", "Current L1", "A", "current", "measurement"},
	{"current_l2", "Current L2", "A", "current", "measurement"},
	{"current_l3", "Current L3", "A", "current", "measurement"},
	{"gas_delivered", "Gas delivered", "m³", "gas", "total_increasing"},
}

// Publisher is the part of mqtt.Publisher used for announcements
type Publisher interface {
	Topic(name string) string
	ConfigTopic(discoveryPrefix, name string) string
	PublishRetainedJSON(topic string, document any) bool
}

// Announcer publishes one discovery document per sensor
type Announcer struct {
	publisher       Publisher
	discoveryPrefix string
	deviceID        string
	device          config.DeviceConfig
	sensors         []Sensor
	doc             *jsonfast.Builder
	log             *log.Logger
}

// NewAnnouncer creates an Announcer for the device. The device identifier is
// derived from the topic prefix and hostname so it survives client ID changes.
func NewAnnouncer(publisher Publisher, mqttCfg *config.MQTTConfig, device *config.DeviceConfig, logger *log.Logger) *Announcer {
	return &Announcer{
		publisher:       publisher,
		discoveryPrefix: mqttCfg.DiscoveryPrefix,
		deviceID:        mqttCfg.Prefix + "-" + device.Hostname,
		device:          *device,
		sensors:         Sensors,
		doc:             jsonfast.New(mqttCfg.JSONBufferSize),
		log:             logger,
	}
}

// Announce publishes the retained discovery document of every sensor and
// returns how many were published
func (a *Announcer) Announce() int {
	published := 0
	for _, s := range a.sensors {
		a.build(s)
		if a.publisher.PublishRetainedJSON(a.publisher.ConfigTopic(a.discoveryPrefix, s.Key), a.doc) {
			published++
		}
	}

	if published < len(a.sensors) {
		a.log.Warn("Published %d of %d discovery documents", published, len(a.sensors))
	} else {
		a.log.Info("Published %d discovery documents", published)
	}
	return published
}

// build writes the abbreviated discovery document of s into the reused builder
func (a *Announcer) build(s Sensor) {
	a.doc.Reset()
	a.doc.BeginObject()
	a.doc.AddStringField("name", s.Name)
	a.doc.AddStringField("uniq_id", a.deviceID+"-"+s.Key)
	a.doc.AddStringField("stat_t", a.publisher.Topic(s.Key))
	a.doc.AddStringField("avty_t", a.publisher.Topic(mqtt.StatusTopic))
	if s.Unit != "" {
		a.doc.AddStringField("unit_of_meas", s.Unit)
	}
	if s.DeviceClass != "" {
		a.doc.AddStringField("dev_cla", s.DeviceClass)
	}
	if s.StateClass != "" {
		a.doc.AddStringField("stat_cla", s.StateClass)
	}

	a.doc.BeginObjectField("dev")
	a.doc.AddStringArrayField("ids", []string{a.deviceID})
	a.doc.AddStringField("name", a.device.Hostname)
	a.doc.AddStringField("mf", a.device.Manufacturer)
	a.doc.AddStringField("mdl", a.device.Model)
	a.doc.EndObject()

	a.doc.EndObject()
}
