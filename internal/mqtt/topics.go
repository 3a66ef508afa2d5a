package mqtt

const (
	// StatusTopic is the reserved name carrying online/offline announcements.
	StatusTopic = "status"

	// StatusOnline is published on every successful (re)connect.
	StatusOnline = "online"

	// StatusOffline is published at shutdown and registered as last will.
	StatusOffline = "offline"
)

// Topics builds the topic namespace of one device.
//
//	topics := mqtt.Topics{Prefix: "esp-dsmr", ClientID: "ESP-DSMR"}
//	topics.Topic("power_delivered")
//	// Returns: "esp-dsmr/ESP-DSMR/power_delivered"
type Topics struct {
	Prefix   string
	ClientID string
}

// Topic returns {prefix}/{clientId}/{name}.
func (t Topics) Topic(name string) string {
	return t.Prefix + "/" + t.ClientID + "/" + name
}

// Status returns the status topic.
func (t Topics) Status() string {
	return t.Topic(StatusTopic)
}

// Config returns the auto-discovery config topic for a sensor.
//
// Example: homeassistant/sensor/esp-dsmr-ESP-DSMR/power_delivered/config
func (t Topics) Config(discoveryPrefix, name string) string {
	return discoveryPrefix + "/sensor/" + t.Prefix + "-" + t.ClientID + "/" + name + "/config"
}
