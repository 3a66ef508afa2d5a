package mqtt

import "sync/atomic"

// Connectivity is the shared connection status of the device.
// The Publisher owns updates; other components hold a pointer and read it.
type Connectivity struct {
	mqtt atomic.Bool
}

// MQTT reports whether the broker connection was up after the last (re)connect.
func (c *Connectivity) MQTT() bool {
	return c.mqtt.Load()
}

func (c *Connectivity) setMQTT(up bool) {
	c.mqtt.Store(up)
}
