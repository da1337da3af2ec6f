// internal/mqtt/health.go

package mqtt

import (
	"time"
)

type HealthStatus struct {
	Connected      bool      `json:"connected"`
	LastConnected  time.Time `json:"last_connected,omitempty"`
	LastDisconnect time.Time `json:"last_disconnect,omitempty"`
}

func (c *Client) Health() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return HealthStatus{
		Connected:      c.connected && c.client.IsConnected(),
		LastConnected:  c.lastConnected,
		LastDisconnect: c.lastDisconnect,
	}
}
