package config

import (
	"github.com/samber/oops"
)

// TransportConfig bounds what the in-process transport will allocate.
type TransportConfig struct {
	// MaxMessageBytes is the largest message object the transport allocates.
	// Default: 256 MiB
	MaxMessageBytes int `yaml:"max_message_bytes"`
	// MaxHandles is the most handles a single message may carry.
	// Default: 65536
	MaxHandles int `yaml:"max_handles"`
	// BadMessageLogRate is how many bad-message reports per second are logged
	// per pipe before further reports are only counted.
	// Default: 1
	BadMessageLogRate float64 `yaml:"bad_message_log_rate"`
	// BadMessageLogBurst is the burst allowance for BadMessageLogRate.
	// Default: 5
	BadMessageLogBurst int `yaml:"bad_message_log_burst"`
}

// default settings for the transport
var DefaultTransportConfig = TransportConfig{
	MaxMessageBytes:    256 << 20,
	MaxHandles:         64 * 1024,
	BadMessageLogRate:  1,
	BadMessageLogBurst: 5,
}

// Validate rejects limits that would make every allocation fail.
func (c TransportConfig) Validate() error {
	if c.MaxMessageBytes <= 0 {
		return oops.Errorf("transport.max_message_bytes must be positive, got %d", c.MaxMessageBytes)
	}
	if c.MaxHandles < 0 {
		return oops.Errorf("transport.max_handles must not be negative, got %d", c.MaxHandles)
	}
	if c.BadMessageLogRate < 0 || c.BadMessageLogBurst < 0 {
		return oops.Errorf("transport bad message log rate/burst must not be negative")
	}
	return nil
}
