package transport

import (
	"sync/atomic"

	"github.com/go-i2p/go-envelope/lib/config"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

var limits atomic.Pointer[config.TransportConfig]

func init() {
	cfg := config.DefaultTransportConfig
	limits.Store(&cfg)
}

// Configure replaces the allocation limits used by every object created
// afterwards. Invalid configurations are rejected and the current limits kept.
func Configure(cfg config.TransportConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	limits.Store(&cfg)
	log.WithFields(logger.Fields{
		"at":                "transport.Configure",
		"max_message_bytes": cfg.MaxMessageBytes,
		"max_handles":       cfg.MaxHandles,
	}).Debug("transport limits updated")
	return nil
}

// CurrentLimits returns the active transport configuration.
func CurrentLimits() config.TransportConfig {
	return *limits.Load()
}

func checkLimits(numBytes, numHandles int) bool {
	cfg := limits.Load()
	return numBytes >= 0 && numHandles >= 0 &&
		numBytes <= cfg.MaxMessageBytes && numHandles <= cfg.MaxHandles
}
