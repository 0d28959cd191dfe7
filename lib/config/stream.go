package config

import (
	"path/filepath"

	"github.com/samber/oops"
)

// StreamConfig controls length-prefixed framing over byte streams.
type StreamConfig struct {
	// MaxFrameBytes is the largest frame accepted from a peer.
	// Default: 64 MiB
	MaxFrameBytes int `yaml:"max_frame_bytes"`
}

// default settings for stream framing
var DefaultStreamConfig = StreamConfig{
	MaxFrameBytes: 64 << 20,
}

// Validate rejects a non-positive frame limit.
func (c StreamConfig) Validate() error {
	if c.MaxFrameBytes <= 0 {
		return oops.Errorf("stream.max_frame_bytes must be positive, got %d", c.MaxFrameBytes)
	}
	return nil
}

// ServeConfig configures the echo server run by the CLI.
type ServeConfig struct {
	// Socket is the unix socket path the server listens on.
	// Default: $HOME/.go-envelope/envelope.sock
	Socket string `yaml:"socket"`
	// MaxConnections caps concurrently served connections; 0 means the default.
	// Default: 1024
	MaxConnections int `yaml:"max_connections"`
}

// DefaultMaxConnections bounds the echo server when MaxConnections is 0.
const DefaultMaxConnections = 1024

// default settings for the echo server
var DefaultServeConfig = ServeConfig{
	Socket:         filepath.Join(BuildEnvelopeDirPath(), "envelope.sock"),
	MaxConnections: DefaultMaxConnections,
}
