package config

import (
	"os"
	"path/filepath"

	"github.com/go-i2p/go-envelope/lib/util"
	"github.com/go-i2p/logger"
	"github.com/spf13/viper"
)

var (
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

const GOENVELOPE_BASE_DIR = ".go-envelope"

// EnvelopeConfig is the complete runtime configuration.
type EnvelopeConfig struct {
	Transport TransportConfig `yaml:"transport"`
	Stream    StreamConfig    `yaml:"stream"`
	Serve     ServeConfig     `yaml:"serve"`
}

func InitConfig() {
	if CfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(CfgFile)
	} else {
		// Set up viper to use the default config path $HOME/.go-envelope/
		viper.AddConfigPath(BuildEnvelopeDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	handleConfigFile()
}

func setDefaults() {
	// Transport defaults
	viper.SetDefault("transport.max_message_bytes", DefaultTransportConfig.MaxMessageBytes)
	viper.SetDefault("transport.max_handles", DefaultTransportConfig.MaxHandles)
	viper.SetDefault("transport.bad_message_log_rate", DefaultTransportConfig.BadMessageLogRate)
	viper.SetDefault("transport.bad_message_log_burst", DefaultTransportConfig.BadMessageLogBurst)

	// Stream defaults
	viper.SetDefault("stream.max_frame_bytes", DefaultStreamConfig.MaxFrameBytes)

	// Serve defaults
	viper.SetDefault("serve.socket", DefaultServeConfig.Socket)
	viper.SetDefault("serve.max_connections", DefaultServeConfig.MaxConnections)
}

// NewEnvelopeConfigFromViper creates a new EnvelopeConfig from current viper settings
func NewEnvelopeConfigFromViper() *EnvelopeConfig {
	cfg := &EnvelopeConfig{
		Transport: TransportConfig{
			MaxMessageBytes:    viper.GetInt("transport.max_message_bytes"),
			MaxHandles:         viper.GetInt("transport.max_handles"),
			BadMessageLogRate:  viper.GetFloat64("transport.bad_message_log_rate"),
			BadMessageLogBurst: viper.GetInt("transport.bad_message_log_burst"),
		},
		Stream: StreamConfig{
			MaxFrameBytes: viper.GetInt("stream.max_frame_bytes"),
		},
		Serve: ServeConfig{
			Socket:         viper.GetString("serve.socket"),
			MaxConnections: viper.GetInt("serve.max_connections"),
		},
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Warn("invalid configuration, falling back to defaults for invalid sections")
		cfg.applyFallbacks()
	}
	return cfg
}

// Validate checks every section.
func (c *EnvelopeConfig) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	return c.Stream.Validate()
}

func (c *EnvelopeConfig) applyFallbacks() {
	if c.Transport.Validate() != nil {
		c.Transport = DefaultTransportConfig
	}
	if c.Stream.Validate() != nil {
		c.Stream = DefaultStreamConfig
	}
}

func createDefaultConfig(defaultConfigDir string) {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	// Ensure directory exists
	if err := os.MkdirAll(defaultConfigDir, 0o755); err != nil {
		log.Fatalf("Could not create config directory: %s", err)
	}

	if err := viper.WriteConfigAs(defaultConfigFile); err != nil {
		log.Fatalf("Could not write default config file: %s", err)
	}

	log.Debugf("Created default configuration at: %s", defaultConfigFile)
}

func handleConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if CfgFile != "" {
				log.Fatalf("Config file %s is not found: %s", CfgFile, err)
			} else {
				createDefaultConfig(BuildEnvelopeDirPath())
			}
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	} else {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

func BuildEnvelopeDirPath() string {
	return filepath.Join(util.UserHome(), GOENVELOPE_BASE_DIR)
}
