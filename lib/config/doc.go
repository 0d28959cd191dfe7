// Package config provides configuration management for go-envelope.
//
// Settings are read through viper from $HOME/.go-envelope/config.yaml (or
// the file named by CfgFile) and fall back to the Default* values in this
// package. NewEnvelopeConfigFromViper returns a snapshot; sections that fail
// validation are replaced by their defaults and a warning is logged.
package config
