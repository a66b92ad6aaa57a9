// Package config provides configuration loading and validation for the asr2clip daemon.
// It handles YAML-based configuration with per-section struct validation and searches
// the working directory and ~/.config for a config file when no path is given.
package config
