// Package config handles configuration loading and management for gocurl.
//
// It provides functionality for:
//   - Loading configuration from .gocurl.yml or .gocurl.yaml files
//   - Default configuration values
//   - Layering a working-directory config over a HOME config
//
// Flags always override file values; file values override built-ins.
package config
