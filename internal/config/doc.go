// Package config provides centralized configuration management for the
// runtime. Configuration is loaded from a JSON file with sensible
// defaults; secrets are referenced by environment variable name and are
// never stored in the file itself.
package config
