// Package config provides configuration management for tidy.
package config

import (
	"github.com/jamesainslie/tidy/pkg/tidy/cache"
	"github.com/jamesainslie/tidy/pkg/tidy/watcher"
)

// Default configuration values for tidy.
const (
	// DefaultRetentionDays is the default number of days to keep manifests.
	DefaultRetentionDays = 90

	// DefaultSettle is how long a new file must stay quiet before watch
	// mode organizes it.
	DefaultSettle = watcher.DefaultSettle

	// DefaultCacheTTL is how long a cached classification lives.
	DefaultCacheTTL = cache.DefaultTTL

	// DefaultLogLevel is the default file log level.
	DefaultLogLevel = "info"

	// DefaultLogMaxSize is the size that triggers log rotation.
	DefaultLogMaxSize = "10MB"

	// AppName names the XDG subdirectories and the environment prefix.
	AppName = "tidy"

	// EnvPrefix prefixes environment overrides, e.g. TIDY_SCANNER_MAX_DEPTH.
	EnvPrefix = "TIDY"

	// FileName is the config file name inside the config directory.
	FileName = "config.yaml"
)

// DefaultComponents holds the default per-component log levels.
var DefaultComponents = map[string]string{
	"scanner":    "info",
	"classifier": "info",
	"organizer":  "info",
	"watcher":    "info",
	"cache":      "warn",
}
