// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the application.
type Options struct {
	// RelayAddr defines the relay's listening address (ip:port).
	RelayAddr string

	// BackendBase is the absolute base URL of the catalog backend the
	// relay forwards to (and the client talks to in direct mode).
	BackendBase string

	// SiteOrigin is the deployment origin used to resolve absolute
	// request URLs outside a same-origin context.
	SiteOrigin string

	// DirectBackend bypasses the relay: the client addresses the
	// backend directly at BackendBase.
	DirectBackend bool

	// StoragePath is the JSON file backing the persisted client state
	// (token, saved-list bookmarks).
	StoragePath string

	// RedisURL, when set, selects the Redis-backed persisted store
	// instead of the file store.
	RedisURL string

	// LogLevel sets the zap log level.
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.RelayAddr, "a", "localhost:3000", "run relay on ip:port")
	flag.StringVar(&options.BackendBase, "b", "http://127.0.0.1:8000", "backend base URL")
	flag.StringVar(&options.SiteOrigin, "o", "", "site origin for absolute URL resolution")
	flag.BoolVar(&options.DirectBackend, "direct", false, "talk to the backend directly instead of through the relay")
	flag.StringVar(&options.StoragePath, "s", "storage.json", "path to the persisted state file")
	flag.StringVar(&options.RedisURL, "r", "", "redis URL for the persisted store (optional)")
	flag.StringVar(&options.LogLevel, "l", "info", "log level")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if addr := os.Getenv("RELAY_ADDRESS"); addr != "" {
		options.RelayAddr = addr
	}
	if base := os.Getenv("API_BASE_URL"); base != "" {
		options.BackendBase = base
	}
	if origin := os.Getenv("SITE_ORIGIN"); origin != "" {
		options.SiteOrigin = origin
	}
	if direct := os.Getenv("USE_DIRECT_BACKEND"); direct == "1" || direct == "true" {
		options.DirectBackend = true
	}
	if path := os.Getenv("STORAGE_PATH"); path != "" {
		options.StoragePath = path
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		options.RedisURL = redisURL
	}

	return options
}
