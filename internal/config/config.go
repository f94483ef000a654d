// Package config loads the TOML configuration file for the example
// nbrpcd daemon, the same format the katzenpost server/client binaries
// load their own katzenpost.toml from.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level document.
type Config struct {
	Logging  Logging
	Server   Server
	Shutdown Shutdown
	Queue    Queue
	Accept   Accept
}

// Logging configures the injected logger.
type Logging struct {
	Level string // debug, info, warning, error, critical
}

// Server configures the listener, worker pool, transport and protocol.
type Server struct {
	Listen     string // "host:port" or a filesystem path for unix sockets
	NumWorkers int    `toml:"num_workers"`
	Transport  string // tcp, unix, websocket, quic
	Protocol   string // cbor, msgpack, protobuf
}

// Shutdown configures the drain timeout and blocking behavior.
type Shutdown struct {
	TimeoutSeconds float64 `toml:"timeout_seconds"`
	Block          bool
}

// Queue configures the bounded work/signal queue capacities.
type Queue struct {
	WorkCapacity   int `toml:"work_capacity"`
	SignalCapacity int `toml:"signal_capacity"`
}

// Accept configures admission backpressure on the accept loop.
type Accept struct {
	RateLimit float64 `toml:"rate_limit"` // connections/sec, 0 = unlimited
}

// Default returns the configuration in force when no file is given,
// matching the defaults enumerated in SPEC_FULL.md §8.
func Default() *Config {
	return &Config{
		Logging: Logging{Level: "warning"},
		Server: Server{
			Listen:     "127.0.0.1:4141",
			NumWorkers: 20,
			Transport:  "tcp",
			Protocol:   "cbor",
		},
		Shutdown: Shutdown{TimeoutSeconds: 0, Block: true},
		Queue:    Queue{WorkCapacity: 4096, SignalCapacity: 64},
		Accept:   Accept{RateLimit: 0},
	}
}

// Load reads and parses the TOML file at path on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
