// Package config loads the proxy's YAML configuration, following the
// reference server's Default*()/Load*(path) convention: a file that is
// absent is not an error, the defaults simply apply.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all tunables for the proxy process. There are no read/write
// timeouts: shutdown is cooperative — closing a reader is what unwinds a
// session, never an expired socket deadline.
type Config struct {
	// Listener
	ListenAddress string `yaml:"listen_address"`
	ListenPort    int    `yaml:"listen_port"`

	// Upstream server. May be left empty and supplied on the command line
	// instead (the -upstream flag); there is no interactive prompt.
	UpstreamAddress string `yaml:"upstream_address"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// WriterQueueCapacity bounds each per-peer writer actor's send channel.
	WriterQueueCapacity int `yaml:"writer_queue_capacity"`

	// StatusDescription is the MOTD advertised to status-intent connections.
	StatusDescription string `yaml:"status_description"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		ListenAddress:       "0.0.0.0",
		ListenPort:          25565,
		UpstreamAddress:     "",
		LogLevel:            "info",
		WriterQueueCapacity: 100,
		StatusDescription:   "A Minecraft Server",
	}
}

// Load reads Config from a YAML file at path. A missing file is not an
// error: the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}

// ListenAddr is the "host:port" form used to start the listener.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddress, c.ListenPort)
}
