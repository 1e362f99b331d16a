// Package config loads server settings from YAML or JSON files and converts
// them into the typed configs the server packages take.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"lukas/map8x32/internal/server"
)

const DefaultSocketPath = "/tmp/map8x32.sock"

// FileConfig mirrors the on-disk config file. Durations are strings in
// time.ParseDuration syntax; empty strings keep the defaults.
type FileConfig struct {
	Server  ServerSection  `yaml:"server" json:"server"`
	Debug   DebugSection   `yaml:"debug" json:"debug"`
	Logging LoggingSection `yaml:"logging" json:"logging"`
}

type ServerSection struct {
	SocketPath     string `yaml:"socket_path" json:"socket_path"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
	ReadTimeout    string `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout   string `yaml:"write_timeout" json:"write_timeout"`
}

type DebugSection struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

type LoggingSection struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// Default returns the configuration used when no file is given: the
// conventional socket path, no connection limit, no deadlines, debug
// endpoint off.
func Default() *FileConfig {
	return &FileConfig{
		Server: ServerSection{
			SocketPath: DefaultSocketPath,
		},
		Debug: DebugSection{
			ListenAddr: "127.0.0.1:8080",
		},
		Logging: LoggingSection{
			Level: "info",
		},
	}
}

// LoadFile reads a config file, choosing the parser by file extension.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return config, nil
}

// Validate checks the raw values before conversion.
func (f *FileConfig) Validate() error {
	if f.Server.SocketPath == "" {
		return fmt.Errorf("server.socket_path must not be empty")
	}
	if f.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be non-negative")
	}
	for name, value := range map[string]string{
		"server.read_timeout":  f.Server.ReadTimeout,
		"server.write_timeout": f.Server.WriteTimeout,
	} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if f.Debug.Enabled && f.Debug.ListenAddr == "" {
		return fmt.Errorf("debug.listen_addr must not be empty when debug.enabled")
	}
	if f.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(f.Logging.Level); err != nil {
			return fmt.Errorf("invalid logging.level %q: %w", f.Logging.Level, err)
		}
	}
	return nil
}

// ToServerConfig converts the server section.
func (f *FileConfig) ToServerConfig() server.ServerConfig {
	config := server.ServerConfig{
		SocketPath:     f.Server.SocketPath,
		MaxConnections: f.Server.MaxConnections,
	}
	if config.SocketPath == "" {
		config.SocketPath = DefaultSocketPath
	}
	return config
}

// ToConnectionConfig converts the timeout strings. Empty strings leave the
// deadlines disabled.
func (f *FileConfig) ToConnectionConfig() (server.ConnectionConfig, error) {
	var config server.ConnectionConfig

	if f.Server.ReadTimeout != "" {
		d, err := time.ParseDuration(f.Server.ReadTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid read timeout: %w", err)
		}
		config.ReadTimeout = d
	}
	if f.Server.WriteTimeout != "" {
		d, err := time.ParseDuration(f.Server.WriteTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid write timeout: %w", err)
		}
		config.WriteTimeout = d
	}

	return config, nil
}
