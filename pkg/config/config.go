// Package config loads and validates the videocapture YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/germanamz/videocapture/pkg/capturetools"
	"github.com/germanamz/videocapture/pkg/frame"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory when no
// explicit path is given.
const FileName = "videocapture.yaml"

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Capture backends.
const (
	BackendOpenCV      = "opencv"
	BackendTestPattern = "testpattern"
)

// Log formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Capture CaptureConfig `yaml:"capture"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Name      string   `yaml:"name"`
	Transport string   `yaml:"transport"`       // stdio or http.
	Address   string   `yaml:"address"`         // Listen address for the http transport.
	Path      string   `yaml:"path"`            // HTTP path the MCP endpoint is mounted on.
	Tools     []string `yaml:"tools,omitempty"` // Subset of tools to expose (empty = all).
}

// CaptureConfig holds device and frame encoding settings.
type CaptureConfig struct {
	Backend     string         `yaml:"backend"`      // opencv or testpattern.
	Encoding    frame.Encoding `yaml:"encoding"`     // png or jpeg.
	JPEGQuality int            `yaml:"jpeg_quality"` // 1..100, used when encoding is jpeg.
	ProbeMax    int            `yaml:"probe_max"`    // Number of device indices scanned by probe.
	Devices     int            `yaml:"devices"`      // Device count of the testpattern backend.
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string     `yaml:"level"`  // trace, debug, info, warn or error.
	Format string     `yaml:"format"` // json or text.
	File   string     `yaml:"file"`   // Log file path; empty logs to stderr.
	Loki   LokiConfig `yaml:"loki"`
}

// LokiConfig configures shipping log lines to a Loki push endpoint.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels,omitempty"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Name:      "videocapture",
			Transport: TransportStdio,
			Address:   "127.0.0.1:9001",
			Path:      "/mcp",
		},
		Capture: CaptureConfig{
			Backend:     BackendOpenCV,
			Encoding:    frame.PNG,
			JPEGQuality: frame.DefaultJPEGQuality,
			ProbeMax:    8,
			Devices:     1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatJSON,
		},
		Metrics: MetricsConfig{
			Address: "127.0.0.1:9090",
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML file on top of Default. Environment variables referenced
// as ${VAR} or $VAR are expanded before parsing.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes YAML on top of Default without expanding environment
// variables, so that ${VAR} references survive a rewrite of the file.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	return cfg, nil
}

// Resolve picks the configuration to use. An explicit path must exist.
// Otherwise FileName in dir is loaded when present, and Default is returned
// when it is not. The second return value is the file that was loaded, or
// empty for defaults.
func Resolve(path, dir string) (Config, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}

	candidate := filepath.Join(dir, FileName)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
		return Config{}, "", fmt.Errorf("config: stat %s: %w", candidate, err)
	}

	cfg, err := Load(candidate)
	return cfg, candidate, err
}

// Marshal encodes cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}

	return data, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("config: server name is required")
	}

	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.Address == "" {
			return fmt.Errorf("config: server address is required for the http transport")
		}
		if c.Server.Path == "" || c.Server.Path[0] != '/' {
			return fmt.Errorf("config: server path %q must start with /", c.Server.Path)
		}
	default:
		return fmt.Errorf("config: unknown transport %q", c.Server.Transport)
	}

	seen := make(map[string]struct{}, len(c.Server.Tools))
	for _, name := range c.Server.Tools {
		if !slices.Contains(capturetools.ToolNames, name) {
			return fmt.Errorf("config: unknown tool %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("config: duplicate tool %q", name)
		}
		seen[name] = struct{}{}
	}

	switch c.Capture.Backend {
	case BackendOpenCV:
	case BackendTestPattern:
		if c.Capture.Devices < 1 {
			return fmt.Errorf("config: testpattern backend needs at least one device, got %d", c.Capture.Devices)
		}
	default:
		return fmt.Errorf("config: unknown capture backend %q", c.Capture.Backend)
	}

	switch c.Capture.Encoding {
	case frame.PNG:
	case frame.JPEG:
		if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
			return fmt.Errorf("config: jpeg_quality must be within 1..100, got %d", c.Capture.JPEGQuality)
		}
	default:
		return fmt.Errorf("config: unknown encoding %q", c.Capture.Encoding)
	}

	if c.Capture.ProbeMax < 1 {
		return fmt.Errorf("config: probe_max must be positive, got %d", c.Capture.ProbeMax)
	}

	switch c.Logging.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}

	if c.Logging.Loki.Enabled && c.Logging.Loki.URL == "" {
		return fmt.Errorf("config: loki url is required when loki is enabled")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			return fmt.Errorf("config: metrics address is required when metrics are enabled")
		}
		if c.Metrics.Path == "" || c.Metrics.Path[0] != '/' {
			return fmt.Errorf("config: metrics path %q must start with /", c.Metrics.Path)
		}
	}

	return nil
}

// Encoder returns the frame encoder described by the capture settings.
func (c Config) Encoder() frame.Encoder {
	return frame.Encoder{Encoding: c.Capture.Encoding, JPEGQuality: c.Capture.JPEGQuality}
}
