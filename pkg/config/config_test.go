package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/germanamz/videocapture/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  name: lab-cams
  transport: http
  address: 0.0.0.0:9001
  path: /mcp
  tools: [open_camera, capture_frame, close_connection]

capture:
  backend: testpattern
  encoding: jpeg
  jpeg_quality: 75
  probe_max: 4
  devices: 2

logging:
  level: debug
  format: text
  file: /tmp/videocapture.log
  loki:
    enabled: true
    url: http://loki:3100/loki/api/v1/push
    labels:
      site: lab

metrics:
  enabled: true
  address: 127.0.0.1:9191
  path: /metrics
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "lab-cams", cfg.Server.Name)
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, "0.0.0.0:9001", cfg.Server.Address)
	assert.Equal(t, "/mcp", cfg.Server.Path)
	assert.Equal(t, []string{"open_camera", "capture_frame", "close_connection"}, cfg.Server.Tools)

	assert.Equal(t, BackendTestPattern, cfg.Capture.Backend)
	assert.Equal(t, frame.JPEG, cfg.Capture.Encoding)
	assert.Equal(t, 75, cfg.Capture.JPEGQuality)
	assert.Equal(t, 4, cfg.Capture.ProbeMax)
	assert.Equal(t, 2, cfg.Capture.Devices)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, FormatText, cfg.Logging.Format)
	assert.Equal(t, "/tmp/videocapture.log", cfg.Logging.File)
	assert.True(t, cfg.Logging.Loki.Enabled)
	assert.Equal(t, "http://loki:3100/loki/api/v1/push", cfg.Logging.Loki.URL)
	assert.Equal(t, map[string]string{"site": "lab"}, cfg.Logging.Loki.Labels)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9191", cfg.Metrics.Address)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/no/such/file.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse")
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "capture:\n  encoding: jpeg\n"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, frame.JPEG, cfg.Capture.Encoding)
	assert.Equal(t, def.Capture.JPEGQuality, cfg.Capture.JPEGQuality)
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Logging, cfg.Logging)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("VIDEOCAPTURE_TEST_ADDR", "10.0.0.5:9001")

	cfg, err := Load(writeConfig(t, "server:\n  transport: http\n  address: ${VIDEOCAPTURE_TEST_ADDR}\n"))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:9001", cfg.Server.Address)
}

func TestLoad_UnsetEnvVarExpandsToEmpty(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  file: ${VIDEOCAPTURE_TEST_UNSET_VAR_12345}\n"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Logging.File)
}

func TestParse_KeepsEnvReferences(t *testing.T) {
	t.Setenv("VIDEOCAPTURE_TEST_ADDR", "10.0.0.5:9001")

	cfg, err := Parse([]byte("server:\n  address: ${VIDEOCAPTURE_TEST_ADDR}\n"))
	require.NoError(t, err)

	assert.Equal(t, "${VIDEOCAPTURE_TEST_ADDR}", cfg.Server.Address)
}

func TestResolve(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := writeConfig(t, sampleYAML)

		cfg, used, err := Resolve(path, t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, path, used)
		assert.Equal(t, "lab-cams", cfg.Server.Name)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, _, err := Resolve(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir())
		assert.Error(t, err)
	})

	t.Run("working directory file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("server:\n  name: from-dir\n"), 0o600))

		cfg, used, err := Resolve("", dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, FileName), used)
		assert.Equal(t, "from-dir", cfg.Server.Name)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg, used, err := Resolve("", t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, used)
		assert.Equal(t, Default(), cfg)
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Server.Tools = []string{"quick_capture"}
	cfg.Capture.Backend = BackendTestPattern

	data, err := Marshal(cfg)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefault_Valid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{
			name:   "missing server name",
			mutate: func(c *Config) { c.Server.Name = "" },
			errMsg: "server name is required",
		},
		{
			name:   "unknown transport",
			mutate: func(c *Config) { c.Server.Transport = "sse" },
			errMsg: `unknown transport "sse"`,
		},
		{
			name: "http without address",
			mutate: func(c *Config) {
				c.Server.Transport = TransportHTTP
				c.Server.Address = ""
			},
			errMsg: "server address is required",
		},
		{
			name: "http relative path",
			mutate: func(c *Config) {
				c.Server.Transport = TransportHTTP
				c.Server.Path = "mcp"
			},
			errMsg: "must start with /",
		},
		{
			name:   "unknown tool",
			mutate: func(c *Config) { c.Server.Tools = []string{"record_video"} },
			errMsg: `unknown tool "record_video"`,
		},
		{
			name:   "duplicate tool",
			mutate: func(c *Config) { c.Server.Tools = []string{"open_camera", "open_camera"} },
			errMsg: `duplicate tool "open_camera"`,
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Capture.Backend = "v4l2" },
			errMsg: `unknown capture backend "v4l2"`,
		},
		{
			name: "testpattern without devices",
			mutate: func(c *Config) {
				c.Capture.Backend = BackendTestPattern
				c.Capture.Devices = 0
			},
			errMsg: "at least one device",
		},
		{
			name:   "unknown encoding",
			mutate: func(c *Config) { c.Capture.Encoding = "webp" },
			errMsg: `unknown encoding "webp"`,
		},
		{
			name: "jpeg quality out of range",
			mutate: func(c *Config) {
				c.Capture.Encoding = frame.JPEG
				c.Capture.JPEGQuality = 101
			},
			errMsg: "jpeg_quality must be within 1..100",
		},
		{
			name:   "probe max",
			mutate: func(c *Config) { c.Capture.ProbeMax = 0 },
			errMsg: "probe_max must be positive",
		},
		{
			name:   "log format",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			errMsg: `unknown log format "xml"`,
		},
		{
			name:   "loki without url",
			mutate: func(c *Config) { c.Logging.Loki.Enabled = true },
			errMsg: "loki url is required",
		},
		{
			name: "metrics without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			errMsg: "metrics address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config: ")
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestEncoder(t *testing.T) {
	cfg := Default()
	cfg.Capture.Encoding = frame.JPEG
	cfg.Capture.JPEGQuality = 60

	enc := cfg.Encoder()
	assert.Equal(t, frame.JPEG, enc.Encoding)
	assert.Equal(t, 60, enc.JPEGQuality)
	assert.Equal(t, "image/jpeg", enc.MIMEType())
}
