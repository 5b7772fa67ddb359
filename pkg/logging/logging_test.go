package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/germanamz/videocapture/pkg/config"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONToStderr(t *testing.T) {
	var buf bytes.Buffer

	logger, cleanup, err := setup(config.LoggingConfig{Level: "info", Format: config.FormatJSON}, "", &buf)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	logger.Info().Str("connection", "abc").Msg("connection opened")
	logger.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["connection"])
	assert.Equal(t, "connection opened", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{level: "", want: zerolog.InfoLevel},
		{level: "debug", want: zerolog.DebugLevel},
		{level: "WARN", want: zerolog.WarnLevel},
		{level: "trace", want: zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, cleanup, err := setup(config.LoggingConfig{Level: tt.level}, "", &bytes.Buffer{})
			require.NoError(t, err)
			t.Cleanup(cleanup)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, _, err := setup(config.LoggingConfig{Level: "loud"}, "", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging: parse level")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger, cleanup, err := setup(config.LoggingConfig{Format: config.FormatText}, "", &buf)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	logger.Info().Msg("registry shut down")

	assert.Contains(t, buf.String(), "registry shut down")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestSetup_File(t *testing.T) {
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "videocapture.log")

	logger, cleanup, err := setup(config.LoggingConfig{File: path}, "", &stderr)
	require.NoError(t, err)

	logger.Warn().Msg("release failed")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "release failed")
	assert.Empty(t, stderr.String())
}

func TestSetup_FileError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "videocapture.log")

	_, _, err := setup(config.LoggingConfig{File: path}, "", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging: open")
}

func TestSetup_LokiRequiresURL(t *testing.T) {
	_, _, err := setup(config.LoggingConfig{Loki: config.LokiConfig{Enabled: true}}, "", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loki url is required")
}

func TestLokiLabels(t *testing.T) {
	assert.Equal(t, model.LabelSet{"app": "videocapture"}, lokiLabels(nil, ""))
	assert.Equal(t,
		model.LabelSet{"app": "videocapture", "transport": "http"},
		lokiLabels(nil, config.TransportHTTP),
	)
	assert.Equal(t,
		model.LabelSet{"site": "lab", "app": "cams", "transport": "stdio"},
		lokiLabels(map[string]string{"site": "lab", "app": "cams"}, config.TransportStdio),
	)
}

type pushed struct {
	labels model.LabelSet
	line   string
}

type recordingSink struct {
	entries []pushed
}

func (s *recordingSink) Handle(labels model.LabelSet, _ time.Time, line string) error {
	s.entries = append(s.entries, pushed{labels: labels, line: line})
	return nil
}

func TestLokiWriter_StreamPerLevel(t *testing.T) {
	sink := &recordingSink{}
	w := newLevelWriter(sink, lokiLabels(nil, config.TransportStdio))

	var buf bytes.Buffer
	logger := zerolog.New(zerolog.MultiLevelWriter(&buf, w)).Level(zerolog.DebugLevel)
	logger.Info().Str("connection_id", "abc").Msg("connection opened")
	logger.Warn().Msg("release failed")
	logger.Trace().Msg("dropped")

	require.Len(t, sink.entries, 2)

	assert.Equal(t, model.LabelValue("info"), sink.entries[0].labels["level"])
	assert.Equal(t, model.LabelValue("stdio"), sink.entries[0].labels["transport"])
	assert.Contains(t, sink.entries[0].line, `"connection_id":"abc"`)
	assert.Equal(t, model.LabelValue("warn"), sink.entries[1].labels["level"])

	// The base label set is shared by every stream and must stay unlabelled.
	_, ok := w.fallback["level"]
	assert.False(t, ok)
}

func TestLokiWriter_SkipsBlankLines(t *testing.T) {
	sink := &recordingSink{}
	w := newLevelWriter(sink, lokiLabels(nil, ""))

	n, err := w.Write([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, sink.entries)

	_, err = w.Write([]byte("plain\n"))
	require.NoError(t, err)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "plain", sink.entries[0].line)
	assert.Equal(t, model.LabelSet{"app": "videocapture"}, sink.entries[0].labels)
}
