// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/germanamz/videocapture/pkg/config"
	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"
)

// Setup creates a zerolog logger according to cfg. Output goes to stderr, or
// to cfg.File when set, and additionally to Loki when enabled, where transport
// becomes a stream label. The returned cleanup flushes pending Loki batches
// and closes every sink.
func Setup(cfg config.LoggingConfig, transport string) (zerolog.Logger, func(), error) {
	return setup(cfg, transport, os.Stderr)
}

func setup(cfg config.LoggingConfig, transport string, stderr io.Writer) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("logging: parse level: %w", err)
		}
		level = parsed
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	out := stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from configuration
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("logging: open %s: %w", cfg.File, err)
		}
		out = f
		closers = append(closers, func() { _ = f.Close() })
	}

	if strings.EqualFold(cfg.Format, config.FormatText) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.File != ""}
	}

	writers := []io.Writer{out}

	if cfg.Loki.Enabled {
		lokiWriter, closer, err := newLokiWriter(cfg.Loki, transport)
		if err != nil {
			cleanup()
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, lokiWriter)
		closers = append(closers, closer)
	}

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).With().Timestamp().Logger().Level(level)

	return logger, cleanup, nil
}

// lokiSink is the part of the Loki client the writer pushes to.
type lokiSink interface {
	Handle(labels model.LabelSet, t time.Time, line string) error
}

func newLokiWriter(cfg config.LokiConfig, transport string) (*lokiWriter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("logging: loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: create loki client: %w", err)
	}

	return newLevelWriter(client, lokiLabels(cfg.Labels, transport)), client.Stop, nil
}

func newLevelWriter(sink lokiSink, base model.LabelSet) *lokiWriter {
	w := &lokiWriter{sink: sink, streams: make(map[zerolog.Level]model.LabelSet)}
	for _, lvl := range []zerolog.Level{
		zerolog.TraceLevel, zerolog.DebugLevel, zerolog.InfoLevel,
		zerolog.WarnLevel, zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel,
	} {
		labels := base.Clone()
		labels["level"] = model.LabelValue(lvl.String())
		w.streams[lvl] = labels
	}
	w.fallback = base

	return w
}

// lokiLabels merges the configured labels over the defaults. The app label
// defaults to videocapture, and transport names the MCP transport being
// served so stdio and HTTP instances end up in separate streams.
func lokiLabels(in map[string]string, transport string) model.LabelSet {
	labels := model.LabelSet{"app": "videocapture"}
	if transport != "" {
		labels["transport"] = model.LabelValue(transport)
	}
	for k, v := range in {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}

	return labels
}

// lokiWriter pushes each log line to one Loki stream per level.
type lokiWriter struct {
	sink     lokiSink
	streams  map[zerolog.Level]model.LabelSet
	fallback model.LabelSet
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	return l.push(l.fallback, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (l *lokiWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	labels, ok := l.streams[level]
	if !ok {
		labels = l.fallback
	}

	return l.push(labels, p)
}

func (l *lokiWriter) push(labels model.LabelSet, p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}

	return len(p), l.sink.Handle(labels, time.Now(), entry)
}
