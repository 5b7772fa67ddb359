package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/videocapture/pkg/capturetools"
	"github.com/germanamz/videocapture/pkg/config"
	"github.com/germanamz/videocapture/pkg/frame"
	"github.com/pmezard/go-difflib/difflib"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: videocapture init [flags]\n\nCreate or update a configuration file interactively.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	out := fs.String("out", config.FileName, "path of the configuration file to write")
	defaults := fs.Bool("defaults", false, "write the built-in defaults without prompting")
	force := fs.Bool("force", false, "overwrite an existing file without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()

	old, err := os.ReadFile(*out) //nolint:gosec // path is caller-provided
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", *out, err)
	}
	if exists {
		if cfg, err = config.Parse(old); err != nil {
			return err
		}
	}

	if !*defaults {
		answers := answersFrom(cfg)
		if err := runWizard(&answers); err != nil {
			return err
		}
		if err := answers.apply(&cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	if exists {
		diff := configDiff(*out, string(old), string(data))
		if diff == "" {
			fmt.Fprintf(os.Stderr, "%s is up to date\n", *out)
			return nil
		}

		fmt.Fprintln(os.Stderr, renderDiff(diff))

		if !*force {
			overwrite := false
			if err := newForm(huh.NewGroup(
				huh.NewConfirm().Title(fmt.Sprintf("Overwrite %s?", *out)).Value(&overwrite),
			)).Run(); err != nil {
				return err
			}
			if !overwrite {
				fmt.Fprintln(os.Stderr, "aborted")
				return nil
			}
		}
	}

	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", *out)

	return nil
}

// wizardAnswers holds form values. Numbers are kept as strings while the
// form is edited.
type wizardAnswers struct {
	Name           string
	Transport      string
	Address        string
	Path           string
	Tools          []string
	Backend        string
	Devices        string
	Encoding       string
	JPEGQuality    string
	LogLevel       string
	LogFormat      string
	MetricsEnabled bool
	MetricsAddress string
}

func answersFrom(cfg config.Config) wizardAnswers {
	tools := cfg.Server.Tools
	if len(tools) == 0 {
		tools = append([]string(nil), capturetools.ToolNames...)
	}

	return wizardAnswers{
		Name:           cfg.Server.Name,
		Transport:      cfg.Server.Transport,
		Address:        cfg.Server.Address,
		Path:           cfg.Server.Path,
		Tools:          tools,
		Backend:        cfg.Capture.Backend,
		Devices:        strconv.Itoa(cfg.Capture.Devices),
		Encoding:       string(cfg.Capture.Encoding),
		JPEGQuality:    strconv.Itoa(cfg.Capture.JPEGQuality),
		LogLevel:       cfg.Logging.Level,
		LogFormat:      cfg.Logging.Format,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsAddress: cfg.Metrics.Address,
	}
}

// apply copies the answers into cfg. Selecting every tool is stored as an
// empty list so that tools added later are exposed too.
func (a wizardAnswers) apply(cfg *config.Config) error {
	devices, err := strconv.Atoi(strings.TrimSpace(a.Devices))
	if err != nil {
		return fmt.Errorf("devices: %w", err)
	}
	quality, err := strconv.Atoi(strings.TrimSpace(a.JPEGQuality))
	if err != nil {
		return fmt.Errorf("jpeg quality: %w", err)
	}

	cfg.Server.Name = strings.TrimSpace(a.Name)
	cfg.Server.Transport = a.Transport
	cfg.Server.Address = strings.TrimSpace(a.Address)
	cfg.Server.Path = strings.TrimSpace(a.Path)
	cfg.Server.Tools = nil
	if len(a.Tools) < len(capturetools.ToolNames) {
		cfg.Server.Tools = append([]string(nil), a.Tools...)
	}
	cfg.Capture.Backend = a.Backend
	cfg.Capture.Devices = devices
	cfg.Capture.Encoding = frame.Encoding(a.Encoding)
	cfg.Capture.JPEGQuality = quality
	cfg.Logging.Level = a.LogLevel
	cfg.Logging.Format = a.LogFormat
	cfg.Metrics.Enabled = a.MetricsEnabled
	cfg.Metrics.Address = strings.TrimSpace(a.MetricsAddress)

	return nil
}

// newForm builds a form rendered on stderr, keeping stdout free for piping.
func newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).WithProgramOptions(tea.WithOutput(os.Stderr))
}

func runWizard(a *wizardAnswers) error {
	toolOptions := make([]huh.Option[string], 0, len(capturetools.ToolNames))
	for _, name := range capturetools.ToolNames {
		toolOptions = append(toolOptions, huh.NewOption(name, name))
	}

	return newForm(
		huh.NewGroup(
			huh.NewInput().Title("Server name").Value(&a.Name).Validate(notEmpty),
			huh.NewSelect[string]().
				Title("Transport").
				Options(
					huh.NewOption("stdio (launched by the MCP client)", config.TransportStdio),
					huh.NewOption("streamable HTTP", config.TransportHTTP),
				).
				Value(&a.Transport),
		),
		huh.NewGroup(
			huh.NewInput().Title("Listen address").Value(&a.Address).Validate(notEmpty),
			huh.NewInput().Title("Endpoint path").Value(&a.Path).Validate(absolutePath),
		).WithHideFunc(func() bool { return a.Transport != config.TransportHTTP }),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Exposed tools").
				Options(toolOptions...).
				Value(&a.Tools).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return errors.New("select at least one tool")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Capture backend").
				Options(
					huh.NewOption("OpenCV cameras", config.BackendOpenCV),
					huh.NewOption("Synthetic test pattern", config.BackendTestPattern),
				).
				Value(&a.Backend),
			huh.NewSelect[string]().
				Title("Frame encoding").
				Options(
					huh.NewOption("PNG", string(frame.PNG)),
					huh.NewOption("JPEG", string(frame.JPEG)),
				).
				Value(&a.Encoding),
		),
		huh.NewGroup(
			huh.NewInput().Title("Number of synthetic devices").Value(&a.Devices).Validate(intRange(1, 64)),
		).WithHideFunc(func() bool { return a.Backend != config.BackendTestPattern }),
		huh.NewGroup(
			huh.NewInput().Title("JPEG quality (1-100)").Value(&a.JPEGQuality).Validate(intRange(1, 100)),
		).WithHideFunc(func() bool { return a.Encoding != string(frame.JPEG) }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&a.LogLevel),
			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions(config.FormatJSON, config.FormatText)...).
				Value(&a.LogFormat),
			huh.NewConfirm().Title("Expose Prometheus metrics?").Value(&a.MetricsEnabled),
		),
		huh.NewGroup(
			huh.NewInput().Title("Metrics address").Value(&a.MetricsAddress).Validate(notEmpty),
		).WithHideFunc(func() bool { return !a.MetricsEnabled }),
	).Run()
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func absolutePath(s string) error {
	if !strings.HasPrefix(strings.TrimSpace(s), "/") {
		return errors.New("must start with /")
	}
	return nil
}

func intRange(lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("must be a number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

// configDiff returns a unified diff between the existing and the new file
// contents. It is empty when they are equal.
func configDiff(path, oldContent, newContent string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: path,
		ToFile:   path + " (new)",
		Context:  3,
	}

	result, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("(diff error: %v)", err)
	}

	return result
}

// renderDiff colors a unified diff line by line.
func renderDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, l := range lines {
		lines[i] = diffLineStyle(l).Render(l)
	}
	return strings.Join(lines, "\n")
}

func diffLineStyle(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return dimStyle
	case strings.HasPrefix(line, "+"):
		return diffAddStyle
	case strings.HasPrefix(line, "-"):
		return diffDelStyle
	case strings.HasPrefix(line, "@@"):
		return diffHunkStyle
	default:
		return lipgloss.NewStyle()
	}
}
