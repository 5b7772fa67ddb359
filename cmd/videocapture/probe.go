package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/germanamz/videocapture/pkg/device"
	"github.com/mattn/go-runewidth"
)

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: videocapture probe [flags]\n\nOpen device indices one by one and report which cameras are available.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to configuration file")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	backend := fs.String("backend", "", "override capture.backend (opencv or testpattern)")
	limit := fs.Int("max", 0, "number of indices to scan (default: capture.probe_max)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _, err := loadConfig(*configPath, *envFile)
	if err != nil {
		return err
	}
	if *backend != "" {
		cfg.Capture.Backend = *backend
	}
	if *limit > 0 {
		cfg.Capture.ProbeMax = *limit
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opener, err := newOpener(cfg.Capture)
	if err != nil {
		return err
	}

	results := device.Probe(opener, cfg.Capture.ProbeMax)
	fmt.Print(renderProbeTable(results))

	available := 0
	for _, r := range results {
		if r.Available {
			available++
		}
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d of %d indices available (%s backend)", available, len(results), cfg.Capture.Backend)))

	return nil
}

var probeColumns = []string{"INDEX", "STATUS", "RESOLUTION", "FPS", "DETAIL"}

// renderProbeTable lays the results out in aligned columns. Cells are padded
// by display width before styling so escape sequences do not skew alignment.
func renderProbeTable(results []device.ProbeResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, probeRow(r))
	}

	widths := make([]int, len(probeColumns))
	for i, h := range probeColumns {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder

	cells := make([]string, len(probeColumns))
	for i, h := range probeColumns {
		cells[i] = headerStyle.Render(runewidth.FillRight(h, widths[i]))
	}
	sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
	sb.WriteString("\n")

	for ri, row := range rows {
		style := errorStyle
		if results[ri].Available {
			style = okStyle
		}
		for i, cell := range row {
			padded := runewidth.FillRight(cell, widths[i])
			if i == 1 {
				padded = style.Render(padded)
			}
			cells[i] = padded
		}
		sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

func probeRow(r device.ProbeResult) []string {
	row := []string{strconv.Itoa(r.Index), "unavailable", "-", "-", ""}
	if r.Available {
		row[1] = "available"
		row[2] = fmt.Sprintf("%gx%g", r.Width, r.Height)
		row[3] = strconv.FormatFloat(r.FPS, 'g', -1, 64)
	}
	if r.Err != nil {
		row[4] = runewidth.Truncate(firstLine(r.Err.Error()), 60, "…")
	}
	return row
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
