package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/germanamz/videocapture/pkg/capturetools"
	"github.com/germanamz/videocapture/pkg/device/testpattern"
	"github.com/germanamz/videocapture/pkg/frame"
	"github.com/germanamz/videocapture/pkg/registry"
	"github.com/germanamz/videocapture/pkg/tools/toolbox"
)

func runTools(args []string) error {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: videocapture tools [flags]\n\nPrint the tool catalog.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	raw := fs.Bool("raw", false, "print plain Markdown instead of rendering it")
	width := fs.Int("width", 100, "word wrap width of the rendered output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only tool metadata is needed; the registry never opens a device here.
	reg := registry.New(testpattern.New(0), registry.Options{})
	md := catalogMarkdown(capturetools.New(reg, frame.Encoder{}).Tools().Tools())

	if *raw {
		fmt.Print(md)
		return nil
	}

	fmt.Print(renderMarkdown(md, *width))
	return nil
}

// renderMarkdown renders md for the terminal, falling back to the plain text
// when the renderer cannot be built.
func renderMarkdown(md string, width int) string {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

type schemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type objectSchema struct {
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

// catalogMarkdown documents each tool with its description and a parameter
// table derived from its input schema.
func catalogMarkdown(tools []toolbox.Tool) string {
	var sb strings.Builder

	sb.WriteString("# videocapture tools\n")

	for _, t := range tools {
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", t.Name, t.Description)

		var schema objectSchema
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil || len(schema.Properties) == 0 {
			sb.WriteString("\nNo parameters.\n")
			continue
		}

		names := make([]string, 0, len(schema.Properties))
		for name := range schema.Properties {
			names = append(names, name)
		}
		slices.Sort(names)

		sb.WriteString("\n| Parameter | Type | Required | Description |\n|---|---|---|---|\n")
		for _, name := range names {
			p := schema.Properties[name]
			required := "no"
			if slices.Contains(schema.Required, name) {
				required = "yes"
			}
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", name, p.Type, required, p.Description)
		}
	}

	return sb.String()
}
