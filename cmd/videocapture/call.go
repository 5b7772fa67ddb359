package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/germanamz/videocapture/pkg/tools/content"
	"github.com/germanamz/videocapture/pkg/tools/mcpclient"
)

func runCall(args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: videocapture call [flags] <tool> [json-arguments]\n       videocapture call [flags] -list\n\nCall one tool on an MCP server.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	url := fs.String("url", "", "streamable HTTP endpoint of the server (e.g. http://127.0.0.1:9001/mcp)")
	command := fs.String("command", "", "command line that starts a stdio server (default: this binary with serve)")
	outDir := fs.String("out", ".", "directory image results are written to")
	list := fs.Bool("list", false, "list the tools the server exposes")
	timeout := fs.Duration("timeout", 30*time.Second, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	client, err := connect(ctx, *url, *command)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if *list {
		tools, err := client.ListTools(ctx)
		if err != nil {
			return err
		}
		for _, t := range tools {
			fmt.Printf("%-24s %s\n", t.Name, t.Description)
		}
		return nil
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("tool name is required")
	}

	name := fs.Arg(0)
	arguments, err := callArguments(fs.Args()[1:])
	if err != nil {
		return err
	}

	parts, err := client.CallTool(ctx, name, arguments)
	if err != nil {
		return err
	}

	files, err := writeImages(*outDir, name, time.Now(), parts)
	if err != nil {
		return err
	}

	if text := (content.ToolResult{Parts: parts}).Text(); text != "" {
		fmt.Println(text)
	}
	for _, f := range files {
		fmt.Fprintln(os.Stderr, dimStyle.Render("wrote "+f))
	}

	return nil
}

// connect dials the server at url, or spawns command as a stdio server.
// Without either it spawns this binary's own serve command.
func connect(ctx context.Context, url, command string) (*mcpclient.MCPClient, error) {
	if url != "" {
		return mcpclient.NewStreamable(ctx, url)
	}

	if command == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		return mcpclient.New(ctx, self, "serve", "-transport", "stdio")
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("--command %q: no program given", command)
	}

	return mcpclient.New(ctx, fields[0], fields[1:]...)
}

// callArguments joins the remaining command line into one JSON object. An
// empty remainder means no arguments.
func callArguments(rest []string) (json.RawMessage, error) {
	raw := strings.TrimSpace(strings.Join(rest, " "))
	if raw == "" {
		return json.RawMessage("{}"), nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	return json.RawMessage(raw), nil
}

// writeImages stores every image part in dir and returns the file paths.
func writeImages(dir, tool string, now time.Time, parts []content.Part) ([]string, error) {
	images := content.ToolResult{Parts: parts}.Images()
	if len(images) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	stamp := now.Format("20060102-150405")
	files := make([]string, 0, len(images))
	for i, img := range images {
		name := fmt.Sprintf("%s-%s%s", tool, stamp, imageExt(img.MediaType))
		if len(images) > 1 {
			name = fmt.Sprintf("%s-%s-%d%s", tool, stamp, i+1, imageExt(img.MediaType))
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, img.Data, 0o600); err != nil {
			return files, fmt.Errorf("write %s: %w", path, err)
		}
		files = append(files, path)
	}

	return files, nil
}

func imageExt(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}
