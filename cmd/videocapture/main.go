package main

import (
	"fmt"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "init":
		err = runInit(args)
	case "tools":
		err = runTools(args)
	case "probe":
		err = runProbe(args)
	case "call":
		err = runCall(args)
	case "version":
		fmt.Println(version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: videocapture [command] [flags]

Commands:
  serve    Run the MCP server (default)
  init     Create a videocapture.yaml interactively
  tools    Print the tool catalog
  probe    Scan device indices and report which cameras open
  call     Call one tool on a running server
  version  Print the version

Run "videocapture <command> -h" for command flags.
`)
}
