// Package main is the entry point for the chatstorm chat client.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dshills/chatstorm/internal/app"
	"github.com/dshills/chatstorm/internal/prefs"
	"github.com/dshills/chatstorm/internal/protocol"
)

// DefaultServer is the main public simulator websocket endpoint.
const DefaultServer = "wss://sim3.psim.us/showdown/websocket"

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type cliFlags struct {
	opts      app.Options
	server    string
	configure bool
	advanced  bool
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()

	if flags.configure {
		application, err := app.New(nil, flags.opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
			return 1
		}
		defer application.Close()

		if err := application.Configure(flags.advanced); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	log := app.NewLogger(flags.opts.LogLevel, flags.opts.Debug)
	flags.opts.Logger = log

	// Credentials come from the preference store; run with -configure
	// first to set them.
	store, err := prefs.Open(flags.opts.PrefsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read preferences: %v\n", err)
		return 1
	}

	conn, err := protocol.Dial(flags.server,
		protocol.WithLogger(log),
		protocol.WithCredentials(
			store.GetString(prefs.KeyUsername),
			store.GetString(prefs.KeyPassword),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect: %v\n", err)
		return 1
	}
	defer conn.Close()

	application, err := app.New(conn, flags.opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	conn.Start()

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() cliFlags {
	var flags cliFlags
	var showVersion bool
	var showHelp bool

	flag.StringVar(&flags.opts.PrefsPath, "prefs", prefs.DefaultPath, "Path to preference file")
	flag.StringVar(&flags.server, "server", DefaultServer, "Chat server websocket URL")
	flag.BoolVar(&flags.opts.AllowEval, "allow-eval", false, "Enable the eval command (runs arbitrary code)")
	flag.BoolVar(&flags.opts.Debug, "debug", false, "Enable debug mode")
	flag.BoolVar(&flags.opts.Debug, "d", false, "Enable debug mode (shorthand)")
	flag.StringVar(&flags.opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&flags.configure, "configure", false, "Interactively edit preferences, then exit")
	flag.BoolVar(&flags.advanced, "advanced", false, "Include advanced settings with -configure")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Chatstorm - text-mode chat client\n\n")
		fmt.Fprintf(os.Stderr, "Usage: chatstorm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  chatstorm -configure            Set username, password and rooms\n")
		fmt.Fprintf(os.Stderr, "  chatstorm                       Connect to the main server\n")
		fmt.Fprintf(os.Stderr, "  chatstorm -server ws://...      Connect elsewhere\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Chatstorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch flags.opts.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", flags.opts.LogLevel)
		os.Exit(1)
	}

	return flags
}
