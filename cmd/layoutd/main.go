// layoutd - Automatic keyboard layout correction daemon
//
//	layoutd init      Create the data directory and a default config
//	layoutd run       Run the daemon in the foreground
//	layoutd version   Print the version
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"layoutd/internal/config"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit()
	case "run":
		cmdRun()
	case "version":
		fmt.Println("layoutd " + version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`layoutd - Automatic keyboard layout correction

USAGE:
    layoutd <command> [options]

COMMANDS:
    init        Create the data directory and a default config file
    run         Run the daemon in the foreground
    version     Print the version
    help        Show this help message

WORKFLOW:
    1. layoutd init                 # One-time setup
    2. layoutd run                  # Start correcting
    3. layoutctl status             # Inspect from another terminal

The daemon watches completed words, decides whether they were typed in
the wrong keyboard layout, and switches the layout (optionally retyping
the word) when the evidence is strong enough. Words typed into secure
fields are never buffered.`)
}

func cmdInit() {
	dir := config.Dir()

	for _, d := range []string{dir, filepath.Join(dir, "wordlists"), filepath.Join(dir, "rules")} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating directory %s: %v\n", d, err)
			os.Exit(1)
		}
	}

	cfgPath := config.DefaultPath()
	_, created, err := config.LoadOrCreate(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	if created {
		fmt.Printf("Wrote default config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Drop wordlists into " + filepath.Join(dir, "wordlists") + " (en.txt, ru.txt)")
	fmt.Println("  2. Run 'layoutd run' to start the daemon")
	fmt.Println("  3. Use 'layoutctl status' to inspect it")
}

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultPath(), "Config file path")
	fakeInput := fs.Bool("fake-input", false, "Use the fake capture and switcher (development)")
	fs.Parse(os.Args[2:])

	if _, _, err := config.LoadOrCreate(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	loader := config.NewLoader(*cfgPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	d, err := newDaemon(cfg, loader, *fakeInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting daemon: %v\n", err)
		os.Exit(1)
	}

	if err := d.run(); err != nil {
		fmt.Fprintf(os.Stderr, "Daemon exited with error: %v\n", err)
		os.Exit(1)
	}
}
