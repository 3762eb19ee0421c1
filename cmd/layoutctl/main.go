// layoutctl is the control CLI for layoutd.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"layoutd/internal/config"
	"layoutd/internal/ipc"
)

var (
	socketPath = flag.String("socket", "", "path to daemon socket (default: from config dir)")
	timeout    = flag.Duration("timeout", 5*time.Second, "request timeout")
	asJSON     = flag.Bool("json", false, "print raw JSON instead of formatted output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "status":
		cmdStatus()
	case "stats":
		cmdStats()
	case "flush":
		cmdFlush()
	case "enable":
		cmdSetEnabled(true)
	case "disable":
		cmdSetEnabled(false)
	case "suggest":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: layoutctl suggest <word>")
			os.Exit(1)
		}
		cmdSuggest(flag.Arg(1))
	case "ping":
		cmdPing()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", flag.Arg(0))
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `layoutctl - Control utility for layoutd

Usage: layoutctl [options] <command>

Commands:
  status      Show daemon status
  stats       Show correction and cache statistics
  flush       Persist learning data to disk now
  suggest     Show learned and dictionary alternatives for a word
  enable      Enable automatic correction
  disable     Disable automatic correction
  ping        Check that the daemon is responsive
  help        Show this help message

Options:
  -socket <path>   Daemon socket path (default: from layoutd directory)
  -timeout <dur>   Request timeout (default: 5s)
  -json            Print raw JSON`)
}

func dial() *ipc.Client {
	path := *socketPath
	if path == "" {
		path = config.Default().IPC.SocketPath
	}
	client, err := ipc.Dial(path, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Is layoutd running? Start it with 'layoutd run'.")
		os.Exit(1)
	}
	return client
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func cmdPing() {
	client := dial()
	defer client.Close()

	start := time.Now()
	if err := client.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("pong (%s)\n", time.Since(start).Round(time.Microsecond))
}

func cmdStatus() {
	client := dial()
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		printJSON(status)
		return
	}

	fmt.Println("=== layoutd Status ===")
	fmt.Println()
	fmt.Printf("Version:  %s\n", status.Version)
	fmt.Printf("PID:      %d\n", status.PID)
	fmt.Printf("Uptime:   %s\n", time.Since(status.StartedAt).Round(time.Second))
	fmt.Printf("Enabled:  %v\n", status.Enabled)
	fmt.Printf("State:    %s\n", status.EngineState)
	fmt.Printf("Layout:   %s\n", status.Layout)
}

func cmdStats() {
	client := dial()
	defer client.Close()

	stats, err := client.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		printJSON(stats)
		return
	}

	fmt.Println("=== layoutd Statistics ===")
	fmt.Println()
	fmt.Printf("Words processed:   %d\n", stats.WordsProcessed)
	fmt.Printf("Corrections:       %d\n", stats.Corrections)
	fmt.Printf("Rejections:        %d\n", stats.Rejections)
	fmt.Printf("Suppressed:        %d\n", stats.Suppressed)
	fmt.Printf("Switch failures:   %d\n", stats.SwitchFailures)
	fmt.Printf("Recursion aborts:  %d\n", stats.RecursionAborts)
	fmt.Printf("Learned words:     %d\n", stats.LearnedWords)

	if len(stats.Caches) > 0 {
		fmt.Println()
		fmt.Println("Caches:")
		for _, c := range stats.Caches {
			fmt.Printf("  %-12s %5d entries, %6.1f%% hit rate (%d evictions, %d expired)\n",
				c.Name, c.Size, c.HitRate*100, c.Evictions, c.Expired)
		}
	}

	if len(stats.Counters) > 0 {
		fmt.Println()
		fmt.Println("Counters:")
		for name, v := range stats.Counters {
			fmt.Printf("  %-20s %d\n", name, v)
		}
	}
}

func cmdSuggest(word string) {
	client := dial()
	defer client.Close()

	result, err := client.Suggest(word)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		printJSON(result)
		return
	}

	if len(result.Selections) == 0 && len(result.Suggestions) == 0 {
		fmt.Printf("No alternatives known for %q.\n", word)
		return
	}
	if len(result.Selections) > 0 {
		fmt.Println("Previously chosen:")
		for _, s := range result.Selections {
			fmt.Printf("  %s\n", s)
		}
	}
	for lang, words := range result.Suggestions {
		fmt.Printf("Dictionary (%s):\n", lang)
		for _, w := range words {
			fmt.Printf("  %s\n", w)
		}
	}
}

func cmdFlush() {
	client := dial()
	defer client.Close()

	result, err := client.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result.Persisted {
		fmt.Println("Learning data persisted.")
	}
}

func cmdSetEnabled(enabled bool) {
	client := dial()
	defer client.Close()

	result, err := client.SetEnabled(enabled)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result.Enabled {
		fmt.Println("Correction enabled.")
	} else {
		fmt.Println("Correction disabled.")
	}
}
