// Command rewardctl is the operator console for reviewing and paying out
// reward claims.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aayan-infotech/bitcoin-admin/pkg/logging"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	fs := flag.NewFlagSet("rewardctl", flag.ExitOnError)
	server := fs.String("server", envOr("REWARDCTL_SERVER", "http://localhost:8080"), "Server base URL.")
	tokenPath := fs.String("token-file", envOr("REWARDCTL_TOKEN_FILE", defaultTokenPath()), "Where the session token is kept.")
	verbose := fs.Bool("v", false, "Log debug output to stderr.")
	fs.Parse(os.Args[1:])

	level := "warn"
	if *verbose {
		level = "debug"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli := &commandLine{
		server:     *server,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		tokens:     tokenFile{path: *tokenPath},
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
		logger:     logging.New(os.Stderr, logging.ParseLevel(level), "text"),
	}
	err := cli.run(ctx, fs.Args())
	stop()

	if errors.Is(err, errHelp) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
