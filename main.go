package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func init() {
	// Load .env file if present (silently ignore if missing)
	godotenv.Load()
}

var (
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

var errMissingURL = errors.New("Video URL required")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ytcomments <youtube-url> [max-comments]",
		Short: "Fetch comments and metadata for a YouTube video as JSON",
		Long: `A CLI tool that collects the comments of a YouTube video together with the
video's metadata and prints them as a single JSON document on stdout.

Comments are fetched most-popular first, then most-recent, and deduplicated.
Progress is written to stderr. Set YOUTUBE_API_KEY to enrich metadata with
like counts and tags from the YouTube Data API.`,
		Args:          cobra.ArbitraryArgs, // extra positional args are ignored
		RunE:          runScrape,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (scrape + sentiment analysis)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := serveAddr
			if addr == "" {
				if port := os.Getenv("PORT"); port != "" {
					addr = ":" + port
				} else {
					addr = defaultAddr
				}
			}
			return startServer(addr)
		},
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: :$PORT or "+defaultAddr+")")
	serveCmd.Flags().StringVar(&frontendURL, "frontend-url", "", "Extra allowed CORS origin (default: from FRONTEND_URL env)")

	// Global flags
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Aggregation mode: two-phase or single-pass (default: from YTCOMMENTS_MODE env, else two-phase)")
	rootCmd.PersistentFlags().StringVar(&youtubeAPIKey, "youtube-api-key", "", "YouTube Data API key for metadata (default: from YOUTUBE_API_KEY env)")
	rootCmd.PersistentFlags().StringVar(&pageIntervalFlag, "page-interval", "", "Minimum delay between comment page requests (default: from YTCOMMENTS_PAGE_INTERVAL env, else 500ms)")
	rootCmd.PersistentFlags().StringVar(&timeoutFlag, "timeout", "", "HTTP timeout per request (default: from YTCOMMENTS_TIMEOUT env, else 30s)")
	rootCmd.Flags().BoolVar(&prettyOutput, "pretty", false, "Indent the JSON output")

	rootCmd.AddCommand(serveCmd)
	return rootCmd
}

func log(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "→ "+format+"\n", args...)
}

func warn(format string, args ...interface{}) {
	warnColor.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}

func runScrape(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) < 1 || args[0] == "" {
		writeResult(out, &ScrapeResult{Success: false, Error: errMissingURL.Error(), Comments: []Comment{}}, prettyOutput)
		return errMissingURL
	}
	url := args[0]

	maxComments := 0
	if len(args) > 1 {
		n, err := parseMaxComments(args[1])
		if err != nil {
			return writeResult(out, &ScrapeResult{Success: false, Error: err.Error(), Comments: []Comment{}}, prettyOutput)
		}
		maxComments = n
	}

	scraper, err := newScraper(log, warn)
	if err != nil {
		errColor.Fprintf(os.Stderr, "✗ %s\n", err)
		return writeResult(out, &ScrapeResult{Success: false, Error: err.Error(), Comments: []Comment{}}, prettyOutput)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := scraper.Scrape(ctx, url, maxComments)
	if result.Success {
		log("Done! %d comments", result.Total)
	} else {
		errColor.Fprintf(os.Stderr, "✗ %s\n", result.Error)
	}
	return writeResult(out, result, prettyOutput)
}

func writeResult(w io.Writer, result *ScrapeResult, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
